package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailor-labs/sailor/internal/domain"
)

// denseServer answers with a one-hot vector encoding each input's index,
// deliberately in reverse order to exercise response re-sorting.
func denseServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		rows := make([]embedRow, 0, len(req.Inputs))
		for i := len(req.Inputs) - 1; i >= 0; i-- {
			item := req.Inputs[i]
			vec := make([]float32, len(req.Inputs))
			vec[item.Index] = 1
			rows = append(rows, embedRow{Index: item.Index, Embedding: vec})
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: rows})
	}))
}

func sparseServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		rows := make([]embedRow, len(req.Inputs))
		for i, item := range req.Inputs {
			rows[i] = embedRow{
				Index:   item.Index,
				Indices: []int32{int32(item.Index)},
				Values:  []float32{0.5},
			}
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: rows})
	}))
}

func newClient(name, url string) *BackendClient {
	return NewBackendClient(name, url, 5*time.Second, 2, time.Millisecond)
}

func TestDualGenerator_OrderPreservedAcrossBatches(t *testing.T) {
	dense := denseServer(t)
	defer dense.Close()
	sparse := sparseServer(t)
	defer sparse.Close()

	gen := NewDualGenerator(newClient("dense", dense.URL), newClient("sparse", sparse.URL), 4)

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	pairs, err := gen.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, pairs, 10)

	// the one-hot position must match each text's position within its batch
	for i, pair := range pairs {
		within := i % 4
		assert.Equal(t, float32(1), pair.Dense[within], "pair %d", i)
		require.Len(t, pair.Sparse.Indices, 1)
		assert.Equal(t, int32(within), pair.Sparse.Indices[0])
	}
}

func TestDualGenerator_EmptyInput(t *testing.T) {
	gen := NewDualGenerator(newClient("dense", "http://unused"), newClient("sparse", "http://unused"), 4)

	pairs, err := gen.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, pairs)
}

func TestDualGenerator_EmbedQuery(t *testing.T) {
	dense := denseServer(t)
	defer dense.Close()
	sparse := sparseServer(t)
	defer sparse.Close()

	gen := NewDualGenerator(newClient("dense", dense.URL), newClient("sparse", sparse.URL), 32)

	pair, err := gen.EmbedQuery(context.Background(), "what is hybrid search?")
	require.NoError(t, err)
	assert.Len(t, pair.Dense, 1)
	assert.False(t, pair.Sparse.IsZero())
}

func TestBackendClient_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: []embedRow{
			{Index: 0, Embedding: []float32{0.1}},
		}})
	}))
	defer srv.Close()

	client := newClient("dense", srv.URL)
	rows, err := client.embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestBackendClient_ExhaustedRetriesReturnEmbeddingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newClient("dense", srv.URL)
	_, err := client.embed(context.Background(), []string{"hello"})
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeEmbedding, derr.Code)
}

func TestBackendClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	assert.NoError(t, newClient("dense", srv.URL).Health(context.Background()))

	srv.Close()
	assert.Error(t, newClient("dense", srv.URL).Health(context.Background()))
}

func TestBackendClient_CountMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: []embedRow{
			{Index: 0, Embedding: []float32{0.1}},
		}})
	}))
	defer srv.Close()

	client := newClient("dense", srv.URL)
	_, err := client.embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}
