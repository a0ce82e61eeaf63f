package middleware

import (
	"context"
	"net/http"

	"github.com/sailor-labs/sailor/internal/domain"
)

const UserIDKey contextKey = "user_id"

// UserID resolves the calling user from the X-User-ID header, falling back
// to the shared default identity until real authentication exists.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = domain.DefaultUserID
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID returns the user ID from context.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
