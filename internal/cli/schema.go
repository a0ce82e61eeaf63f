// Package cli provides shared CLI utilities for saild.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// helpJSONFlag is the flag that dumps a machine-readable command schema
// instead of running the command.
const helpJSONFlag = "help-json"

// FlagSchema describes one command flag in the JSON help output.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSchema describes a command and its subcommand tree in the JSON
// help output.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

// GenerateSchema builds the schema for a command, descending into visible
// subcommands. The built-in help command and hidden commands are left out.
func GenerateSchema(cmd *cobra.Command) CommandSchema {
	schema := CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
	}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == helpJSONFlag || f.Name == "help" || f.Hidden {
			return
		}
		schema.Flags = append(schema.Flags, flagSchema(f))
	})

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" {
			continue
		}
		schema.Subcommands = append(schema.Subcommands, GenerateSchema(sub))
	}

	return schema
}

func flagSchema(f *pflag.Flag) FlagSchema {
	_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
	return FlagSchema{
		Name:        f.Name,
		Shorthand:   f.Shorthand,
		Type:        f.Value.Type(),
		Default:     f.DefValue,
		Description: f.Usage,
		Required:    required,
	}
}

// PrintSchema writes the command schema to stdout as indented JSON and
// exits the process.
func PrintSchema(cmd *cobra.Command) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(GenerateSchema(cmd)); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// AddHelpJSONFlag registers --help-json on a command and its subcommands.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// CheckHelpJSON scans os.Args for --help-json and, when present, prints the
// schema of the addressed subcommand and exits. Runs before cmd.Execute()
// so the dump works even when required args are missing.
func CheckHelpJSON(rootCmd *cobra.Command) {
	for i, arg := range os.Args[1:] {
		if arg == "--" {
			return
		}
		if arg == "--"+helpJSONFlag {
			PrintSchema(resolveCommand(rootCmd, os.Args[1:i+1]))
		}
	}
}

// resolveCommand walks the leading args down the subcommand tree, stopping
// at the deepest match.
func resolveCommand(cmd *cobra.Command, args []string) *cobra.Command {
	for len(args) > 0 {
		var next *cobra.Command
		for _, sub := range cmd.Commands() {
			if sub.Name() == args[0] || sub.HasAlias(args[0]) {
				next = sub
				break
			}
		}
		if next == nil {
			return cmd
		}
		cmd = next
		args = args[1:]
	}
	return cmd
}
