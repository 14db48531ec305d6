package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// addJSONFlag registers the shared --json flag describing what gets printed.
func addJSONFlag(cmd *cobra.Command, target *bool, what string) {
	cmd.Flags().BoolVar(target, "json", false, "Print "+what+" as JSON")
}

func newJSONEncoder(w io.Writer, indent bool) *json.Encoder {
	enc := json.NewEncoder(w)
	// Source paths and preset names are printed verbatim, not as &.
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc
}

// writeJSON prints v as one indented document.
func writeJSON(cmd *cobra.Command, v any) error {
	return newJSONEncoder(cmd.OutOrStdout(), true).Encode(v)
}

// writeJSONLine prints v on a single line so streamed output stays one
// record per line.
func writeJSONLine(cmd *cobra.Command, v any) error {
	return newJSONEncoder(cmd.OutOrStdout(), false).Encode(v)
}
