package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
)

// jsonErrorPayload is the structured error object JSON-mode commands emit to
// stdout. It does not replace the plain-text diagnostic: main() still
// prints its one-line "error:" message to stderr for every failing command,
// JSON mode included.
type jsonErrorPayload struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// emitJSONError writes err as a jsonErrorPayload to cmd's stdout when
// jsonOutput is set. The caller still returns err so main() maps it to the
// correct exit code.
func emitJSONError(cmd *cobra.Command, jsonOutput bool, err error) {
	if !jsonOutput || err == nil {
		return
	}

	payload := jsonErrorPayload{
		Kind:    string(ixerr.GetKind(err)),
		Message: err.Error(),
	}
	if ixErr, ok := err.(*ixerr.Error); ok {
		payload.Details = ixErr.Details
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
