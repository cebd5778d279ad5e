package ixerr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI stderr output: a concise one-line
// message followed by detail lines.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		e = Wrap(KindIO, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))
	for k, v := range e.Details {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
	}
	return sb.String()
}

// jsonError is the JSON representation of an error, matching the structured
// error object emitted in --json mode.
type jsonError struct {
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Severity  string            `json:"severity"`
	Details   map[string]string `json:"details,omitempty"`
	Cause     string            `json:"cause,omitempty"`
	Retryable bool              `json:"retryable"`
	ExitCode  int               `json:"exit_code"`
}

// FormatJSON returns a JSON representation of the error, suitable for
// machine-readable CLI output.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	e, ok := err.(*Error)
	if !ok {
		e = Wrap(KindIO, err)
	}

	je := jsonError{
		Kind:      string(e.Kind),
		Message:   e.Message,
		Severity:  string(e.Severity),
		Details:   e.Details,
		Retryable: e.Retryable,
		ExitCode:  ExitCode(e.Kind),
	}
	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog formats an error as key-value pairs suitable for slog
// attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_kind": string(e.Kind),
		"message":    e.Message,
		"severity":   string(e.Severity),
		"retryable":  e.Retryable,
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	for k, v := range e.Details {
		result["detail_"+k] = v
	}
	return result
}
