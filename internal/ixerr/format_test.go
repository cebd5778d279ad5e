package ixerr

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_BasicError(t *testing.T) {
	err := New(KindNotFound, "entity 'dec-7' not found", nil)

	result := FormatForCLI(err)

	assert.Contains(t, result, "entity 'dec-7' not found")
}

func TestFormatForCLI_WithDetails(t *testing.T) {
	err := Ambiguous("dec-7", []string{"dec-70", "dec-71"})

	result := FormatForCLI(err)

	assert.Contains(t, result, "ambiguous id")
	assert.Contains(t, result, "dec-70")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := New(KindNotFound, "file not found", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "should be concise")
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := New(KindNotFound, "entity not found", nil).
		WithDetail("id", "dec-7")

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, string(KindNotFound), result["kind"])
	assert.Equal(t, "entity not found", result["message"])
	assert.Equal(t, float64(3), result["exit_code"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dec-7", details["id"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(KindDatabase, "operation failed", cause)

	data, jsonErr := FormatJSON(err)
	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}
