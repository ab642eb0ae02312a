package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/semfilter/internal/filterir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.SuccessWithSession(map[string]string{"result": "success"}, "s-1"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s-1", resp.Session)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeBadInput, "bad schema", []string{"columns[0]"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBadInput, resp.Error.Code)
	assert.Equal(t, "bad schema", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("E001", "compilation failed", map[string]string{"file": "spec.json"}))
			assert.Contains(t, buf.String(), "Error [E001]: compilation failed")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details:")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_FilterErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	ferr := &filterir.Error{
		Code:    filterir.ErrCodeTokenInvalidOrExpired,
		Message: "token expired",
		Reason:  "token_expired",
	}
	err := formatter.FilterError(fmt.Errorf("confirm: %w", ferr))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TOKEN_INVALID_OR_EXPIRED", resp.Error.Code)
	assert.Equal(t, "token expired", resp.Error.Message)
	assert.Equal(t, "token_expired", resp.Error.Reason)
}

func TestOutputFormatter_FilterErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	err := formatter.FilterError(&filterir.Error{
		Code:    filterir.ErrCodeTokenHashMismatch,
		Message: "filter does not match",
		Reason:  "spec_hash_mismatch",
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Error [TOKEN_HASH_MISMATCH]: filter does not match")
	assert.Contains(t, buf.String(), "Reason: spec_hash_mismatch")
}

func TestOutputFormatter_FilterErrorGeneric(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.FilterError(errors.New("disk on fire"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E001]: disk on fire")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "intent.json")

			assert.Empty(t, buf.String(), "diagnostics never go to stdout")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Processing intent.json")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "x")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	err := WrapExitError(ExitCommandError, "load", errors.New("boom"))
	assert.Equal(t, "load: boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "boom")
}
