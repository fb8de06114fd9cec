package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrExec,
		ErrSSH,
		ErrParse,
		ErrTerminal,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Interval too short",
			suggestion: "Use an interval of at least 1s",
		},
		{
			name:       "exec error",
			code:       ErrExec,
			message:    "'scontrol' not found in PATH",
			suggestion: "Run sgpu on a cluster login node",
		},
		{
			name:       "terminal error",
			code:       ErrTerminal,
			message:    "stdout is not a terminal",
			suggestion: "Use 'sgpu snapshot' for non-interactive output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
		notExpected   []string
	}{
		{
			name:          "basic error formatting",
			err:           New(ErrConfig, "Invalid configuration", "Check .sgpu.yaml syntax"),
			expectedParts: []string{"✗", "Invalid configuration", "Check .sgpu.yaml syntax"},
		},
		{
			name:          "error without suggestion",
			err:           New(ErrExec, "Command failed", ""),
			expectedParts: []string{"Command failed"},
			notExpected:   []string{"\n\n  \n"},
		},
		{
			name:          "error with cause",
			err:           WrapWithCode(fmt.Errorf("exit status 1"), ErrExec, "scontrol failed", ""),
			expectedParts: []string{"scontrol failed", "exit status 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()

			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
			for _, part := range tt.notExpected {
				assert.NotContains(t, output, part)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("signal: killed")
	wrapped := Wrap(cause, "status command aborted")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrExec, wrapped.Code)
	assert.Equal(t, "status command aborted", wrapped.Message)
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := WrapWithCode(cause, ErrParse, "Parse failed", "")

	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, cause, wrapped.Unwrap())

	var sgErr *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &sgErr))
	assert.Equal(t, ErrParse, sgErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrSSH))
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", err), ErrConfig))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("connection timed out after 10s"),
		ErrSSH,
		"Can't reach login node",
		"Check the ssh_host setting",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "✗"))
	assert.Contains(t, lines[0], "Can't reach login node")
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantMsg string
	}{
		{name: "zero exit code", code: 0, wantMsg: "exit code 0"},
		{name: "non-zero exit code", code: 1, wantMsg: "exit code 1"},
		{name: "signal exit code", code: 137, wantMsg: "exit code 137"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewExitError(tt.code)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOk   bool
	}{
		{name: "ExitError returns code", err: NewExitError(42), wantCode: 42, wantOk: true},
		{name: "wrapped ExitError", err: fmt.Errorf("poll: %w", NewExitError(3)), wantCode: 3, wantOk: true},
		{name: "standard error", err: errors.New("standard error")},
		{name: "nil error", err: nil},
		{name: "structured Error", err: New(ErrExec, "test", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := GetExitCode(tt.err)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "structured", err: New(ErrExec, "scontrol exited with code 1", "check slurmctld"), want: "scontrol exited with code 1"},
		{name: "wrapped structured", err: fmt.Errorf("poll: %w", New(ErrSSH, "Can't reach 'login1'", "")), want: "Can't reach 'login1'"},
		{name: "multi-line plain", err: errors.New("first line\nsecond line"), want: "first line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summary(tt.err))
		})
	}
}
