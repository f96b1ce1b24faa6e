package vload_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvka-141/vload/pkg/vload"
)

func TestExitCodeForError_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, vload.ExitSuccess},
		{"usage", vload.ErrUsage, vload.ExitUsageError},
		{"invalid config", vload.ErrInvalidConfig, vload.ExitConfigError},
		{"connection", vload.ErrConnection, vload.ExitConnectionError},
		{"consistency", vload.ErrConsistency, vload.ExitConsistencyError},
		{"execution failed", vload.ErrExecutionFailed, vload.ExitExecutionFailed},
		{"relation missing", vload.ErrRelationMissing, vload.ExitExecutionFailed},
		{"poisoned", vload.ErrTransactionPoisoned, vload.ExitExecutionFailed},
		{"wrapped config", fmt.Errorf("copy failed: %w", vload.ErrInvalidConfig), vload.ExitConfigError},
		{"joined keeps first match", errors.Join(vload.ErrUsage, vload.ErrInvalidConfig), vload.ExitUsageError},
		{"general error", errors.New("something went wrong"), vload.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vload.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeForError_StringPatterns(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"connection refused", errors.New("dial tcp 127.0.0.1:5433: connect: connection refused"), vload.ExitConnectionError},
		{"no such host", errors.New("lookup vertica.invalid: no such host"), vload.ExitConnectionError},
		{"unknown flag", errors.New("unknown flag: --foo"), vload.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x' in -x"), vload.ExitUsageError},
		{"accepts args", errors.New("accepts 1 arg(s), received 0"), vload.ExitUsageError},
		{"invalid argument", errors.New(`invalid argument "abc" for "-p, --port" flag`), vload.ExitUsageError},
		{"mutually exclusive", errors.New("if any flags in the group [sql file] are set none of the others can be; [file sql] were all set"), vload.ExitUsageError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vload.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
