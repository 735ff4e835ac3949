package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation error", ValidationError("invalid input").Build(), 2},
		{"config error", ConfigError("bad config").Build(), 7},
		{"mail error", MailError("smtp down").Build(), 8},
		{"filesystem error", FileSystemError("disk full").Build(), 11},
		{"build error", BuildError("build failed").Build(), 11},
		{"internal error", InternalError("boom").Build(), 10},
		{"unclassified error", errors.New("unknown error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tt.err); got != tt.expected {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	err := WrapError(errors.New("permission denied"), CategoryFileSystem, "write page failed").Fatal().Build()

	quiet := NewCLIErrorAdapter(false, slog.Default())
	if got := quiet.FormatError(err); got != "Error: write page failed (filesystem)" {
		t.Errorf("unexpected non-verbose format: %q", got)
	}

	verbose := NewCLIErrorAdapter(true, slog.Default())
	if got := verbose.FormatError(err); !strings.Contains(got, "permission denied") {
		t.Errorf("expected verbose format to include cause, got %q", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var stderr, logs bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.stderr = &stderr
	exitCode := -1
	adapter.exit = func(code int) { exitCode = code }

	adapter.HandleError(BuildError("stage failed").WithContext("stage", "rewrite_pages").Build())

	if exitCode != 11 {
		t.Errorf("expected exit code 11, got %d", exitCode)
	}
	if !strings.Contains(stderr.String(), "stage failed") {
		t.Errorf("expected stderr message, got %q", stderr.String())
	}
	if !strings.Contains(logs.String(), "stage=rewrite_pages") {
		t.Errorf("expected context in logs, got %q", logs.String())
	}
}
