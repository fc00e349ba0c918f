package fetcher

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/testsupport"
)

type recordingExecutor struct {
	binary string
	args   []string
	err    error
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	r.binary = binary
	r.args = args
	return nil, r.err
}

func TestFetchInvokesCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fetcher.Command = "album-fetch"
	executor := &recordingExecutor{}
	client := NewWithExecutor(cfg, logging.NewNop(), executor)

	dest := cfg.WorkDirFor("555")
	if err := client.Fetch(context.Background(), "555", dest); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if executor.binary != "album-fetch" {
		t.Fatalf("unexpected binary %q", executor.binary)
	}
	if len(executor.args) != 2 || executor.args[0] != "555" || executor.args[1] != dest {
		t.Fatalf("unexpected args %v", executor.args)
	}
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		t.Fatalf("destination directory should exist: %v", err)
	}
}

func TestFetchFailureIsSubordinateError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	executor := &recordingExecutor{err: errors.New("boom")}
	client := NewWithExecutor(cfg, logging.NewNop(), executor)

	err := client.Fetch(context.Background(), "555", cfg.WorkDirFor("555"))
	if !errors.Is(err, services.ErrSubordinate) {
		t.Fatalf("expected subordinate error, got %v", err)
	}
}

func TestFetchRejectsBadIdentifier(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := NewWithExecutor(cfg, logging.NewNop(), &recordingExecutor{})

	if err := client.Fetch(context.Background(), "../etc", cfg.Paths.WorkDir); err == nil {
		t.Fatal("expected error for path-hostile identifier")
	}
}

func TestFetchRequiresCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fetcher.Command = ""
	client := NewWithExecutor(cfg, logging.NewNop(), &recordingExecutor{})

	err := client.Fetch(context.Background(), "555", cfg.WorkDirFor("555"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFetchRealCommandCapturesStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fetcher.Command = testsupport.StubBinary(t, "album-fetch-fail", `echo "remote refused connection" >&2
exit 3`)
	client := New(cfg, logging.NewNop())

	err := client.Fetch(context.Background(), "555", cfg.WorkDirFor("555"))
	if !errors.Is(err, services.ErrSubordinate) {
		t.Fatalf("expected subordinate error, got %v", err)
	}
	if !strings.Contains(err.Error(), "remote refused connection") {
		t.Fatalf("expected stderr diagnostics in error, got %v", err)
	}
}
