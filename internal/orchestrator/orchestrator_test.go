package orchestrator

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/testsupport"
	"bindery/internal/workdir"
)

func TestConvertInvokesSubordinate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Convert.Binary = testsupport.StubBinary(t, "bindery-ok", "exit 0")
	orch := New(cfg, logging.NewNop())

	artifact := cfg.EntryDir("777") + "/content.pdf"
	if err := orch.Convert(context.Background(), "777", artifact); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
}

func TestConvertSurfacesDiagnostics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Convert.Binary = testsupport.StubBinary(t, "bindery-fail", `echo "network timeout" >&2
exit 1`)
	orch := New(cfg, logging.NewNop())

	err := orch.Convert(context.Background(), "777", cfg.EntryDir("777")+"/content.pdf")
	if !errors.Is(err, services.ErrSubordinate) {
		t.Fatalf("expected subordinate error, got %v", err)
	}
	if !strings.Contains(err.Error(), "network timeout") {
		t.Fatalf("expected diagnostic text in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 1") {
		t.Fatalf("expected exit status in error, got %v", err)
	}
}

func TestConvertAlwaysRemovesWorkingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Convert.Binary = testsupport.StubBinary(t, "bindery-fail", "exit 1")
	orch := New(cfg, logging.NewNop())

	const id = "888"
	if _, err := workdir.Create(cfg.Paths.WorkDir, id); err != nil {
		t.Fatalf("create working directory: %v", err)
	}
	testsupport.WriteFile(t, cfg.WorkDirFor(id)+"/1/1.png", "partial")

	if err := orch.Convert(context.Background(), id, cfg.EntryDir(id)+"/content.pdf"); err == nil {
		t.Fatal("expected subordinate failure")
	}
	if _, err := os.Stat(cfg.WorkDirFor(id)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("working directory must be removed after a failed attempt")
	}
}

func TestConvertWorkingDirectoryRemovedOnSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Convert.Binary = testsupport.StubBinary(t, "bindery-ok", "exit 0")
	orch := New(cfg, logging.NewNop())

	const id = "999"
	if _, err := workdir.Create(cfg.Paths.WorkDir, id); err != nil {
		t.Fatalf("create working directory: %v", err)
	}

	if err := orch.Convert(context.Background(), id, cfg.EntryDir(id)+"/content.pdf"); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	if _, err := os.Stat(cfg.WorkDirFor(id)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("working directory must be removed after success")
	}
}

func TestConvertMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Convert.Binary = ""
	orch := New(cfg, logging.NewNop())

	err := orch.Convert(context.Background(), "1", "out.pdf")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConvertRejectsBadIdentifier(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	orch := New(cfg, logging.NewNop())

	if err := orch.Convert(context.Background(), "..", "out.pdf"); err == nil {
		t.Fatal("expected error for path-hostile identifier")
	}
}

type fakeExecutor struct {
	args []string
}

func (f *fakeExecutor) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	f.args = args
	return nil, nil
}

func TestConvertArgumentShape(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	executor := &fakeExecutor{}
	orch := NewWithExecutor(cfg, logging.NewNop(), executor)

	if err := orch.Convert(context.Background(), "321", "/tmp/a/content.pdf"); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	want := []string{"convert", "321", "/tmp/a/content.pdf"}
	if len(executor.args) != len(want) {
		t.Fatalf("unexpected args %v", executor.args)
	}
	for i := range want {
		if executor.args[i] != want[i] {
			t.Fatalf("arg %d: expected %q, got %q", i, want[i], executor.args[i])
		}
	}
}
