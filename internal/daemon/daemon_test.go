package daemon

import (
	"context"
	"testing"

	"bindery/internal/cache"
	"bindery/internal/logging"
	"bindery/internal/server"
	"bindery/internal/testsupport"
	"bindery/internal/upstream"
)

type noopConverter struct{}

func (noopConverter) Convert(context.Context, string, string) error { return nil }

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	srv := server.New(cfg, cache.NewStore(cfg, logger), upstream.New(cfg, logger), noopConverter{}, nil, logger)
	d, err := New(cfg, srv, nil, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return d
}

func TestStartStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	newServer := func() *server.Server {
		return server.New(cfg, cache.NewStore(cfg, logger), upstream.New(cfg, logger), noopConverter{}, nil, logger)
	}

	first, err := New(cfg, newServer(), nil, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, newServer(), nil, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestStartTwiceFails(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("starting a running daemon should fail")
	}
}
