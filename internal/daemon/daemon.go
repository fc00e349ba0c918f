// Package daemon owns the long-running service process: single-instance
// locking, the startup sweep of stale working directories, and the HTTP
// server lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"bindery/internal/config"
	"bindery/internal/history"
	"bindery/internal/logging"
	"bindery/internal/server"
	"bindery/internal/workdir"
)

// staleWorkdirMaxAge is how old an abandoned working directory must be
// before the startup sweep removes it. Anything younger may belong to a
// conversion still in flight from a previous process.
const staleWorkdirMaxAge = 24 * time.Hour

// Daemon ties the HTTP server to process-level concerns.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *server.Server
	journal *history.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, srv *server.Server, journal *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || srv == nil || logger == nil {
		return nil, errors.New("daemon requires config, server, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "binderyd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		server:   srv,
		journal:  journal,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock, sweeps stale working
// directories, and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another binderyd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	result := workdir.CleanStale(runCtx, d.cfg.Paths.WorkDir, staleWorkdirMaxAge, d.logger)
	if len(result.Removed) > 0 {
		d.logger.Info("swept stale working directories", logging.Int("removed", len(result.Removed)))
	}

	if err := d.server.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("binderyd started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()))
	return nil
}

// Stop shuts down the server and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("binderyd stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
