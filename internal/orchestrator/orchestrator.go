// Package orchestrator runs the failure-prone fetch+convert sequence as an
// isolated subordinate process. A crash or hang in the subordinate never
// takes down the caller, and the identifier's working directory is removed
// unconditionally when the attempt ends.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/workdir"
)

// Executor abstracts subordinate process execution.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// Orchestrator spawns <binary> convert <id> <artifact> and maps its exit
// status to success or an aggregated subordinate failure carrying the
// diagnostic tail of its stderr.
type Orchestrator struct {
	binary   string
	timeout  time.Duration
	workRoot string
	exec     Executor
	logger   *slog.Logger
}

// New constructs an orchestrator from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return NewWithExecutor(cfg, logger, nil)
}

// NewWithExecutor allows injecting a custom executor for testing.
func NewWithExecutor(cfg *config.Config, logger *slog.Logger, executor Executor) *Orchestrator {
	if executor == nil {
		executor = commandExecutor{}
	}
	return &Orchestrator{
		binary:   strings.TrimSpace(cfg.Convert.Binary),
		timeout:  time.Duration(cfg.Convert.Timeout) * time.Second,
		workRoot: cfg.Paths.WorkDir,
		exec:     executor,
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// Convert runs the subordinate fetch+convert process for id, writing the
// artifact to artifactPath. The identifier's working directory is deleted
// before return on every path, success or failure.
func (o *Orchestrator) Convert(ctx context.Context, id, artifactPath string) error {
	if o.binary == "" {
		return services.Wrap(services.ErrConfiguration, "orchestrator", "convert", "convert binary not configured", nil)
	}
	if err := services.ValidateIdentifier(id); err != nil {
		return err
	}

	defer workdir.Remove(o.workRoot, id, o.logger)

	runCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	started := time.Now()
	o.logger.InfoContext(ctx, "spawning subordinate convert",
		logging.String(logging.FieldIdentifier, id),
		logging.String("artifact", artifactPath))

	_, err := o.exec.Run(runCtx, o.binary, []string{"convert", id, artifactPath})
	elapsed := time.Since(started)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrSubordinate, "orchestrator", "convert",
				fmt.Sprintf("subordinate timed out after %s", o.timeout), err)
		}
		type exitCoder interface{ ExitCode() int }
		var exitErr exitCoder
		if errors.As(err, &exitErr) {
			detail := fmt.Sprintf("subordinate exited with status %d", exitErr.ExitCode())
			if diag := diagnosticTail(err); diag != "" {
				detail = detail + ": " + diag
			}
			return services.Wrap(services.ErrSubordinate, "orchestrator", "convert", detail, err)
		}
		return services.Wrap(services.ErrSubordinate, "orchestrator", "convert", "spawn subordinate", err)
	}

	o.logger.InfoContext(ctx, "subordinate convert finished",
		logging.String(logging.FieldIdentifier, id),
		logging.Duration("elapsed", elapsed))
	return nil
}

const diagnosticTailBytes = 4096

func diagnosticTail(err error) string {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ""
	}
	text := strings.TrimSpace(string(exitErr.Stderr))
	if len(text) > diagnosticTailBytes {
		text = text[len(text)-diagnosticTailBytes:]
	}
	return text
}
