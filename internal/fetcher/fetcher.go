// Package fetcher invokes the external album-fetch command that populates a
// working directory with raw page files for one comic.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// Executor abstracts command execution for the fetch client.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec. Stderr is captured on the
// returned *exec.ExitError for diagnostics.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// Client runs the configured fetch command as <command> <id> <directory>.
type Client struct {
	command string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// New constructs a fetch client from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return NewWithExecutor(cfg, logger, nil)
}

// NewWithExecutor allows injecting a custom executor for testing.
func NewWithExecutor(cfg *config.Config, logger *slog.Logger, executor Executor) *Client {
	if executor == nil {
		executor = commandExecutor{}
	}
	return &Client{
		command: strings.TrimSpace(cfg.Fetcher.Command),
		timeout: time.Duration(cfg.Fetcher.Timeout) * time.Second,
		exec:    executor,
		logger:  logging.NewComponentLogger(logger, "fetcher"),
	}
}

// Fetch downloads the raw pages for id into destDir, creating the directory
// first. The command's runtime is bounded by the configured timeout; failure
// diagnostics from its stderr are folded into the returned error.
func (c *Client) Fetch(ctx context.Context, id, destDir string) error {
	if c.command == "" {
		return services.Wrap(services.ErrConfiguration, "fetcher", "fetch", "fetch command not configured", nil)
	}
	if err := services.ValidateIdentifier(id); err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrWrite, "fetcher", "fetch", "create working directory", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	c.logger.InfoContext(ctx, "fetching album",
		logging.String(logging.FieldIdentifier, id),
		logging.String("dest", destDir))

	_, err := c.exec.Run(runCtx, c.command, []string{id, destDir})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrSubordinate, "fetcher", "fetch",
				fmt.Sprintf("fetch command timed out after %s", c.timeout), err)
		}
		type exitCoder interface{ ExitCode() int }
		var exitErr exitCoder
		if errors.As(err, &exitErr) {
			detail := fmt.Sprintf("fetch command failed (exit status %d)", exitErr.ExitCode())
			if diag := extractStderr(err); diag != "" {
				detail = detail + ": " + diag
			}
			return services.Wrap(services.ErrSubordinate, "fetcher", "fetch", detail, err)
		}
		return services.Wrap(services.ErrSubordinate, "fetcher", "fetch", "run fetch command", err)
	}

	c.logger.InfoContext(ctx, "fetch complete",
		logging.String(logging.FieldIdentifier, id),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

const diagnosticTailBytes = 2048

// extractStderr pulls the stderr tail from an exec failure for diagnostics.
func extractStderr(err error) string {
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
