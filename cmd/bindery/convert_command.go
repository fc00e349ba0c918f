package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bindery/internal/convert"
	"bindery/internal/fetcher"
	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/workdir"
)

// newConvertCommand builds the isolated fetch+convert entry point. The
// daemon spawns this as `bindery convert <id> <output.pdf>`; exit code 0
// means the artifact was written, anything else is a failure with detail on
// stderr. The identifier's working directory is removed on every exit path.
func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <id> <output.pdf>",
		Short: "Fetch a comic and convert it to a PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			id := args[0]
			artifactPath := args[1]
			if err := services.ValidateIdentifier(id); err != nil {
				return err
			}

			// Diagnostics go to stderr so the parent process can capture
			// them from a failed run.
			logger, err := logging.New(logging.Options{
				Level:            cfg.Logging.Level,
				Format:           "console",
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if ctx.configWarning != "" {
				logger.Warn(ctx.configWarning)
			}

			runCtx := services.WithIdentifier(cmd.Context(), id)
			workPath := cfg.WorkDirFor(id)
			defer workdir.Remove(cfg.Paths.WorkDir, id, logger)

			client := fetcher.New(cfg, logger)
			if err := client.Fetch(runCtx, id, workPath); err != nil {
				return err
			}

			job := convert.NewJob(cfg.Convert.DPI, logger)
			return job.Run(runCtx, workPath, artifactPath)
		},
	}
}
