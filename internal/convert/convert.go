package convert

import (
	"context"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"bindery/internal/logging"
	"bindery/internal/services"
)

// Job converts a populated working directory into a single PDF artifact.
type Job struct {
	dpi    int
	logger *slog.Logger
}

// NewJob constructs a conversion job writing pages at the given resolution.
func NewJob(dpi int, logger *slog.Logger) *Job {
	if dpi <= 0 {
		dpi = 100
	}
	return &Job{
		dpi:    dpi,
		logger: logging.NewComponentLogger(logger, "convert"),
	}
}

// Run walks the working directory's chapter subdirectories in lexicographic
// order, decodes each chapter's pages, and assembles the result into a PDF
// at artifactPath. A missing working directory or an absence of chapter
// subdirectories is a precondition failure; individual undecodable pages are
// dropped with a warning.
func (j *Job) Run(ctx context.Context, workDir, artifactPath string) error {
	info, err := os.Stat(workDir)
	if err != nil || !info.IsDir() {
		return services.Wrap(services.ErrPrecondition, "convert", "run", "working directory missing", err)
	}

	chapters, err := listChapters(workDir)
	if err != nil {
		return err
	}
	if len(chapters) == 0 {
		return services.Wrap(services.ErrPrecondition, "convert", "run", "no chapter directories", nil)
	}

	var pages []image.Image
	for _, chapter := range chapters {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrPrecondition, "convert", "run", "conversion cancelled", ctx.Err())
		}

		chapterDir := filepath.Join(workDir, chapter)
		paths, err := CollectPages(chapterDir, j.logger)
		if err != nil {
			return err
		}

		decoded := LoadPages(ctx, paths, j.logger)
		if len(decoded) < len(paths) {
			j.logger.Warn("chapter decoded with losses",
				logging.String("chapter", chapter),
				logging.Int("pages", len(paths)),
				logging.Int("decoded", len(decoded)))
		}
		pages = append(pages, decoded...)
	}

	j.logger.Info("assembling document",
		logging.Int("chapters", len(chapters)),
		logging.Int("pages", len(pages)),
		logging.String("artifact", artifactPath))

	return WritePDF(pages, artifactPath, j.dpi)
}

func listChapters(workDir string) ([]string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "convert", "run", "read working directory", err)
	}
	chapters := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			chapters = append(chapters, entry.Name())
		}
	}
	sort.Strings(chapters)
	return chapters, nil
}
