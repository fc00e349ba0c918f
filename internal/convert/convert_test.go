package convert

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"bindery/internal/logging"
	"bindery/internal/services"
	"bindery/internal/testsupport"
)

func pageCount(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	count, err := api.PageCount(f, nil)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	return count
}

func TestJobAssemblesChaptersInOrder(t *testing.T) {
	workDir := t.TempDir()
	testsupport.WritePage(t, filepath.Join(workDir, "1"), "1.png")
	testsupport.WritePage(t, filepath.Join(workDir, "1"), "2.png")
	testsupport.WritePage(t, filepath.Join(workDir, "2"), "1.png")

	artifact := filepath.Join(t.TempDir(), "out", "content.pdf")
	job := NewJob(100, logging.NewNop())
	if err := job.Run(context.Background(), workDir, artifact); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := pageCount(t, artifact); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
}

func TestJobMissingWorkingDirectory(t *testing.T) {
	job := NewJob(100, logging.NewNop())
	err := job.Run(context.Background(), filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "content.pdf"))
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestJobNoChapters(t *testing.T) {
	workDir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(workDir, "stray.txt"), "not a chapter")

	job := NewJob(100, logging.NewNop())
	err := job.Run(context.Background(), workDir, filepath.Join(t.TempDir(), "content.pdf"))
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestJobCorruptPageShrinksArtifact(t *testing.T) {
	workDir := t.TempDir()
	testsupport.WritePage(t, filepath.Join(workDir, "1"), "1.png")
	testsupport.WriteCorruptPage(t, filepath.Join(workDir, "1"), "2.png")
	testsupport.WritePage(t, filepath.Join(workDir, "1"), "3.png")

	artifact := filepath.Join(t.TempDir(), "content.pdf")
	job := NewJob(100, logging.NewNop())
	if err := job.Run(context.Background(), workDir, artifact); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := pageCount(t, artifact); got != 2 {
		t.Fatalf("expected 2 pages after dropping corrupt page, got %d", got)
	}
}

func TestJobNoDecodablePages(t *testing.T) {
	workDir := t.TempDir()
	testsupport.WriteCorruptPage(t, filepath.Join(workDir, "1"), "1.png")

	artifact := filepath.Join(t.TempDir(), "content.pdf")
	job := NewJob(100, logging.NewNop())
	err := job.Run(context.Background(), workDir, artifact)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if _, statErr := os.Stat(artifact); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatal("no artifact file should exist after a failed assembly")
	}
}

func TestJobEmptyChapterTolerated(t *testing.T) {
	workDir := t.TempDir()
	testsupport.WritePage(t, filepath.Join(workDir, "1"), "1.png")
	if err := os.MkdirAll(filepath.Join(workDir, "2"), 0o755); err != nil {
		t.Fatalf("create empty chapter: %v", err)
	}

	artifact := filepath.Join(t.TempDir(), "content.pdf")
	job := NewJob(100, logging.NewNop())
	if err := job.Run(context.Background(), workDir, artifact); err != nil {
		t.Fatalf("empty chapter should be tolerated: %v", err)
	}
	if got := pageCount(t, artifact); got != 1 {
		t.Fatalf("expected 1 page, got %d", got)
	}
}

func TestWritePDFNoPages(t *testing.T) {
	err := WritePDF(nil, filepath.Join(t.TempDir(), "content.pdf"), 100)
	if !errors.Is(err, services.ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestWritePDFReleasesPages(t *testing.T) {
	pages := []image.Image{image.NewRGBA(image.Rect(0, 0, 4, 4))}
	if err := WritePDF(pages, filepath.Join(t.TempDir(), "content.pdf"), 100); err != nil {
		t.Fatalf("WritePDF returned error: %v", err)
	}
	if pages[0] != nil {
		t.Fatal("expected page reference to be released after write")
	}
}
