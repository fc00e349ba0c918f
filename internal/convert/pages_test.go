package convert

import (
	"path/filepath"
	"testing"

	"bindery/internal/logging"
	"bindery/internal/testsupport"
)

func TestCollectPagesNumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10.webp", "2.webp", "1.webp"} {
		testsupport.WriteFile(t, filepath.Join(dir, name), "x")
	}

	paths, err := CollectPages(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("CollectPages returned error: %v", err)
	}

	want := []string{"1.webp", "2.webp", "10.webp"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(paths))
	}
	for i, w := range want {
		if filepath.Base(paths[i]) != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, filepath.Base(paths[i]))
		}
	}
}

func TestCollectPagesLexicographicFallback(t *testing.T) {
	dir := t.TempDir()
	// One non-numeric stem forces full lexicographic order, never a mix.
	for _, name := range []string{"10.webp", "2.webp", "cover.webp"} {
		testsupport.WriteFile(t, filepath.Join(dir, name), "x")
	}

	paths, err := CollectPages(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("CollectPages returned error: %v", err)
	}

	want := []string{"10.webp", "2.webp", "cover.webp"}
	for i, w := range want {
		if filepath.Base(paths[i]) != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, filepath.Base(paths[i]))
		}
	}
}

func TestCollectPagesEmptyChapter(t *testing.T) {
	paths, err := CollectPages(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("empty chapter should not error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no pages, got %d", len(paths))
	}
}

func TestCollectPagesIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "1.png"), "x")
	testsupport.WriteFile(t, filepath.Join(dir, "nested", "2.png"), "x")

	paths, err := CollectPages(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("CollectPages returned error: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "1.png" {
		t.Fatalf("expected only top-level page, got %v", paths)
	}
}

func TestCollectPagesMissingDirectory(t *testing.T) {
	if _, err := CollectPages(filepath.Join(t.TempDir(), "absent"), logging.NewNop()); err == nil {
		t.Fatal("expected error for missing chapter directory")
	}
}
