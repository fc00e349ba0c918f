package convert

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"bindery/internal/logging"
	"bindery/internal/services"
)

// CollectPages lists the page files in a chapter directory and returns them
// in reading order. When every filename stem parses as an integer the pages
// are sorted numerically; if even one stem fails to parse the whole set falls
// back to lexicographic filename order. The two orderings are never mixed.
// An empty chapter yields an empty slice, not an error.
func CollectPages(chapterDir string, logger *slog.Logger) ([]string, error) {
	entries, err := os.ReadDir(chapterDir)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, "convert", "collect pages", "read chapter directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		if logger != nil {
			logger.Warn("chapter has no page files", logging.String("chapter", chapterDir))
		}
		return nil, nil
	}

	indexes := make(map[string]int, len(names))
	numeric := true
	for _, name := range names {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		value, err := strconv.Atoi(stem)
		if err != nil {
			numeric = false
			break
		}
		indexes[name] = value
	}

	if numeric {
		sort.Slice(names, func(i, j int) bool { return indexes[names[i]] < indexes[names[j]] })
	} else {
		sort.Strings(names)
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(chapterDir, name)
	}
	return paths, nil
}
