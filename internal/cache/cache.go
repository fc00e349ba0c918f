package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/services"
)

const (
	artifactName = "content.pdf"
	metadataName = "meta.json"

	// freeSpaceFloor is the minimum free-space ratio allowed before pruning
	// kicks in regardless of the configured size cap.
	freeSpaceFloor = 0.10
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Store is the directory-per-identifier artifact cache. Each entry holds the
// finished PDF and a metadata record; an entry counts as a hit only when the
// directory, the metadata file, and the artifact are all present.
type Store struct {
	root     string
	maxBytes int64
	logger   *slog.Logger
	statfs   statfsFunc
}

// Entry is the result of a cache lookup.
type Entry struct {
	Hit          bool
	Record       MetadataRecord
	ArtifactPath string
}

// Stats describes current cache usage.
type Stats struct {
	Entries      int            `json:"entries"`
	TotalBytes   int64          `json:"total_bytes"`
	MaxBytes     int64          `json:"max_bytes"`
	FreeBytes    uint64         `json:"free_bytes"`
	TotalFSBytes uint64         `json:"total_fs_bytes"`
	FreeRatio    float64        `json:"free_ratio"`
	Summaries    []EntrySummary `json:"entry_summaries"`
}

// EntrySummary surfaces human-friendly details about one cache entry so the
// CLI can show which comics are currently stored.
type EntrySummary struct {
	Identifier string    `json:"identifier"`
	Title      string    `json:"title,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Complete   bool      `json:"complete"`
}

// NewStore builds the artifact cache rooted at the configured storage
// directory. A zero size cap disables size-based pruning; the free-space
// floor still applies.
func NewStore(cfg *config.Config, logger *slog.Logger) *Store {
	var maxBytes int64
	if cfg.Cache.MaxGiB > 0 {
		maxBytes = int64(cfg.Cache.MaxGiB) * 1024 * 1024 * 1024
	}
	return &Store{
		root:     cfg.Paths.StorageDir,
		maxBytes: maxBytes,
		logger:   logging.NewComponentLogger(logger, "cache"),
		statfs:   realStatfs,
	}
}

// EntryDir returns the directory holding the entry for id.
func (s *Store) EntryDir(id string) string {
	return filepath.Join(s.root, id)
}

// ArtifactPath returns the artifact location for id whether or not the
// entry exists yet.
func (s *Store) ArtifactPath(id string) string {
	return filepath.Join(s.EntryDir(id), artifactName)
}

// Lookup reports whether id is fully materialized. A hit requires the entry
// directory, the metadata file, and the artifact to all be present. A
// missing piece is a miss; a piece that exists but cannot be read or parsed
// is a corrupt-entry error, never a silent miss, so a live artifact is not
// reconverted over.
func (s *Store) Lookup(id string) (Entry, error) {
	if err := services.ValidateIdentifier(id); err != nil {
		return Entry{}, err
	}

	entryDir := s.EntryDir(id)
	info, err := os.Stat(entryDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, nil
		}
		return Entry{}, services.Wrap(services.ErrCorruptEntry, "cache", "lookup", "stat entry directory", err)
	}
	if !info.IsDir() {
		return Entry{}, nil
	}

	artifactPath := s.ArtifactPath(id)
	if _, err := os.Stat(artifactPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, nil
		}
		return Entry{}, services.Wrap(services.ErrCorruptEntry, "cache", "lookup", "stat artifact", err)
	}

	record, err := readMetadata(entryDir)
	if err != nil {
		if errors.Is(err, services.ErrCorruptEntry) {
			return Entry{}, err
		}
		return Entry{}, nil
	}

	return Entry{Hit: true, Record: record, ArtifactPath: artifactPath}, nil
}

// Populate persists the metadata record for id next to its artifact,
// completing the entry. The artifact must already be in place; calling
// Populate without it is a precondition failure.
func (s *Store) Populate(ctx context.Context, id string, record MetadataRecord) error {
	if err := services.ValidateIdentifier(id); err != nil {
		return err
	}

	entryDir := s.EntryDir(id)
	if _, err := os.Stat(s.ArtifactPath(id)); err != nil {
		return services.Wrap(services.ErrPrecondition, "cache", "populate", "artifact missing", err)
	}
	if err := writeMetadata(entryDir, record); err != nil {
		return err
	}

	now := time.Now()
	_ = os.Chtimes(entryDir, now, now)

	s.logger.InfoContext(ctx, "populated cache entry",
		logging.String(logging.FieldIdentifier, id),
		logging.String("title", record.Title))

	if err := s.prune(ctx, entryDir); err != nil {
		s.logger.WarnContext(ctx, "prune after populate failed", logging.Error(err))
	}
	return nil
}

// Evict removes the entire entry directory for id. Used on any failure
// during population so a partial entry is never observable.
func (s *Store) Evict(ctx context.Context, id string) error {
	if err := services.ValidateIdentifier(id); err != nil {
		return err
	}
	entryDir := s.EntryDir(id)
	if err := os.RemoveAll(entryDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrWrite, "cache", "evict", "remove entry", err)
	}
	s.logger.InfoContext(ctx, "evicted cache entry", logging.String(logging.FieldIdentifier, id))
	return nil
}

// Stats returns current cache usage and filesystem free-space info.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	entries, totalSize, err := s.scan()
	if err != nil {
		return Stats{}, err
	}
	totalFS, freeFS, err := s.statfs(s.root)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrWrite, "cache", "stats", "statfs", err)
	}
	ratio := 1.0
	if totalFS > 0 {
		ratio = float64(freeFS) / float64(totalFS)
	}

	summaries := make([]EntrySummary, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		summary := EntrySummary{
			Identifier: filepath.Base(entry.path),
			SizeBytes:  entry.sizeBytes,
			ModifiedAt: entry.modTime,
			Complete:   entry.complete,
		}
		if record, err := readMetadata(entry.path); err == nil {
			summary.Title = record.Title
		}
		summaries = append(summaries, summary)
	}

	stats := Stats{
		Entries:      len(entries),
		TotalBytes:   totalSize,
		MaxBytes:     s.maxBytes,
		FreeBytes:    freeFS,
		TotalFSBytes: totalFS,
		FreeRatio:    ratio,
		Summaries:    summaries,
	}
	if len(entries) == 0 {
		s.logger.DebugContext(ctx, "cache empty")
	}
	return stats, nil
}

// Prune removes oldest entries until size and free-space limits are met.
// keepPath, when provided, is never deleted.
func (s *Store) Prune(ctx context.Context, keepPath string) error {
	return s.prune(ctx, keepPath)
}

func (s *Store) prune(ctx context.Context, keepPath string) error {
	entries, totalSize, err := s.scan()
	if err != nil {
		return err
	}

	for len(entries) > 0 {
		freeOK, err := s.freeSpaceOK()
		if err != nil {
			return err
		}
		sizeOK := s.maxBytes <= 0 || totalSize <= s.maxBytes
		if sizeOK && freeOK {
			return nil
		}

		oldest := entries[0]
		if samePath(oldest.path, keepPath) {
			if len(entries) == 1 {
				return fmt.Errorf("cache over limits and active entry %q cannot be pruned", keepPath)
			}
			entries = entries[1:]
			continue
		}
		if err := os.RemoveAll(oldest.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrWrite, "cache", "prune", fmt.Sprintf("remove %q", oldest.path), err)
		}
		s.logger.InfoContext(ctx, "pruned cache entry",
			logging.String("entry_dir", oldest.path),
			logging.Int64("entry_size_bytes", oldest.sizeBytes))
		totalSize -= oldest.sizeBytes
		entries = entries[1:]
	}
	return nil
}

type scannedEntry struct {
	path      string
	sizeBytes int64
	modTime   time.Time
	complete  bool
}

func (s *Store) scan() ([]scannedEntry, int64, error) {
	entries := make([]scannedEntry, 0)
	var total int64

	rootEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, 0, nil
		}
		return nil, 0, services.Wrap(services.ErrWrite, "cache", "scan", "list storage root", err)
	}

	for _, entry := range rootEntries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		size, mtime, err := dirSizeAndTime(path)
		if err != nil {
			s.logger.Warn("skipping unreadable cache entry",
				logging.String("entry_dir", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect storage directory permissions or remove the entry"))
			continue
		}
		complete := fileExists(filepath.Join(path, artifactName)) && fileExists(filepath.Join(path, metadataName))
		total += size
		entries = append(entries, scannedEntry{path: path, sizeBytes: size, modTime: mtime, complete: complete})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.Before(entries[j].modTime)
	})
	return entries, total, nil
}

func (s *Store) freeSpaceOK() (bool, error) {
	total, free, err := s.statfs(s.root)
	if err != nil {
		return false, services.Wrap(services.ErrWrite, "cache", "prune", "statfs", err)
	}
	if total == 0 {
		return true, nil
	}
	return float64(free)/float64(total) >= freeSpaceFloor, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func samePath(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	if errA == nil {
		a = ra
	}
	if errB == nil {
		b = rb
	}
	return a == b
}

func dirSizeAndTime(path string) (int64, time.Time, error) {
	var (
		size    int64
		latest  time.Time
		visited = false
	)
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		visited = true
		if !info.IsDir() {
			size += info.Size()
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	if !visited {
		return 0, time.Time{}, errors.New("empty cache entry")
	}
	return size, latest, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
