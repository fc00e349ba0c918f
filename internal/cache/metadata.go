package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"bindery/internal/services"
)

// MetadataRecord describes one cached comic. It is persisted as meta.json
// next to the artifact and read on every cache hit to derive the download
// filename.
type MetadataRecord struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Oname       string   `json:"oname,omitempty"`
	Authoroname string   `json:"authoroname,omitempty"`
}

// writeMetadata persists the record atomically: write to a temp file in the
// entry directory, then rename over the final name.
func writeMetadata(entryDir string, record MetadataRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrWrite, "cache", "populate", "encode metadata", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(entryDir, ".meta-*.json")
	if err != nil {
		return services.Wrap(services.ErrWrite, "cache", "populate", "create metadata temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrWrite, "cache", "populate", "write metadata", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrWrite, "cache", "populate", "close metadata temp file", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(entryDir, metadataName)); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrWrite, "cache", "populate", "publish metadata", err)
	}
	return nil
}

// readMetadata loads the sidecar record. A missing file is returned as-is so
// the caller can treat it as a miss; any other read failure on a present
// entry is a corrupt-entry error, the same as undecodable JSON.
func readMetadata(entryDir string) (MetadataRecord, error) {
	var record MetadataRecord
	data, err := os.ReadFile(filepath.Join(entryDir, metadataName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return record, err
		}
		return record, services.Wrap(services.ErrCorruptEntry, "cache", "lookup", "read metadata", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, services.Wrap(services.ErrCorruptEntry, "cache", "lookup", "decode metadata", err)
	}
	return record, nil
}

// DisplayFilename derives the download filename for an entry: the stored
// title normalized to NFC and stripped of path-hostile characters, falling
// back to the identifier when no usable title exists.
func DisplayFilename(record MetadataRecord, id string) string {
	name := sanitizeFilename(norm.NFC.String(record.Title))
	if name == "" {
		name = sanitizeFilename(id)
	}
	if name == "" {
		name = "comic"
	}
	return name + ".pdf"
}

func sanitizeFilename(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		"\n", " ",
		"\r", " ",
	)
	value = replacer.Replace(value)
	return strings.Trim(value, "-_. ")
}
