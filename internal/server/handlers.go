package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bindery/internal/cache"
	"bindery/internal/history"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// handleDownload is the fetch-or-get entry point: serve the cached artifact
// when the entry is complete, otherwise fetch metadata, run the isolated
// fetch+convert, populate the cache, and serve the fresh artifact.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/download/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "comic not found")
		return
	}
	if err := services.ValidateIdentifier(id); err != nil {
		s.writeError(w, http.StatusNotFound, "comic not found")
		return
	}

	ctx := services.WithIdentifier(r.Context(), id)
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	// Serialize conversion attempts per identifier. Later arrivals re-check
	// the cache once the first finisher releases the slot.
	release := s.inflight.acquire(id)
	defer release()

	entry, err := s.store.Lookup(id)
	if err != nil {
		logger.Error("cache lookup failed", logging.Error(err))
		s.record(ctx, id, history.OutcomeFailure, err.Error(), time.Since(started))
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}
	if entry.Hit {
		logger.Info("serving cached artifact", logging.String("title", entry.Record.Title))
		s.record(ctx, id, history.OutcomeCacheHit, "", time.Since(started))
		s.serveArtifact(w, r, entry, id)
		return
	}

	record, err := s.lookupMetadata(ctx, id)
	if err != nil {
		logger.Warn("metadata lookup failed", logging.Error(err))
		s.record(ctx, id, history.OutcomeFailure, err.Error(), time.Since(started))
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}

	if err := s.converter.Convert(ctx, id, s.store.ArtifactPath(id)); err != nil {
		logger.Error("conversion failed", logging.Error(err))
		s.cleanupFailure(ctx, id, logger)
		s.record(ctx, id, history.OutcomeFailure, err.Error(), time.Since(started))
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}

	if err := s.store.Populate(ctx, id, record); err != nil {
		logger.Error("cache population failed", logging.Error(err))
		s.cleanupFailure(ctx, id, logger)
		s.record(ctx, id, history.OutcomeFailure, err.Error(), time.Since(started))
		s.writeError(w, services.HTTPStatus(err), err.Error())
		return
	}

	entry, err = s.store.Lookup(id)
	if err != nil || !entry.Hit {
		detail := "entry incomplete after population"
		if err != nil {
			detail = err.Error()
		}
		logger.Error("post-population lookup failed", logging.String("detail", detail))
		s.cleanupFailure(ctx, id, logger)
		s.record(ctx, id, history.OutcomeFailure, detail, time.Since(started))
		s.writeError(w, http.StatusInternalServerError, detail)
		return
	}

	logger.Info("conversion complete",
		logging.String("title", entry.Record.Title),
		logging.Duration("elapsed", time.Since(started)))
	s.record(ctx, id, history.OutcomeSuccess, "", time.Since(started))
	s.serveArtifact(w, r, entry, id)
}

// lookupMetadata fetches the upstream record, or synthesizes a minimal one
// when no upstream catalog is configured.
func (s *Server) lookupMetadata(ctx context.Context, id string) (cache.MetadataRecord, error) {
	if s.metadata == nil || !s.metadata.Enabled() {
		return cache.MetadataRecord{Title: id}, nil
	}
	return s.metadata.Metadata(ctx, id)
}

// cleanupFailure evicts the partial cache entry after a failed attempt. The
// working directory is the orchestrator's responsibility.
func (s *Server) cleanupFailure(ctx context.Context, id string, logger *slog.Logger) {
	if err := s.store.Evict(ctx, id); err != nil {
		logger.Warn("failed to evict partial entry", logging.Error(err))
	}
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, entry cache.Entry, id string) {
	filename := cache.DisplayFilename(entry.Record, id)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", disposition)
	http.ServeFile(w, r, entry.ArtifactPath)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := map[string]any{
		"running":       true,
		"pid":           pid(),
		"uptime":        time.Since(s.started).Round(time.Second).String(),
		"storage_dir":   s.cfg.Paths.StorageDir,
		"work_dir":      s.cfg.Paths.WorkDir,
		"upstream":      s.metadata != nil && s.metadata.Enabled(),
		"history_ready": s.journal != nil,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.journal == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"entries": []history.Entry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
