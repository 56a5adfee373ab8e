package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reviewsync/internal/media"
	"reviewsync/internal/playback"
	"reviewsync/internal/session"
	"reviewsync/internal/storage"
	"reviewsync/internal/streaming"
	"reviewsync/internal/timeline"
)

const Version = "0.1.0"

type Handler struct {
	storage        *storage.SQLiteStorage
	sessions       *session.Manager
	logger         zerolog.Logger
	scanner        ScannerInterface
	streamer       *streaming.Handler
	previews       *media.PreviewService
	upgrader       websocket.Upgrader
	recordingsPath string
	defaultRange   time.Duration
}

type ScannerInterface interface {
	ScanPath(ctx context.Context, root string) (media.ScanResult, error)
	IsScanning() bool
}

func NewHandler(store *storage.SQLiteStorage, sessions *session.Manager, logger zerolog.Logger, recordingsPath string, defaultRange time.Duration) *Handler {
	if defaultRange <= 0 {
		defaultRange = 24 * time.Hour
	}
	return &Handler{
		storage:  store,
		sessions: sessions,
		logger:   logger,
		streamer: streaming.NewHandler(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		recordingsPath: recordingsPath,
		defaultRange:   defaultRange,
	}
}

func (h *Handler) SetPreviewService(service *media.PreviewService) {
	h.previews = service
}

func (h *Handler) SetScanner(scanner ScannerInterface) {
	h.scanner = scanner
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  Version,
		Sessions: len(h.sessions.List()),
	})
}

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Scanner not initialized")
		return
	}

	if h.scanner.IsScanning() {
		writeJSON(w, http.StatusOK, ScanResponse{
			Status:  "in_progress",
			Message: "Scan already in progress",
		})
		return
	}

	if h.recordingsPath == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "No recordings path configured")
		return
	}

	go func() {
		if _, err := h.scanner.ScanPath(context.Background(), h.recordingsPath); err != nil {
			h.logger.Error().Err(err).Msg("scan failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, ScanResponse{
		Status:  "started",
		Message: "Recordings scan started",
	})
}

// timeWindow reads the after/before query parameters. Missing values default
// to the configured range ending now.
func (h *Handler) timeWindow(r *http.Request) (timeline.TimeRange, error) {
	now := float64(time.Now().Unix())
	window := timeline.TimeRange{
		After:  now - h.defaultRange.Seconds(),
		Before: now,
	}

	q := r.URL.Query()
	if v := q.Get("before"); v != "" {
		before, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return window, err
		}
		window.Before = before
		if q.Get("after") == "" {
			window.After = before - h.defaultRange.Seconds()
		}
	}
	if v := q.Get("after"); v != "" {
		after, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return window, err
		}
		window.After = after
	}

	if !window.Valid() {
		return window, timeline.ErrInvalidRange
	}
	return window, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps domain errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, session.ErrSessionClosed):
		writeError(w, http.StatusGone, "SESSION_CLOSED", err.Error())
	case errors.Is(err, session.ErrNoCoverage):
		writeError(w, http.StatusNotFound, "NO_RECORDINGS", err.Error())
	case errors.Is(err, playback.ErrUnknownCamera):
		writeError(w, http.StatusNotFound, "CAMERA_NOT_FOUND", err.Error())
	case errors.Is(err, playback.ErrOutOfRange):
		writeError(w, http.StatusUnprocessableEntity, "OUT_OF_RANGE", err.Error())
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, timeline.ErrInvalidRange),
		errors.Is(err, timeline.ErrInvalidChunkDuration):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "TIMEOUT", err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
	}
}
