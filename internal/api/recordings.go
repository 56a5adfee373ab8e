package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reviewsync/internal/media"
	"reviewsync/internal/streaming"
)

func (h *Handler) ListCameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := h.storage.ListCameras()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list cameras")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list cameras")
		return
	}

	writeJSON(w, http.StatusOK, CamerasResponse{Cameras: cameras})
}

func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	window, err := h.timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid time range")
		return
	}

	recs, err := h.storage.RecordingsInRange(camera, window)
	if err != nil {
		h.logger.Error().Err(err).Str("camera", camera).Msg("failed to list recordings")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list recordings")
		return
	}

	writeJSON(w, http.StatusOK, RecordingsResponse{Camera: camera, Range: window, Recordings: recs})
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	window, err := h.timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid time range")
		return
	}

	reviews, err := h.storage.ReviewSegmentsInRange(camera, window)
	if err != nil {
		h.logger.Error().Err(err).Str("camera", camera).Msg("failed to list review segments")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list review segments")
		return
	}

	writeJSON(w, http.StatusOK, ReviewsResponse{Camera: camera, Range: window, Reviews: reviews})
}

func (h *Handler) ListMotion(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	window, err := h.timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid time range")
		return
	}

	motion, err := h.storage.MotionInRange(camera, window)
	if err != nil {
		h.logger.Error().Err(err).Str("camera", camera).Msg("failed to list motion")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list motion")
		return
	}

	writeJSON(w, http.StatusOK, MotionResponse{Camera: camera, Range: window, Motion: motion})
}

// GetSegments previews how a review of camera over the window is chunked.
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	window, err := h.timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid time range")
		return
	}

	var chunk float64
	if v := r.URL.Query().Get("chunk"); v != "" {
		chunk, err = strconv.ParseFloat(v, 64)
		if err != nil || chunk <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid chunk duration")
			return
		}
	}

	idx, err := h.sessions.Segments(camera, window, chunk)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := SegmentsResponse{
		Camera:   camera,
		Parent:   idx.Parent(),
		Chunk:    chunk,
		Segments: idx.Chunks(),
	}
	if resp.Chunk == 0 && idx.Len() > 0 {
		resp.Chunk = idx.At(0).Duration()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")

	pos, err := h.storage.GetPlaybackPosition(camera)
	if err != nil {
		h.logger.Error().Err(err).Str("camera", camera).Msg("failed to get playback position")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get playback position")
		return
	}
	if pos == nil {
		writeError(w, http.StatusNotFound, "POSITION_NOT_FOUND", "No saved position")
		return
	}

	writeJSON(w, http.StatusOK, PositionResponse{Camera: camera, Position: pos.Position})
}

// GetPlaylist serves the VOD playlist that is the main player's source window.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	window, err := h.timeWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid time range")
		return
	}

	recs, err := h.storage.RecordingsInRange(camera, window)
	if err != nil {
		h.logger.Error().Err(err).Str("camera", camera).Msg("failed to list recordings for playlist")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build playlist")
		return
	}

	if err := h.streamer.ServePlaylist(w, recs, "/api/v1"); err != nil {
		if errors.Is(err, streaming.ErrEmptyPlaylist) {
			writeError(w, http.StatusNotFound, "NO_RECORDINGS", "No recordings in range")
			return
		}
		h.logger.Error().Err(err).Str("camera", camera).Msg("failed to build playlist")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build playlist")
	}
}

func (h *Handler) StreamRecording(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.storage.GetRecording(id)
	if err != nil {
		h.logger.Error().Err(err).Str("id", id).Msg("failed to get recording for streaming")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get recording")
		return
	}

	if rec == nil {
		writeError(w, http.StatusNotFound, "RECORDING_NOT_FOUND", "Recording not found")
		return
	}

	h.streamer.ServeFile(w, r, rec.Path)
}

func (h *Handler) GetPreviewFrame(w http.ResponseWriter, r *http.Request) {
	if h.previews == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Previews not available")
		return
	}

	camera := chi.URLParam(r, "camera")
	ts, err := strconv.ParseFloat(r.URL.Query().Get("time"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid time")
		return
	}

	data, err := h.previews.GetFrame(r.Context(), camera, ts)
	switch {
	case errors.Is(err, media.ErrNoRecording):
		writeError(w, http.StatusNotFound, "NO_RECORDINGS", "No recording at that time")
		return
	case errors.Is(err, media.ErrFfmpegUnavailable):
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "ffmpeg not available")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render preview")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
