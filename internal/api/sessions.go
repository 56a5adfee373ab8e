package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reviewsync/internal/playback"
	"reviewsync/internal/player"
	"reviewsync/internal/session"
	"reviewsync/internal/storage"
	"reviewsync/internal/timeline"
)

func sessionResponse(info session.Info, segments map[string]timeline.SegmentIndex) SessionResponse {
	resp := SessionResponse{
		Info:  info,
		WSURL: "/api/v1/sessions/" + info.ID + "/ws",
	}
	if len(segments) > 0 {
		resp.Segments = make(map[string][]timeline.TimeRange, len(segments))
		for camera, idx := range segments {
			resp.Segments[camera] = idx.Chunks()
		}
	}
	return resp
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	s, err := h.sessions.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var segments map[string]timeline.SegmentIndex
	if err := s.Do(r.Context(), func(c *playback.Coordinator) error {
		segments = c.Cameras()
		return nil
	}); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(s.Info(), segments))
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionsResponse{Sessions: h.sessions.List()})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(s.Info(), nil))
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetTime moves a session's current time, as a timeline click would.
func (h *Handler) SetTime(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var req SetTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	var snap playback.Snapshot
	err = s.Do(r.Context(), func(c *playback.Coordinator) error {
		if !c.ManuallySetCurrentTime(req.Time, req.Force) {
			return fmt.Errorf("%w: %.3f", playback.ErrOutOfRange, req.Time)
		}
		snap = c.Snapshot()
		return nil
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) SwitchCamera(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var req SwitchCameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Camera == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	var snap playback.Snapshot
	err = s.Do(r.Context(), func(c *playback.Coordinator) error {
		if err := c.SwitchCamera(req.Camera); err != nil {
			return err
		}
		snap = c.Snapshot()
		return nil
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

var errNoExportRange = errors.New("no committed export range")

// UpdateExport applies export handle moves in order: mode, clear, start, end.
// With save set, the committed range is recorded as an export of the main
// camera.
func (h *Handler) UpdateExport(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	var mode playback.ExportMode
	if req.Mode != nil {
		if mode, err = playback.ParseExportMode(*req.Mode); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
	}

	var (
		resp   ExportResponse
		camera string
	)
	err = s.Do(r.Context(), func(c *playback.Coordinator) error {
		if req.Mode != nil {
			c.SetExportMode(mode)
		}
		if req.Clear {
			if err := c.SetExportRange(nil); err != nil {
				return err
			}
		}
		if req.Start != nil {
			u := c.SetExportStartTime(*req.Start)
			resp.Update = &u
		}
		if req.End != nil {
			u := c.SetExportEndTime(*req.End)
			resp.Update = &u
		}
		resp.Selection = c.Export().Selection()
		camera = c.MainCamera()
		return nil
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if req.Save {
		if resp.Selection.Range == nil {
			writeError(w, http.StatusConflict, "NO_EXPORT_RANGE", errNoExportRange.Error())
			return
		}

		export := &storage.Export{
			ID:        uuid.NewString(),
			Camera:    camera,
			StartTime: resp.Selection.Range.After,
			EndTime:   resp.Selection.Range.Before,
			Name:      req.Name,
			Status:    "pending",
			CreatedAt: time.Now(),
		}
		if export.Name == "" {
			export.Name = fmt.Sprintf("%s %s", camera, time.Unix(int64(export.StartTime), 0).UTC().Format(time.RFC3339))
		}
		if err := h.storage.CreateExport(export); err != nil {
			h.logger.Error().Err(err).Str("camera", camera).Msg("failed to save export")
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save export")
			return
		}
		resp.Export = export

		h.logger.Info().
			Str("export", export.ID).
			Str("camera", camera).
			Float64("start", export.StartTime).
			Float64("end", export.EndTime).
			Msg("export saved")
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	exports, err := h.storage.ListExports(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list exports")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list exports")
		return
	}

	writeJSON(w, http.StatusOK, ExportsResponse{Exports: exports})
}

// SessionSocket upgrades to the player protocol. camera and role come from
// the query string; control connections need no camera.
func (h *Handler) SessionSocket(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	role, err := player.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	camera := r.URL.Query().Get("camera")
	if role != player.RoleControl && !s.HasCamera(camera) {
		writeError(w, http.StatusNotFound, "CAMERA_NOT_FOUND", "Camera is not part of the session")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := player.NewConn(ws, h.logger)
	if err := player.Serve(r.Context(), s, conn, camera, role, h.logger); err != nil {
		h.logger.Debug().Err(err).Str("session", s.ID()).Msg("player connection ended")
	}
}
