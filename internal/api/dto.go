package api

import (
	"reviewsync/internal/media"
	"reviewsync/internal/playback"
	"reviewsync/internal/session"
	"reviewsync/internal/storage"
	"reviewsync/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

type ScanResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Result  *media.ScanResult `json:"result,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Timeline data

type CamerasResponse struct {
	Cameras []storage.Camera `json:"cameras"`
}

type RecordingsResponse struct {
	Camera     string              `json:"camera"`
	Range      timeline.TimeRange  `json:"range"`
	Recordings []storage.Recording `json:"recordings"`
}

type ReviewsResponse struct {
	Camera  string                  `json:"camera"`
	Range   timeline.TimeRange      `json:"range"`
	Reviews []storage.ReviewSegment `json:"reviews"`
}

type MotionResponse struct {
	Camera string               `json:"camera"`
	Range  timeline.TimeRange   `json:"range"`
	Motion []storage.MotionData `json:"motion"`
}

type SegmentsResponse struct {
	Camera   string               `json:"camera"`
	Parent   timeline.TimeRange   `json:"parent"`
	Chunk    float64              `json:"chunk"`
	Segments []timeline.TimeRange `json:"segments"`
}

type PositionResponse struct {
	Camera   string  `json:"camera"`
	Position float64 `json:"position"`
}

// Sessions

type SessionResponse struct {
	session.Info
	Segments map[string][]timeline.TimeRange `json:"segments,omitempty"`
	WSURL    string                          `json:"ws_url"`
}

type SessionsResponse struct {
	Sessions []session.Info `json:"sessions"`
}

type SetTimeRequest struct {
	Time  float64 `json:"time"`
	Force bool    `json:"force"`
}

type SwitchCameraRequest struct {
	Camera string `json:"camera"`
}

type ExportRequest struct {
	Mode  *string  `json:"mode,omitempty"`
	Clear bool     `json:"clear,omitempty"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
	Save  bool     `json:"save,omitempty"`
	Name  string   `json:"name,omitempty"`
}

type ExportResponse struct {
	Selection playback.ExportSelection `json:"selection"`
	Update    *playback.ExportUpdate   `json:"update,omitempty"`
	Export    *storage.Export          `json:"export,omitempty"`
}

type ExportsResponse struct {
	Exports []storage.Export `json:"exports"`
}
