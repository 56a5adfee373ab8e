package storage

import "time"

type Camera struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// Recording is one recorded file of a camera. Times are Unix seconds.
type Recording struct {
	ID        string    `json:"id"`
	Camera    string    `json:"camera"`
	Path      string    `json:"-"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Duration  float64   `json:"duration"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"-"`
}

type ReviewSegment struct {
	ID        string   `json:"id"`
	Camera    string   `json:"camera"`
	StartTime float64  `json:"start_time"`
	EndTime   *float64 `json:"end_time,omitempty"` // nil while the activity is ongoing
	Severity  string   `json:"severity"`           // alert | detection
	Label     string   `json:"label"`
}

type MotionData struct {
	Camera    string  `json:"camera"`
	StartTime float64 `json:"start_time"`
	Motion    int     `json:"motion"`
	Audio     float64 `json:"audio"`
}

type Export struct {
	ID        string    `json:"id"`
	Camera    string    `json:"camera"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PlaybackPosition is the last reviewed position of a camera.
type PlaybackPosition struct {
	Camera    string    `json:"camera"`
	Position  float64   `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}
