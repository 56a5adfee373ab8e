package playback

import (
	"fmt"

	"reviewsync/internal/timeline"
)

type ExportMode string

const (
	ExportNone     ExportMode = "none"
	ExportSelect   ExportMode = "select"
	ExportTimeline ExportMode = "timeline"
)

func ParseExportMode(s string) (ExportMode, error) {
	switch m := ExportMode(s); m {
	case ExportNone, ExportSelect, ExportTimeline:
		return m, nil
	case "":
		return ExportNone, nil
	default:
		return "", fmt.Errorf("unknown export mode %q", s)
	}
}

// ExportSelection is the published export state.
type ExportSelection struct {
	Mode  ExportMode          `json:"mode"`
	Range *timeline.TimeRange `json:"range,omitempty"`
}

// ExportUpdate describes the effect of moving one export boundary.
type ExportUpdate struct {
	Committed  bool               `json:"committed"`
	Range      timeline.TimeRange `json:"range"`
	Follow     bool               `json:"follow"`
	FollowTime float64            `json:"follow_time,omitempty"`
}

// ExportSelector reconciles the two boundary handles of the export range.
// Each handle writes its own pending value; the range is committed only once
// both are set and ordered.
type ExportSelector struct {
	mode      ExportMode
	committed *timeline.TimeRange
	start     float64
	end       float64
}

func NewExportSelector() *ExportSelector {
	return &ExportSelector{mode: ExportNone}
}

func (e *ExportSelector) Mode() ExportMode { return e.mode }

// Range returns the committed range.
func (e *ExportSelector) Range() (timeline.TimeRange, bool) {
	if e.committed == nil {
		return timeline.TimeRange{}, false
	}
	return *e.committed, true
}

func (e *ExportSelector) Selection() ExportSelection {
	sel := ExportSelection{Mode: e.mode}
	if e.committed != nil {
		r := *e.committed
		sel.Range = &r
	}
	return sel
}

// SetMode changes the selection mode. Switching to none drops the selection.
func (e *ExportSelector) SetMode(m ExportMode) {
	e.mode = m
	if m == ExportNone {
		e.committed = nil
		e.start, e.end = 0, 0
	}
}

// SetExportRange replaces the committed range. A nil range clears it.
func (e *ExportSelector) SetExportRange(r *timeline.TimeRange) error {
	if r == nil {
		e.committed = nil
		e.start, e.end = 0, 0
		return nil
	}
	if !r.Valid() {
		return timeline.ErrInvalidRange
	}
	cp := *r
	e.committed = &cp
	e.start, e.end = cp.After, cp.Before
	return nil
}

func (e *ExportSelector) SetExportStartTime(t float64) ExportUpdate {
	if e.mode != ExportTimeline {
		return ExportUpdate{}
	}
	e.start = t
	return e.reconcile(t)
}

func (e *ExportSelector) SetExportEndTime(t float64) ExportUpdate {
	if e.mode != ExportTimeline {
		return ExportUpdate{}
	}
	e.end = t
	return e.reconcile(t)
}

func (e *ExportSelector) reconcile(moved float64) ExportUpdate {
	if e.start == 0 || e.end == 0 || e.start >= e.end {
		return ExportUpdate{}
	}

	next := timeline.TimeRange{After: e.start, Before: e.end}
	prev := e.committed
	if prev != nil && *prev == next {
		return ExportUpdate{Range: next}
	}
	e.committed = &next

	u := ExportUpdate{Committed: true, Range: next, Follow: true, FollowTime: moved}
	if prev != nil {
		startChanged := prev.After != next.After
		endChanged := prev.Before != next.Before
		switch {
		case startChanged && !endChanged:
			u.FollowTime = next.After
		case endChanged && !startChanged:
			u.FollowTime = next.Before
		}
	}
	return u
}
