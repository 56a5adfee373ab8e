package playback

import "reviewsync/internal/timeline"

type Decision int

const (
	// Stay means the target lies in the active segment.
	Stay Decision = iota
	// Switch means the target lies in another segment.
	Switch
	// OutOfRange means the target lies outside the whole parent range.
	OutOfRange
)

func (d Decision) String() string {
	switch d {
	case Stay:
		return "stay"
	case Switch:
		return "switch"
	default:
		return "out_of_range"
	}
}

type Transition struct {
	Decision Decision
	Index    int
}

// PendingSeek is the one-shot seek armed by a segment switch. It fires once the
// reloaded main player reports ready.
type PendingSeek struct {
	SegmentIndex int     `json:"segment_index"`
	TargetTime   float64 `json:"target_time"`
	Autoplay     bool    `json:"autoplay"`
}

// Policy tracks the active segment of a SegmentIndex and the pending seek that
// goes with the latest switch.
type Policy struct {
	segments timeline.SegmentIndex
	active   int
	pending  *PendingSeek
}

func NewPolicy(segments timeline.SegmentIndex, active int) *Policy {
	return &Policy{segments: segments, active: active}
}

func (p *Policy) Segments() timeline.SegmentIndex { return p.segments }

func (p *Policy) Active() int { return p.active }

func (p *Policy) ActiveRange() timeline.TimeRange {
	return p.segments.At(p.active)
}

// Evaluate decides what a move to t means for the active segment.
func (p *Policy) Evaluate(t float64) Transition {
	i := p.segments.FindContainingIndex(t)
	switch {
	case i < 0:
		return Transition{Decision: OutOfRange, Index: -1}
	case i == p.active:
		return Transition{Decision: Stay, Index: i}
	default:
		return Transition{Decision: Switch, Index: i}
	}
}

// Activate makes segment i active and arms a seek to target, replacing any
// seek that has not fired yet.
func (p *Policy) Activate(i int, target float64, autoplay bool) {
	p.active = i
	p.pending = &PendingSeek{SegmentIndex: i, TargetTime: target, Autoplay: autoplay}
}

// Pending returns the armed seek, if any.
func (p *Policy) Pending() (PendingSeek, bool) {
	if p.pending == nil {
		return PendingSeek{}, false
	}
	return *p.pending, true
}

// ConsumePending returns and clears the armed seek when it still belongs to the
// active segment. A seek for a segment that is no longer active is dropped.
func (p *Policy) ConsumePending() (PendingSeek, bool) {
	if p.pending == nil {
		return PendingSeek{}, false
	}
	ps := *p.pending
	p.pending = nil
	if ps.SegmentIndex != p.active {
		return PendingSeek{}, false
	}
	return ps, true
}

// Advance moves to the segment after the active one, for playback that runs
// off the end of a chunk. It reports false on the last segment.
func (p *Policy) Advance() (int, bool) {
	if p.active >= p.segments.Last() {
		return p.active, false
	}
	next := p.active + 1
	p.Activate(next, p.segments.At(next).After, true)
	return next, true
}

// Rebase swaps in another camera's segments and resolves t against them. The
// policy is left untouched when t is outside the new range.
func (p *Policy) Rebase(segments timeline.SegmentIndex, t float64, autoplay bool) bool {
	i := segments.FindContainingIndex(t)
	if i < 0 {
		return false
	}
	p.segments = segments
	p.Activate(i, t, autoplay)
	return true
}
