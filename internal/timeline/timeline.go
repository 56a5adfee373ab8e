package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidRange         = errors.New("timeline: range must satisfy after < before")
	ErrInvalidChunkDuration = errors.New("timeline: chunk duration must be positive")
)

// TimeRange is an interval of Unix timestamps in seconds.
type TimeRange struct {
	After  float64 `json:"after"`
	Before float64 `json:"before"`
}

func (r TimeRange) Valid() bool {
	return r.After < r.Before
}

func (r TimeRange) Duration() float64 {
	return r.Before - r.After
}

// Contains reports whether t lies within the closed range.
func (r TimeRange) Contains(t float64) bool {
	return r.After <= t && t <= r.Before
}

func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.After < o.Before && o.After < r.Before
}

// Intersect returns the overlap of both ranges, false when they do not overlap.
func (r TimeRange) Intersect(o TimeRange) (TimeRange, bool) {
	out := TimeRange{
		After:  math.Max(r.After, o.After),
		Before: math.Min(r.Before, o.Before),
	}
	if !out.Valid() {
		return TimeRange{}, false
	}
	return out, true
}

// SegmentIndex is an immutable, ordered partition of a parent range into
// contiguous chunks.
type SegmentIndex struct {
	parent TimeRange
	chunks []TimeRange
}

// MaxSegments caps the number of chunks in one SegmentIndex.
const MaxSegments = 10000

// BuildSegments splits parent into chunks of chunkDuration starting at
// parent.After. The last chunk is clipped to parent.Before.
func BuildSegments(parent TimeRange, chunkDuration float64) (SegmentIndex, error) {
	if err := validate(parent, chunkDuration); err != nil {
		return SegmentIndex{}, err
	}

	// a remainder under a billionth of a chunk is rounding, not a chunk
	n := math.Max(1, math.Ceil(parent.Duration()/chunkDuration-1e-9))
	if err := checkCount(n); err != nil {
		return SegmentIndex{}, err
	}

	return SegmentIndex{
		parent: parent,
		chunks: split(parent, int(n), func(i int) float64 {
			return parent.After + float64(i)*chunkDuration
		}),
	}, nil
}

// BuildAlignedSegments splits parent on multiples of chunkDuration measured
// from the epoch, so hourly chunks line up with wall-clock hours. Both the
// first and the last chunk may be shorter than chunkDuration.
func BuildAlignedSegments(parent TimeRange, chunkDuration float64) (SegmentIndex, error) {
	if err := validate(parent, chunkDuration); err != nil {
		return SegmentIndex{}, err
	}

	first := math.Floor(parent.After / chunkDuration)
	n := math.Max(1, math.Ceil(parent.Before/chunkDuration)-first)
	if err := checkCount(n); err != nil {
		return SegmentIndex{}, err
	}

	return SegmentIndex{
		parent: parent,
		chunks: split(parent, int(n), func(i int) float64 {
			return (first + float64(i)) * chunkDuration
		}),
	}, nil
}

// split cuts parent at boundary(1) .. boundary(n-1). Boundaries that do not
// move past the previous one are skipped and the n-th always ends at
// parent.Before, so the chunks stay contiguous whatever the float rounding.
func split(parent TimeRange, n int, boundary func(i int) float64) []TimeRange {
	chunks := make([]TimeRange, 0, n)
	start := parent.After
	for i := 1; i <= n; i++ {
		end := boundary(i)
		if i == n || end > parent.Before {
			end = parent.Before
		}
		if end <= start {
			continue
		}
		chunks = append(chunks, TimeRange{After: start, Before: end})
		if end == parent.Before {
			break
		}
		start = end
	}
	return chunks
}

func validate(parent TimeRange, chunkDuration float64) error {
	if !(chunkDuration > 0) || math.IsInf(chunkDuration, 0) {
		return ErrInvalidChunkDuration
	}
	if !parent.Valid() || math.IsInf(parent.After, 0) || math.IsInf(parent.Before, 0) {
		return ErrInvalidRange
	}
	return nil
}

func checkCount(n float64) error {
	if n > MaxSegments {
		return fmt.Errorf("%w: %.0f chunks, at most %d allowed", ErrInvalidChunkDuration, n, MaxSegments)
	}
	return nil
}

func (s SegmentIndex) Parent() TimeRange { return s.parent }

func (s SegmentIndex) Len() int { return len(s.chunks) }

func (s SegmentIndex) Empty() bool { return len(s.chunks) == 0 }

func (s SegmentIndex) At(i int) TimeRange { return s.chunks[i] }

func (s SegmentIndex) Last() int { return len(s.chunks) - 1 }

// Chunks returns a copy of the chunk list.
func (s SegmentIndex) Chunks() []TimeRange {
	out := make([]TimeRange, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// FindContainingIndex returns the index of the chunk holding t, or -1 when t
// is outside the parent range. A timestamp on a shared boundary belongs to
// the later chunk; parent.Before belongs to the last chunk.
func (s SegmentIndex) FindContainingIndex(t float64) int {
	if len(s.chunks) == 0 || math.IsNaN(t) || !s.parent.Contains(t) {
		return -1
	}

	// first chunk that ends after t
	i := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].Before > t
	})
	if i == len(s.chunks) {
		return len(s.chunks) - 1
	}
	return i
}
