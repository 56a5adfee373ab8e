package timeline

import (
	"errors"
	"math"
	"testing"
)

func TestBuildSegmentsClipsLastChunk(t *testing.T) {
	segs, err := BuildSegments(TimeRange{After: 0, Before: 100}, 30)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}

	want := []TimeRange{{0, 30}, {30, 60}, {60, 90}, {90, 100}}
	got := segs.Chunks()
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %v, want %v", i, got[i], want[i])
		}
	}

	if idx := segs.FindContainingIndex(95); idx != 3 {
		t.Errorf("FindContainingIndex(95) = %d, want 3", idx)
	}
}

func TestBuildSegmentsRejectsInvalidInput(t *testing.T) {
	if _, err := BuildSegments(TimeRange{After: 10, Before: 10}, 5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("empty range: got %v, want ErrInvalidRange", err)
	}
	if _, err := BuildSegments(TimeRange{After: 0, Before: 10}, 0); !errors.Is(err, ErrInvalidChunkDuration) {
		t.Errorf("zero chunk: got %v, want ErrInvalidChunkDuration", err)
	}
	if _, err := BuildSegments(TimeRange{After: 0, Before: 10}, -3); !errors.Is(err, ErrInvalidChunkDuration) {
		t.Errorf("negative chunk: got %v, want ErrInvalidChunkDuration", err)
	}
}

func TestFindContainingIndexInsideParent(t *testing.T) {
	parent := TimeRange{After: 1700000000, Before: 1700003725.5}
	segs, err := BuildSegments(parent, 600)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}

	for ts := parent.After; ts <= parent.Before; ts += 7.25 {
		idx := segs.FindContainingIndex(ts)
		if idx < 0 {
			t.Fatalf("FindContainingIndex(%v) = -1 inside parent", ts)
		}
		chunk := segs.At(idx)
		if !(chunk.After <= ts && ts <= chunk.Before) {
			t.Fatalf("chunk %d %v does not contain %v", idx, chunk, ts)
		}
		matches := 0
		for i := 0; i < segs.Len(); i++ {
			c := segs.At(i)
			if c.After <= ts && ts < c.Before {
				matches++
			}
		}
		if ts < parent.Before && matches != 1 {
			t.Fatalf("%v lies in %d half-open chunks", ts, matches)
		}
	}

	if idx := segs.FindContainingIndex(parent.Before); idx != segs.Last() {
		t.Errorf("parent.Before resolved to %d, want last %d", idx, segs.Last())
	}
}

func TestFindContainingIndexBoundaryBelongsToLaterChunk(t *testing.T) {
	segs, _ := BuildSegments(TimeRange{After: 0, Before: 100}, 30)

	cases := map[float64]int{0: 0, 29.999: 0, 30: 1, 60: 2, 90: 3, 100: 3}
	for ts, want := range cases {
		if got := segs.FindContainingIndex(ts); got != want {
			t.Errorf("FindContainingIndex(%v) = %d, want %d", ts, got, want)
		}
	}
}

func TestFindContainingIndexOutsideParent(t *testing.T) {
	segs, _ := BuildSegments(TimeRange{After: 0, Before: 100}, 30)

	for _, ts := range []float64{-0.001, -50, 100.001, 1e9} {
		if got := segs.FindContainingIndex(ts); got != -1 {
			t.Errorf("FindContainingIndex(%v) = %d, want -1", ts, got)
		}
	}

	var empty SegmentIndex
	if got := empty.FindContainingIndex(0); got != -1 {
		t.Errorf("empty index returned %d", got)
	}
}

func TestBuildAlignedSegments(t *testing.T) {
	segs, err := BuildAlignedSegments(TimeRange{After: 3000, Before: 9000}, 3600)
	if err != nil {
		t.Fatalf("BuildAlignedSegments: %v", err)
	}

	want := []TimeRange{{3000, 3600}, {3600, 7200}, {7200, 9000}}
	got := segs.Chunks()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIntersect(t *testing.T) {
	r, ok := TimeRange{0, 50}.Intersect(TimeRange{20, 80})
	if !ok || r != (TimeRange{20, 50}) {
		t.Errorf("Intersect = %v %v", r, ok)
	}
	if _, ok := (TimeRange{0, 10}).Intersect(TimeRange{10, 20}); ok {
		t.Error("touching ranges should not intersect")
	}
}

func checkContiguous(t *testing.T, segs SegmentIndex) {
	t.Helper()

	chunks := segs.Chunks()
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	parent := segs.Parent()
	if chunks[0].After != parent.After || chunks[len(chunks)-1].Before != parent.Before {
		t.Errorf("chunks %v do not cover %v", chunks, parent)
	}
	for i, c := range chunks {
		if !c.Valid() {
			t.Errorf("chunk %d is empty: %v", i, c)
		}
		if i > 0 && chunks[i-1].Before != c.After {
			t.Errorf("gap between chunk %d and %d: %v %v", i-1, i, chunks[i-1], c)
		}
	}
}

func TestBuildSegmentsDoesNotDrift(t *testing.T) {
	for _, parent := range []TimeRange{{0, 1}, {0, 1.1}, {4.3, 5.6}} {
		segs, err := BuildSegments(parent, 0.1)
		if err != nil {
			t.Fatalf("BuildSegments(%v): %v", parent, err)
		}
		want := int(math.Round(parent.Duration() / 0.1))
		if segs.Len() != want {
			t.Errorf("%v: got %d chunks, want %d", parent, segs.Len(), want)
		}
		checkContiguous(t, segs)
	}
}

func TestBuildAlignedSegmentsSurvivesRounding(t *testing.T) {
	// floor(4.3/0.1) lands on 4.3 itself
	segs, err := BuildAlignedSegments(TimeRange{After: 0, Before: 10}, 0.1)
	if err != nil {
		t.Fatalf("BuildAlignedSegments: %v", err)
	}
	checkContiguous(t, segs)
	if segs.Len() < 99 || segs.Len() > 101 {
		t.Errorf("got %d chunks for 10s of 0.1s chunks", segs.Len())
	}

	segs, err = BuildAlignedSegments(TimeRange{After: 4.3, Before: 4.6}, 0.1)
	if err != nil {
		t.Fatalf("BuildAlignedSegments: %v", err)
	}
	checkContiguous(t, segs)
}

func TestBuildSegmentsRejectsTooManyChunks(t *testing.T) {
	parent := TimeRange{After: 1.7e9, Before: 1.7e9 + 1}
	if _, err := BuildSegments(parent, 1e-7); !errors.Is(err, ErrInvalidChunkDuration) {
		t.Errorf("BuildSegments: got %v, want ErrInvalidChunkDuration", err)
	}
	if _, err := BuildAlignedSegments(parent, 1e-7); !errors.Is(err, ErrInvalidChunkDuration) {
		t.Errorf("BuildAlignedSegments: got %v, want ErrInvalidChunkDuration", err)
	}

	day := TimeRange{After: 0, Before: 86400}
	if _, err := BuildSegments(day, 86400.0/MaxSegments); err != nil {
		t.Errorf("exactly MaxSegments chunks rejected: %v", err)
	}
}

func TestBuildSegmentsBelowFloatSpacing(t *testing.T) {
	// chunks finer than the float spacing at epoch scale collapse, but the
	// index still covers the parent
	parent := TimeRange{After: 1.7e9, Before: 1.7e9 + 1e-6}
	segs, err := BuildSegments(parent, 1e-7)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	checkContiguous(t, segs)
	if segs.FindContainingIndex(parent.Before) != segs.Last() {
		t.Error("parent end not in last chunk")
	}
}
