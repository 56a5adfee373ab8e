package playback

import (
	"testing"

	"reviewsync/internal/timeline"
)

func TestExportCommitsOnlyWhenBothBoundariesSet(t *testing.T) {
	e := NewExportSelector()
	e.SetMode(ExportTimeline)

	u := e.SetExportStartTime(20)
	if u.Committed {
		t.Fatalf("committed with only the start set: %+v", u)
	}
	if _, ok := e.Range(); ok {
		t.Fatal("range published before end was set")
	}

	u = e.SetExportEndTime(50)
	if !u.Committed {
		t.Fatal("range not committed once both boundaries were set")
	}
	if u.Range != (timeline.TimeRange{After: 20, Before: 50}) {
		t.Errorf("range = %v", u.Range)
	}
	if !u.Follow || u.FollowTime != 50 {
		t.Errorf("follow = %v %v, want the end boundary 50", u.Follow, u.FollowTime)
	}

	again := e.SetExportEndTime(50)
	if again.Committed {
		t.Error("identical range committed twice")
	}
}

func TestExportFollowsTheBoundaryThatMoved(t *testing.T) {
	e := NewExportSelector()
	e.SetMode(ExportTimeline)
	if err := e.SetExportRange(&timeline.TimeRange{After: 100, Before: 200}); err != nil {
		t.Fatal(err)
	}

	u := e.SetExportStartTime(120)
	if !u.Committed || u.FollowTime != 120 {
		t.Errorf("start drag: %+v", u)
	}

	u = e.SetExportEndTime(180)
	if !u.Committed || u.FollowTime != 180 {
		t.Errorf("end drag: %+v", u)
	}
}

func TestExportRejectsInvertedRange(t *testing.T) {
	e := NewExportSelector()
	e.SetMode(ExportTimeline)
	e.SetExportStartTime(80)

	if u := e.SetExportEndTime(40); u.Committed {
		t.Errorf("inverted range committed: %+v", u)
	}
	if _, ok := e.Range(); ok {
		t.Error("inverted range published")
	}
}

func TestExportHandlesIgnoredOutsideTimelineMode(t *testing.T) {
	e := NewExportSelector()
	e.SetMode(ExportSelect)
	e.SetExportStartTime(10)
	if u := e.SetExportEndTime(20); u.Committed {
		t.Error("handles committed in select mode")
	}

	if err := e.SetExportRange(&timeline.TimeRange{After: 5, Before: 5}); err == nil {
		t.Error("SetExportRange accepted an empty range")
	}

	if err := e.SetExportRange(&timeline.TimeRange{After: 5, Before: 9}); err != nil {
		t.Fatal(err)
	}
	e.SetMode(ExportNone)
	if _, ok := e.Range(); ok {
		t.Error("mode none kept the selection")
	}
}

func TestParseExportMode(t *testing.T) {
	for in, want := range map[string]ExportMode{"": ExportNone, "none": ExportNone, "select": ExportSelect, "timeline": ExportTimeline} {
		got, err := ParseExportMode(in)
		if err != nil || got != want {
			t.Errorf("ParseExportMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseExportMode("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
