package playback

import (
	"testing"

	"reviewsync/internal/timeline"
)

func TestPolicyEvaluate(t *testing.T) {
	segs, _ := timeline.BuildSegments(timeline.TimeRange{After: 0, Before: 100}, 30)
	p := NewPolicy(segs, 1)

	cases := []struct {
		t    float64
		want Transition
	}{
		{45, Transition{Decision: Stay, Index: 1}},
		{30, Transition{Decision: Stay, Index: 1}},
		{95, Transition{Decision: Switch, Index: 3}},
		{0, Transition{Decision: Switch, Index: 0}},
		{101, Transition{Decision: OutOfRange, Index: -1}},
	}
	for _, tc := range cases {
		if got := p.Evaluate(tc.t); got != tc.want {
			t.Errorf("Evaluate(%v) = %+v (%s), want %+v", tc.t, got, got.Decision, tc.want)
		}
	}
}

func TestPolicyPendingIsReplacedNotQueued(t *testing.T) {
	segs, _ := timeline.BuildSegments(timeline.TimeRange{After: 0, Before: 300}, 30)
	p := NewPolicy(segs, 0)

	p.Activate(2, 75, false)
	p.Activate(5, 160, true)

	ps, ok := p.ConsumePending()
	if !ok || ps != (PendingSeek{SegmentIndex: 5, TargetTime: 160, Autoplay: true}) {
		t.Fatalf("ConsumePending = %+v %v", ps, ok)
	}
	if _, ok := p.ConsumePending(); ok {
		t.Error("pending seek consumed twice")
	}
}

func TestPolicyAdvance(t *testing.T) {
	segs, _ := timeline.BuildSegments(timeline.TimeRange{After: 0, Before: 100}, 30)
	p := NewPolicy(segs, 2)

	next, ok := p.Advance()
	if !ok || next != 3 {
		t.Fatalf("Advance = %d %v", next, ok)
	}
	if ps, _ := p.Pending(); ps.TargetTime != 90 || !ps.Autoplay {
		t.Errorf("pending = %+v, want autoplay seek to 90", ps)
	}

	if _, ok := p.Advance(); ok {
		t.Error("Advance past the last segment succeeded")
	}
}

func TestPolicyRebase(t *testing.T) {
	a, _ := timeline.BuildSegments(timeline.TimeRange{After: 0, Before: 100}, 30)
	b, _ := timeline.BuildSegments(timeline.TimeRange{After: 50, Before: 200}, 30)
	p := NewPolicy(a, 0)

	if p.Rebase(b, 10, false) {
		t.Fatal("Rebase accepted a time outside the new index")
	}
	if p.Segments().Parent() != a.Parent() {
		t.Error("failed Rebase replaced the segments")
	}

	if !p.Rebase(b, 85, false) {
		t.Fatal("Rebase rejected a covered time")
	}
	if p.Active() != 1 {
		t.Errorf("Active = %d, want 1", p.Active())
	}
}
