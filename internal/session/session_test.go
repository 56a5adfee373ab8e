package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reviewsync/internal/playback"
	"reviewsync/internal/storage"
	"reviewsync/internal/timeline"
)

type fakeStore struct {
	mu        sync.Mutex
	coverage  map[string]timeline.TimeRange
	positions map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		coverage: map[string]timeline.TimeRange{
			"front": {After: 1000, Before: 1100},
			"back":  {After: 1020, Before: 1200},
		},
		positions: make(map[string]float64),
	}
}

func (f *fakeStore) Coverage(camera string, window timeline.TimeRange) (timeline.TimeRange, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cov, ok := f.coverage[camera]
	if !ok {
		return timeline.TimeRange{}, false, nil
	}
	covered, ok := window.Intersect(cov)
	return covered, ok, nil
}

func (f *fakeStore) GetPlaybackPosition(camera string) (*storage.PlaybackPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[camera]
	if !ok {
		return nil, nil
	}
	return &storage.PlaybackPosition{Camera: camera, Position: pos}, nil
}

func (f *fakeStore) SavePlaybackPosition(p *storage.PlaybackPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[p.Camera] = p.Position
	return nil
}

func newTestManager(t *testing.T, store Store) *Manager {
	t.Helper()

	m, err := NewManager(store, Options{
		ChunkDuration: 30,
		Playback:      playback.DefaultConfig(),
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.CloseAll(context.Background()) })
	return m
}

func TestCreateResolvesCoverage(t *testing.T) {
	m := newTestManager(t, newFakeStore())

	s, err := m.Create(context.Background(), CreateRequest{
		Cameras: []string{"front", "back", "side"},
		After:   0,
		Before:  5000,
	})
	if err != nil {
		t.Fatal(err)
	}

	cams := s.Cameras()
	if len(cams) != 2 || cams[0] != "back" || cams[1] != "front" {
		t.Errorf("cameras = %v, want [back front]", cams)
	}
	snap := s.Snapshot()
	if snap.CurrentTime != 1000 || snap.MainCamera != "front" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Pending == nil || snap.Pending.TargetTime != 1000 {
		t.Errorf("initial seek not armed: %+v", snap.Pending)
	}

	got, err := m.Get(s.ID())
	if err != nil || got != s {
		t.Errorf("Get = %v %v", got, err)
	}
	if infos := m.List(); len(infos) != 1 || infos[0].ID != s.ID() {
		t.Errorf("List = %+v", infos)
	}
}

func TestCreateRejectsBadRequests(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	ctx := context.Background()

	if _, err := m.Create(ctx, CreateRequest{After: 0, Before: 10}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("no cameras: %v", err)
	}
	if _, err := m.Create(ctx, CreateRequest{Cameras: []string{"front"}, After: 10, Before: 10}); !errors.Is(err, timeline.ErrInvalidRange) {
		t.Errorf("empty window: %v", err)
	}
	if _, err := m.Create(ctx, CreateRequest{Cameras: []string{"side", "front"}, After: 0, Before: 5000}); !errors.Is(err, ErrNoCoverage) {
		t.Errorf("main without recordings: %v", err)
	}
	if _, err := m.Create(ctx, CreateRequest{Cameras: []string{"front"}, Main: "back", After: 0, Before: 5000}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("main outside the view: %v", err)
	}
	start := 5.0
	if _, err := m.Create(ctx, CreateRequest{Cameras: []string{"front"}, After: 0, Before: 5000, Start: &start}); !errors.Is(err, playback.ErrOutOfRange) {
		t.Errorf("start outside coverage: %v", err)
	}
}

func TestSegmentsAreCached(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	window := timeline.TimeRange{After: 0, Before: 5000}

	a, err := m.Segments("back", window, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Segments("back", window, 0)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 6 || a.Parent() != b.Parent() || m.segments.Len() != 1 {
		t.Errorf("len=%d cached=%d", a.Len(), m.segments.Len())
	}

	if _, err := m.Segments("back", window, 60); err != nil {
		t.Fatal(err)
	}
	if m.segments.Len() != 2 {
		t.Errorf("chunk size not part of the cache key")
	}
}

func TestDoAndSubscribe(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	s, err := m.Create(context.Background(), CreateRequest{Cameras: []string{"front"}, After: 0, Before: 5000})
	if err != nil {
		t.Fatal(err)
	}

	frames, cancel := s.Subscribe()
	defer cancel()

	if first := <-frames; first.CurrentTime != 1000 {
		t.Errorf("first frame = %+v", first)
	}

	for i := 1; i <= 20; i++ {
		ts := 1000 + float64(i)
		err := s.Do(context.Background(), func(c *playback.Coordinator) error {
			c.ManuallySetCurrentTime(ts, false)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	var last playback.Snapshot
	n := 0
	for len(frames) > 0 {
		last = <-frames
		n++
	}
	if n > subscriberBuffer || last.CurrentTime != 1020 {
		t.Errorf("drained %d frames, last = %v", n, last.CurrentTime)
	}
	if s.Snapshot().CurrentTime != 1020 {
		t.Errorf("snapshot = %v", s.Snapshot().CurrentTime)
	}
}

func TestDoRecoversPanic(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	s, err := m.Create(context.Background(), CreateRequest{Cameras: []string{"front"}, After: 0, Before: 5000})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Do(context.Background(), func(*playback.Coordinator) error { panic("boom") })
	if err == nil {
		t.Fatal("expected error from panicking command")
	}

	done := make(chan struct{})
	if !s.Post(func(*playback.Coordinator) { close(done) }) {
		t.Fatal("Post rejected")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session loop stopped after a panic")
	}
}

func TestCloseSavesPositionAndResume(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(t, store)
	ctx := context.Background()

	s, err := m.Create(ctx, CreateRequest{Cameras: []string{"front", "back"}, After: 0, Before: 5000})
	if err != nil {
		t.Fatal(err)
	}
	frames, _ := s.Subscribe()

	if err := s.Do(ctx, func(c *playback.Coordinator) error {
		c.ManuallySetCurrentTime(1010, false)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := m.Close(ctx, s.ID()); err != nil {
		t.Fatal(err)
	}
	if store.positions["front"] != 1010 {
		t.Errorf("front position = %v", store.positions["front"])
	}
	if _, ok := store.positions["back"]; ok {
		t.Error("position saved for a camera that did not record it")
	}

	for range frames {
	}
	if err := s.Do(ctx, func(*playback.Coordinator) error { return nil }); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Do after close: %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after close: %v", err)
	}
	if err := m.Close(ctx, s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double close: %v", err)
	}

	resumed, err := m.Create(ctx, CreateRequest{Cameras: []string{"front"}, After: 0, Before: 5000, Resume: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := resumed.Snapshot().CurrentTime; got != 1010 {
		t.Errorf("resumed at %v, want 1010", got)
	}
}

func TestReapIdle(t *testing.T) {
	m := newTestManager(t, newFakeStore())
	m.opts.IdleTimeout = time.Millisecond

	idle, err := m.Create(context.Background(), CreateRequest{Cameras: []string{"front"}, After: 0, Before: 5000})
	if err != nil {
		t.Fatal(err)
	}
	watched, err := m.Create(context.Background(), CreateRequest{Cameras: []string{"front"}, After: 0, Before: 5000})
	if err != nil {
		t.Fatal(err)
	}
	_, cancel := watched.Subscribe()
	defer cancel()

	time.Sleep(5 * time.Millisecond)
	m.reapIdle(context.Background())

	if _, err := m.Get(idle.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Error("idle session survived")
	}
	if _, err := m.Get(watched.ID()); err != nil {
		t.Error("session with a subscriber was reaped")
	}
}

func TestSegmentsCacheKeepsSubMillisecondCoverage(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(t, store)
	window := timeline.TimeRange{After: 0, Before: 5000}

	store.mu.Lock()
	store.coverage["side"] = timeline.TimeRange{After: 1000, Before: 1100.0001}
	store.mu.Unlock()
	first, err := m.Segments("side", window, 0)
	if err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.coverage["side"] = timeline.TimeRange{After: 1000, Before: 1100.0002}
	store.mu.Unlock()
	second, err := m.Segments("side", window, 0)
	if err != nil {
		t.Fatal(err)
	}

	if first.Parent().Before != 1100.0001 || second.Parent().Before != 1100.0002 {
		t.Errorf("parents = %v %v", first.Parent(), second.Parent())
	}
	if m.segments.Len() != 2 {
		t.Errorf("cached %d indexes, want 2", m.segments.Len())
	}
}
