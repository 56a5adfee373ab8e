package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"reviewsync/internal/playback"
	"reviewsync/internal/storage"
	"reviewsync/internal/timeline"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	ErrNoCoverage      = errors.New("session: no recordings in range")
	ErrInvalidRequest  = errors.New("session: invalid request")
)

// Store is the part of storage sessions read coverage from and persist
// positions to.
type Store interface {
	Coverage(camera string, window timeline.TimeRange) (timeline.TimeRange, bool, error)
	GetPlaybackPosition(camera string) (*storage.PlaybackPosition, error)
	SavePlaybackPosition(p *storage.PlaybackPosition) error
}

type Options struct {
	ChunkDuration    float64 // seconds
	AlignChunks      bool
	Playback         playback.Config
	SegmentCacheSize int
	IdleTimeout      time.Duration
}

// CreateRequest opens a review of cameras over [After, Before]. Start
// defaults to the saved position of Main when Resume is set, else to the
// beginning of Main's coverage.
type CreateRequest struct {
	Cameras []string `json:"cameras"`
	Main    string   `json:"main"`
	After   float64  `json:"after"`
	Before  float64  `json:"before"`
	Start   *float64 `json:"start,omitempty"`
	Resume  bool     `json:"resume"`
}

type Manager struct {
	store    Store
	opts     Options
	segments *lru.Cache[string, timeline.SegmentIndex]
	logger   zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(store Store, opts Options, logger zerolog.Logger) (*Manager, error) {
	if opts.ChunkDuration <= 0 {
		return nil, fmt.Errorf("%w: %v", timeline.ErrInvalidChunkDuration, opts.ChunkDuration)
	}
	if opts.SegmentCacheSize <= 0 {
		opts.SegmentCacheSize = 256
	}

	segments, err := lru.New[string, timeline.SegmentIndex](opts.SegmentCacheSize)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:    store,
		opts:     opts,
		segments: segments,
		logger:   logger.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*Session),
	}, nil
}

// Segments returns the segment index of camera over the part of window it
// has recordings for. chunk <= 0 uses the configured chunk duration.
func (m *Manager) Segments(camera string, window timeline.TimeRange, chunk float64) (timeline.SegmentIndex, error) {
	if chunk <= 0 {
		chunk = m.opts.ChunkDuration
	}

	covered, ok, err := m.store.Coverage(camera, window)
	if err != nil {
		return timeline.SegmentIndex{}, fmt.Errorf("coverage of %s: %w", camera, err)
	}
	if !ok {
		return timeline.SegmentIndex{}, fmt.Errorf("%w: %s", ErrNoCoverage, camera)
	}

	key := segmentKey(camera, covered, chunk, m.opts.AlignChunks)
	if idx, ok := m.segments.Get(key); ok {
		return idx, nil
	}

	var idx timeline.SegmentIndex
	if m.opts.AlignChunks {
		idx, err = timeline.BuildAlignedSegments(covered, chunk)
	} else {
		idx, err = timeline.BuildSegments(covered, chunk)
	}
	if err != nil {
		return timeline.SegmentIndex{}, err
	}

	m.segments.Add(key, idx)
	return idx, nil
}

// segmentKey keeps full float precision so coverages that differ by less
// than a millisecond get their own index.
func segmentKey(camera string, covered timeline.TimeRange, chunk float64, aligned bool) string {
	return strings.Join([]string{
		camera,
		strconv.FormatFloat(covered.After, 'g', -1, 64),
		strconv.FormatFloat(covered.Before, 'g', -1, 64),
		strconv.FormatFloat(chunk, 'g', -1, 64),
		strconv.FormatBool(aligned),
	}, "|")
}

func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	if len(req.Cameras) == 0 {
		return nil, fmt.Errorf("%w: no cameras", ErrInvalidRequest)
	}
	window := timeline.TimeRange{After: req.After, Before: req.Before}
	if !window.Valid() {
		return nil, fmt.Errorf("%w: %v", timeline.ErrInvalidRange, window)
	}

	main := req.Main
	if main == "" {
		main = req.Cameras[0]
	}

	cameras := make(map[string]timeline.SegmentIndex, len(req.Cameras))
	for _, camera := range req.Cameras {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx, err := m.Segments(camera, window, 0)
		if errors.Is(err, ErrNoCoverage) && camera != main {
			m.logger.Warn().Str("camera", camera).Msg("camera has no recordings in range, leaving it out")
			continue
		}
		if err != nil {
			return nil, err
		}
		cameras[camera] = idx
	}
	if _, ok := cameras[main]; !ok {
		return nil, fmt.Errorf("%w: main camera %s is not in the view", ErrInvalidRequest, main)
	}

	start := m.startTime(req, main, cameras[main].Parent())

	coord, err := playback.New(m.opts.Playback, cameras, main, start, m.logger.With().Str("main", main).Logger())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cameras))
	for name := range cameras {
		names = append(names, name)
	}
	sort.Strings(names)

	id := uuid.NewString()
	s := newSession(id, names, window, coord, m.logger.With().Str("session", id).Logger())

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info().
		Str("session", id).
		Strs("cameras", names).
		Str("main", main).
		Float64("start", start).
		Msg("session created")

	return s, nil
}

func (m *Manager) startTime(req CreateRequest, main string, covered timeline.TimeRange) float64 {
	if req.Start != nil {
		return *req.Start
	}
	if req.Resume {
		pos, err := m.store.GetPlaybackPosition(main)
		if err != nil {
			m.logger.Warn().Err(err).Str("camera", main).Msg("failed to load saved position")
		} else if pos != nil && covered.Contains(pos.Position) {
			return pos.Position
		}
	}
	return covered.After
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Close stops a session and saves its position for every camera that
// recorded it.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	var (
		current float64
		covered []string
	)
	err := s.Do(ctx, func(c *playback.Coordinator) error {
		current = c.State().CurrentTime
		for name, idx := range c.Cameras() {
			if idx.Parent().Contains(current) {
				covered = append(covered, name)
			}
		}
		return nil
	})
	s.Close()
	if err != nil {
		return err
	}

	now := time.Now()
	for _, camera := range covered {
		if err := m.store.SavePlaybackPosition(&storage.PlaybackPosition{
			Camera:    camera,
			Position:  current,
			UpdatedAt: now,
		}); err != nil {
			m.logger.Error().Err(err).Str("camera", camera).Msg("failed to save position")
		}
	}

	m.logger.Info().Str("session", id).Float64("position", current).Msg("session closed")
	return nil
}

func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn().Err(err).Str("session", id).Msg("failed to close session")
		}
	}
}

// Run closes sessions that have no subscribers and have been idle longer
// than the idle timeout, until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.opts.IdleTimeout <= 0 {
		return
	}

	interval := max(min(m.opts.IdleTimeout/2, time.Minute), time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapIdle(ctx)
		}
	}
}

func (m *Manager) reapIdle(ctx context.Context) {
	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.Idle() > m.opts.IdleTimeout && s.Info().Subscribers == 0 {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.logger.Info().Str("session", id).Msg("closing idle session")
		if err := m.Close(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.Warn().Err(err).Str("session", id).Msg("failed to close idle session")
		}
	}
}
