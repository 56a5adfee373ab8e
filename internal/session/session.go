package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"reviewsync/internal/playback"
	"reviewsync/internal/timeline"
)

var ErrSessionClosed = errors.New("session: closed")

const (
	commandBuffer    = 64
	subscriberBuffer = 8
)

// Info describes a running session.
type Info struct {
	ID          string             `json:"id"`
	Cameras     []string           `json:"cameras"`
	Window      timeline.TimeRange `json:"window"`
	CreatedAt   time.Time          `json:"created_at"`
	Subscribers int                `json:"subscribers"`
	State       playback.Snapshot  `json:"state"`
}

// Session owns one coordinator and serialises every access to it on a single
// goroutine.
type Session struct {
	id        string
	cameras   []string
	window    timeline.TimeRange
	createdAt time.Time
	coord     *playback.Coordinator
	logger    zerolog.Logger

	cmds      chan func(*playback.Coordinator)
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	lastActivity atomic.Int64

	mu      sync.Mutex
	subs    map[int]chan playback.Snapshot
	nextSub int
	last    playback.Snapshot
	closed  bool
}

func newSession(id string, cameras []string, window timeline.TimeRange, coord *playback.Coordinator, logger zerolog.Logger) *Session {
	s := &Session{
		id:        id,
		cameras:   cameras,
		window:    window,
		createdAt: time.Now(),
		coord:     coord,
		logger:    logger,
		cmds:      make(chan func(*playback.Coordinator), commandBuffer),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		subs:      make(map[int]chan playback.Snapshot),
		last:      coord.Snapshot(),
	}
	s.touch()
	coord.OnStateChange(s.publish)

	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Cameras returns the cameras of the view, sorted.
func (s *Session) Cameras() []string {
	out := make([]string, len(s.cameras))
	copy(out, s.cameras)
	return out
}

func (s *Session) HasCamera(camera string) bool {
	for _, c := range s.cameras {
		if c == camera {
			return true
		}
	}
	return false
}

func (s *Session) Window() timeline.TimeRange { return s.window }

// Snapshot returns the last published state.
func (s *Session) Snapshot() playback.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:          s.id,
		Cameras:     s.Cameras(),
		Window:      s.window,
		CreatedAt:   s.createdAt,
		Subscribers: len(s.subs),
		State:       s.last,
	}
}

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) loop() {
	defer close(s.stopped)

	for {
		select {
		case fn := <-s.cmds:
			s.run(fn)
		case <-s.done:
			return
		}
	}
}

func (s *Session) run(fn func(*playback.Coordinator)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("session command panicked")
		}
	}()
	fn(s.coord)
}

// Do runs fn on the session goroutine and waits for its result.
func (s *Session) Do(ctx context.Context, fn func(*playback.Coordinator) error) error {
	errc := make(chan error, 1)
	cmd := func(c *playback.Coordinator) {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("session: command panicked: %v", r)
			}
			errc <- err
		}()
		err = fn(c)
	}

	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	s.touch()

	select {
	case err := <-errc:
		return err
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post queues fn without waiting. It reports false when the session is closed
// or its queue is full.
func (s *Session) Post(fn func(*playback.Coordinator)) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.cmds <- fn:
		s.touch()
		return true
	default:
		s.logger.Warn().Msg("session queue full, dropping command")
		return false
	}
}

// Subscribe returns a channel of state snapshots starting with the current
// one. Slow readers only see the newest frames. cancel must be called when
// the reader is done.
func (s *Session) Subscribe() (<-chan playback.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan playback.Snapshot, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.last

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) publish(snap playback.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = snap
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// drop the oldest frame to make room for the newest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Idle reports how long the session has gone without commands.
func (s *Session) Idle() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// Close stops the session goroutine and closes all subscriber channels.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
