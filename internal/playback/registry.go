package playback

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"reviewsync/internal/timeline"
)

// Registry maps camera ids to the controller handles of their mounted
// players. It never owns a player's lifecycle: players register on ready and
// are released on unmount.
type Registry struct {
	handles map[string]Controller
	main    string
	logger  zerolog.Logger
}

func NewRegistry(main string, logger zerolog.Logger) *Registry {
	return &Registry{
		handles: make(map[string]Controller),
		main:    main,
		logger:  logger,
	}
}

// Register stores h for camera, replacing any previous handle.
func (r *Registry) Register(camera string, h Controller) {
	if h == nil {
		return
	}
	r.handles[camera] = h
	r.tellMain(camera, h, camera == r.main)
}

func (r *Registry) Unregister(camera string) {
	delete(r.handles, camera)
}

// Release removes the handle for camera only if it is still h. A player that
// was remounted keeps its newer handle when the old one unmounts late.
func (r *Registry) Release(camera string, h Controller) bool {
	cur, ok := r.handles[camera]
	if !ok || cur != h {
		return false
	}
	delete(r.handles, camera)
	return true
}

// SetMain makes camera the main camera. The old and the new main handle are
// told about the change.
func (r *Registry) SetMain(camera string) {
	if camera == r.main {
		return
	}
	prev := r.main
	r.main = camera
	if h, ok := r.handles[prev]; ok {
		r.tellMain(prev, h, false)
	}
	if h, ok := r.handles[camera]; ok {
		r.tellMain(camera, h, true)
	}
}

func (r *Registry) tellMain(camera string, h Controller, main bool) {
	if m, ok := h.(MainSetter); ok {
		r.invoke(camera, "set_main", h, func(Controller) error {
			m.SetMain(main)
			return nil
		})
	}
}

func (r *Registry) MainCamera() string {
	return r.main
}

func (r *Registry) Handle(camera string) (Controller, bool) {
	h, ok := r.handles[camera]
	return h, ok
}

// Main returns the main handle if it is registered and ready.
func (r *Registry) Main() (Controller, bool) {
	h, ok := r.handles[r.main]
	if !ok || !isReady(h) {
		return nil, false
	}
	return h, true
}

// Previews returns the camera ids of every registered non-main handle, sorted.
func (r *Registry) Previews() []string {
	cameras := make([]string, 0, len(r.handles))
	for camera := range r.handles {
		if camera != r.main {
			cameras = append(cameras, camera)
		}
	}
	sort.Strings(cameras)
	return cameras
}

func (r *Registry) Len() int {
	return len(r.handles)
}

// BroadcastScrub scrubs the main handle and every preview to t. It returns the
// number of handles that accepted the call.
func (r *Registry) BroadcastScrub(t float64) int {
	n := 0
	if r.call(r.main, "scrub", func(h Controller) error { return h.ScrubToTimestamp(t) }) {
		n++
	}
	return n + r.ScrubPreviews(t)
}

// ScrubPreviews scrubs only the preview handles to t.
func (r *Registry) ScrubPreviews(t float64) int {
	n := 0
	for _, camera := range r.Previews() {
		if r.call(camera, "scrub", func(h Controller) error { return h.ScrubToTimestamp(t) }) {
			n++
		}
	}
	return n
}

// Scrub scrubs a single camera's handle to t.
func (r *Registry) Scrub(camera string, t float64) bool {
	return r.call(camera, "scrub", func(h Controller) error { return h.ScrubToTimestamp(t) })
}

// LoadMain points the main player at a new source window. Readiness is not
// required: a player still loading an older window must be redirected.
func (r *Registry) LoadMain(tr timeline.TimeRange) bool {
	h, ok := r.handles[r.main]
	if !ok {
		return false
	}
	l, ok := h.(SourceLoader)
	if !ok {
		return false
	}
	return r.invoke(r.main, "load", h, func(Controller) error { return l.LoadRange(tr) })
}

func (r *Registry) SeekMain(t float64, force bool) bool {
	return r.call(r.main, "seek", func(h Controller) error { return h.SeekToTimestamp(t, force) })
}

func (r *Registry) PlayMain() bool {
	return r.call(r.main, "play", func(h Controller) error { return h.Play() })
}

func (r *Registry) PauseMain() bool {
	return r.call(r.main, "pause", func(h Controller) error { return h.Pause() })
}

// call runs fn against the handle for camera. Missing or unready handles are
// skipped; errors and panics are logged and never escape.
func (r *Registry) call(camera, op string, fn func(Controller) error) bool {
	h, found := r.handles[camera]
	if !found || !isReady(h) {
		return false
	}
	return r.invoke(camera, op, h, fn)
}

func (r *Registry) invoke(camera, op string, h Controller, fn func(Controller) error) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn().
				Str("camera", camera).
				Str("op", op).
				Err(fmt.Errorf("controller panic: %v", p)).
				Msg("controller call failed")
			ok = false
		}
	}()

	if err := fn(h); err != nil {
		r.logger.Debug().
			Err(err).
			Str("camera", camera).
			Str("op", op).
			Msg("controller call failed")
		return false
	}
	return true
}
