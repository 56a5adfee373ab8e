package playback

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"reviewsync/internal/timeline"
)

var (
	ErrUnknownCamera = errors.New("playback: unknown camera")
	ErrOutOfRange    = errors.New("playback: timestamp outside review range")
)

type Config struct {
	// SeekTolerance is the distance in seconds under which the main player is
	// considered to already be at a requested time.
	SeekTolerance float64
	// ResetScrubOnSwitch clears the scrubbing flag when the main camera changes.
	ResetScrubOnSwitch bool
}

func DefaultConfig() Config {
	return Config{
		SeekTolerance:      1,
		ResetScrubOnSwitch: true,
	}
}

// Snapshot is everything a timeline UI renders.
type Snapshot struct {
	State
	ActiveRange timeline.TimeRange `json:"active_range"`
	Export      ExportSelection    `json:"export"`
	Pending     *PendingSeek       `json:"pending,omitempty"`
}

// Coordinator keeps the main player, the preview players, the timeline and
// the export selection on one time axis. It is not safe for concurrent use;
// a single goroutine must own it.
type Coordinator struct {
	cfg      Config
	cameras  map[string]timeline.SegmentIndex
	store    *TimeStore
	registry *Registry
	policy   *Policy
	export   *ExportSelector
	logger   zerolog.Logger

	// lastKnown is the best estimate of where the main player is: the last
	// seek it accepted or the last time it reported. NaN when unknown.
	lastKnown float64
	// lastSeek is the target of the last seek the main player accepted in
	// its current source window, NaN once the player has moved away from it.
	lastSeek    float64
	lastPreview float64
	observers   []func(Snapshot)
}

// New creates a coordinator for cameras, each with its own segment index,
// starting on main at start. The initial position is armed as a pending seek
// that fires when the main player first reports ready.
func New(cfg Config, cameras map[string]timeline.SegmentIndex, main string, start float64, logger zerolog.Logger) (*Coordinator, error) {
	segments, ok := cameras[main]
	if !ok || segments.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCamera, main)
	}

	active := segments.FindContainingIndex(start)
	if active < 0 {
		return nil, fmt.Errorf("%w: %.3f not in %v", ErrOutOfRange, start, segments.Parent())
	}

	if cfg.SeekTolerance < 0 {
		cfg.SeekTolerance = 0
	}

	c := &Coordinator{
		cfg:         cfg,
		cameras:     cameras,
		store:       NewTimeStore(start),
		registry:    NewRegistry(main, logger),
		policy:      NewPolicy(segments, active),
		export:      NewExportSelector(),
		logger:      logger,
		lastKnown:   math.NaN(),
		lastSeek:    math.NaN(),
		lastPreview: math.NaN(),
	}
	c.policy.Activate(active, start, false)
	c.store.setActiveSegment(active)
	c.store.setMainCamera(main)

	return c, nil
}

// OnStateChange registers fn to receive a snapshot after every change.
func (c *Coordinator) OnStateChange(fn func(Snapshot)) {
	c.observers = append(c.observers, fn)
}

func (c *Coordinator) State() State { return c.store.State() }

func (c *Coordinator) Snapshot() Snapshot {
	s := Snapshot{
		State:       c.store.State(),
		ActiveRange: c.policy.ActiveRange(),
		Export:      c.export.Selection(),
	}
	if ps, ok := c.policy.Pending(); ok {
		s.Pending = &ps
	}
	return s
}

func (c *Coordinator) Pending() (PendingSeek, bool) { return c.policy.Pending() }

// Segments returns the segment index of the current main camera.
func (c *Coordinator) Segments() timeline.SegmentIndex { return c.policy.Segments() }

func (c *Coordinator) ActiveRange() timeline.TimeRange { return c.policy.ActiveRange() }

func (c *Coordinator) MainCamera() string { return c.registry.MainCamera() }

func (c *Coordinator) Export() *ExportSelector { return c.export }

// Attached reports whether camera currently has a registered player.
func (c *Coordinator) Attached(camera string) bool {
	_, ok := c.registry.Handle(camera)
	return ok
}

// Cameras returns the segment index for every camera in the view.
func (c *Coordinator) Cameras() map[string]timeline.SegmentIndex {
	out := make(map[string]timeline.SegmentIndex, len(c.cameras))
	for k, v := range c.cameras {
		out[k] = v
	}
	return out
}

// ManuallySetCurrentTime moves the view to t on user request. CurrentTime is
// updated before any player is touched. Inside the active segment the main
// player is resynced in place; otherwise the segment is switched and the seek
// deferred until the reloaded player is ready. forceSameSegment re-issues the
// in-segment seek even when the player reports a time within tolerance, but
// never repeats the seek the player was last sent.
// Timestamps outside the review range are ignored.
func (c *Coordinator) ManuallySetCurrentTime(t float64, forceSameSegment bool) bool {
	tr := c.policy.Evaluate(t)
	if tr.Decision == OutOfRange {
		c.logger.Warn().
			Float64("time", t).
			Interface("range", c.policy.Segments().Parent()).
			Msg("ignoring seek outside review range")
		return false
	}

	c.store.SetCurrentTime(t)

	switch tr.Decision {
	case Stay:
		c.resync(t, forceSameSegment)
	case Switch:
		c.switchSegment(tr.Index, t, c.store.State().Playing)
	}

	c.notify()
	return true
}

func (c *Coordinator) resync(t float64, force bool) {
	// the main player is still loading: retarget its pending seek instead
	if ps, ok := c.policy.Pending(); ok {
		c.policy.Activate(ps.SegmentIndex, t, ps.Autoplay)
		c.scrubPreviews(t)
		return
	}

	if c.store.IsScrubbing() {
		c.registry.BroadcastScrub(t)
		c.lastPreview = t
		return
	}

	if t != c.lastSeek && (force || !c.atTarget(t)) {
		c.seekMain(t)
	}
	c.scrubPreviews(t)
}

func (c *Coordinator) seekMain(t float64) {
	if c.registry.SeekMain(t, true) {
		c.lastKnown = t
		c.lastSeek = t
	}
}

// forgetPosition drops what is known about the main player's position, for
// when it is reloaded or replaced.
func (c *Coordinator) forgetPosition() {
	c.lastKnown = math.NaN()
	c.lastSeek = math.NaN()
}

func (c *Coordinator) switchSegment(i int, t float64, autoplay bool) {
	c.logger.Debug().
		Int("from", c.policy.Active()).
		Int("to", i).
		Float64("time", t).
		Msg("switching segment")

	c.policy.Activate(i, t, autoplay)
	c.store.setActiveSegment(i)
	c.loadMain()
	c.scrubPreviews(t)
}

// loadMain points the main player at the active chunk. Players that cannot
// reload receive the pending seek right away; the rest get it on ready.
func (c *Coordinator) loadMain() {
	h, ok := c.registry.Handle(c.registry.MainCamera())
	if !ok {
		return
	}
	if _, loader := h.(SourceLoader); loader && c.registry.LoadMain(c.policy.ActiveRange()) {
		c.forgetPosition()
		return
	}
	c.flushPending()
}

// flushPending fires the armed seek if the main player can take it.
func (c *Coordinator) flushPending() bool {
	if _, ok := c.registry.Main(); !ok {
		return false
	}
	ps, ok := c.policy.ConsumePending()
	if !ok {
		return false
	}

	c.seekMain(ps.TargetTime)
	if ps.Autoplay || c.store.State().Playing {
		if c.registry.PlayMain() {
			c.store.setPlaying(true)
		}
	}
	return true
}

func (c *Coordinator) atTarget(t float64) bool {
	return math.Abs(t-c.lastKnown) < c.cfg.SeekTolerance
}

func (c *Coordinator) scrubPreviews(t float64) {
	c.registry.ScrubPreviews(t)
	c.lastPreview = t
}

// SetScrubbing marks the start or end of a timeline drag. Ending a drag seeks
// the main player to the settled time and resumes playback if it was playing.
func (c *Coordinator) SetScrubbing(b bool) {
	if c.store.IsScrubbing() == b {
		return
	}
	c.store.SetScrubbing(b)

	if b {
		c.registry.PauseMain()
		c.notify()
		return
	}

	t := c.store.CurrentTime()
	if _, pending := c.policy.Pending(); !pending {
		c.seekMain(t)
		if c.store.State().Playing {
			c.registry.PlayMain()
		}
	}
	c.notify()
}

// OnReady registers the controller of a player that finished loading. The
// main player receives the pending seek, or catches up with CurrentTime;
// previews catch up by scrubbing.
func (c *Coordinator) OnReady(camera string, h Controller) {
	c.registry.Register(camera, h)

	if camera != c.registry.MainCamera() {
		c.registry.Scrub(camera, c.store.CurrentTime())
		return
	}

	if c.flushPending() {
		c.notify()
		return
	}

	t := c.store.CurrentTime()
	c.seekMain(t)
	if c.store.State().Playing && !c.store.IsScrubbing() {
		c.registry.PlayMain()
	}
}

// OnUnmount drops whatever handle camera has registered.
func (c *Coordinator) OnUnmount(camera string) {
	c.registry.Unregister(camera)
}

// Release drops camera's handle only if it is still h.
func (c *Coordinator) Release(camera string, h Controller) bool {
	return c.registry.Release(camera, h)
}

// OnTimeUpdate handles a "timeupdate" from a player. Only the main player
// drives the clock, and only while the user is not dragging.
func (c *Coordinator) OnTimeUpdate(camera string, t float64) {
	if camera != c.registry.MainCamera() {
		return
	}
	// reports from the previous source window move PlayerTime only
	if _, pending := c.policy.Pending(); pending {
		c.store.recordPlayerTime(t)
		return
	}

	changed := c.store.ReportPlayerTime(t)
	if c.store.IsScrubbing() {
		return
	}
	c.lastKnown = t
	if math.Abs(t-c.lastSeek) >= c.cfg.SeekTolerance {
		c.lastSeek = math.NaN()
	}

	if c.store.State().Playing && t >= c.policy.ActiveRange().Before {
		c.advance()
		return
	}

	if !changed {
		return
	}
	if math.IsNaN(c.lastPreview) || math.Abs(t-c.lastPreview) >= c.cfg.SeekTolerance {
		c.scrubPreviews(t)
	}
	c.notify()
}

// OnEnded handles the main player running off the end of its source window.
func (c *Coordinator) OnEnded(camera string) {
	if camera != c.registry.MainCamera() || c.store.IsScrubbing() {
		return
	}
	if _, pending := c.policy.Pending(); pending {
		return
	}
	c.advance()
}

func (c *Coordinator) advance() {
	next, ok := c.policy.Advance()
	if !ok {
		c.registry.PauseMain()
		c.store.setPlaying(false)
		c.logger.Debug().Int("segment", next).Msg("reached end of review range")
		c.notify()
		return
	}

	start := c.policy.ActiveRange().After
	c.store.setActiveSegment(next)
	c.store.SetCurrentTime(start)
	c.store.setPlaying(true)
	c.loadMain()
	c.scrubPreviews(start)
	c.notify()
}

func (c *Coordinator) Play() {
	c.store.setPlaying(true)
	if _, pending := c.policy.Pending(); !pending && !c.store.IsScrubbing() {
		c.registry.PlayMain()
	}
	c.notify()
}

func (c *Coordinator) Pause() {
	c.store.setPlaying(false)
	c.registry.PauseMain()
	c.notify()
}

// SwitchCamera makes camera the main camera, keeping CurrentTime. The active
// segment is re-resolved against the new camera's own segment index.
func (c *Coordinator) SwitchCamera(camera string) error {
	segments, ok := c.cameras[camera]
	if !ok || segments.Empty() {
		return fmt.Errorf("%w: %s", ErrUnknownCamera, camera)
	}
	if camera == c.registry.MainCamera() {
		return nil
	}

	t := c.store.CurrentTime()
	if !c.policy.Rebase(segments, t, c.store.State().Playing) {
		return fmt.Errorf("%w: %.3f not recorded by %s", ErrOutOfRange, t, camera)
	}

	prev := c.registry.MainCamera()
	c.registry.SetMain(camera)
	c.store.setMainCamera(camera)
	c.store.setActiveSegment(c.policy.Active())
	if c.cfg.ResetScrubOnSwitch {
		c.store.SetScrubbing(false)
	}
	c.forgetPosition()

	c.logger.Debug().
		Str("from", prev).
		Str("to", camera).
		Float64("time", t).
		Msg("switching main camera")

	c.loadMain()
	c.scrubPreviews(t)
	c.notify()
	return nil
}

func (c *Coordinator) SetExportMode(m ExportMode) {
	c.export.SetMode(m)
	c.notify()
}

func (c *Coordinator) SetExportRange(r *timeline.TimeRange) error {
	if err := c.export.SetExportRange(r); err != nil {
		return err
	}
	c.notify()
	return nil
}

// SetExportStartTime moves the start handle. When the range commits, the view
// follows the handle that moved.
func (c *Coordinator) SetExportStartTime(t float64) ExportUpdate {
	return c.applyExport(c.export.SetExportStartTime(t))
}

func (c *Coordinator) SetExportEndTime(t float64) ExportUpdate {
	return c.applyExport(c.export.SetExportEndTime(t))
}

func (c *Coordinator) applyExport(u ExportUpdate) ExportUpdate {
	if !u.Committed {
		return u
	}
	// a followed boundary notifies through ManuallySetCurrentTime
	if u.Follow && c.ManuallySetCurrentTime(u.FollowTime, false) {
		return u
	}
	c.notify()
	return u
}

func (c *Coordinator) notify() {
	if len(c.observers) == 0 {
		return
	}
	s := c.Snapshot()
	for _, fn := range c.observers {
		fn(s)
	}
}
