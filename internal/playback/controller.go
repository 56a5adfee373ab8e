package playback

import "reviewsync/internal/timeline"

// Controller is the capability set every player exposes to the coordinator.
type Controller interface {
	SeekToTimestamp(t float64, force bool) error
	ScrubToTimestamp(t float64) error
	Play() error
	Pause() error
}

// Readier is implemented by controllers that can report whether their player
// has finished loading. Calls against an unready controller are skipped.
type Readier interface {
	Ready() bool
}

// SourceLoader is implemented by controllers whose player can be pointed at a
// new source window. The main player is reloaded this way on segment switch.
type SourceLoader interface {
	LoadRange(r timeline.TimeRange) error
}

// MainSetter is implemented by controllers whose player changes behavior
// when its camera becomes, or stops being, the main camera. The registry
// calls SetMain on registration and whenever the main camera changes.
type MainSetter interface {
	SetMain(main bool)
}

func isReady(h Controller) bool {
	if r, ok := h.(Readier); ok {
		return r.Ready()
	}
	return true
}
