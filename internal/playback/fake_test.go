package playback

import (
	"errors"

	"reviewsync/internal/timeline"
)

type fakeController struct {
	seeks      []float64
	scrubs     []float64
	plays      int
	pauses     int
	notReady   bool
	failScrub  bool
	panicScrub bool
}

func (f *fakeController) SeekToTimestamp(t float64, force bool) error {
	f.seeks = append(f.seeks, t)
	return nil
}

func (f *fakeController) ScrubToTimestamp(t float64) error {
	if f.panicScrub {
		panic("player detached")
	}
	if f.failScrub {
		return errors.New("stale player")
	}
	f.scrubs = append(f.scrubs, t)
	return nil
}

func (f *fakeController) Play() error {
	f.plays++
	return nil
}

func (f *fakeController) Pause() error {
	f.pauses++
	return nil
}

func (f *fakeController) Ready() bool { return !f.notReady }

// loaderController reloads like a main player: it is unready until the test
// marks it ready again.
type loaderController struct {
	*fakeController
	loads []timeline.TimeRange
}

func newLoader() *loaderController {
	return &loaderController{fakeController: &fakeController{}}
}

func (l *loaderController) LoadRange(r timeline.TimeRange) error {
	l.loads = append(l.loads, r)
	l.notReady = true
	return nil
}

// roleController reloads only while it is told it is the main player.
type roleController struct {
	*loaderController
	main bool
}

func newRoleController() *roleController {
	return &roleController{loaderController: newLoader()}
}

func (r *roleController) SetMain(main bool) { r.main = main }

func (r *roleController) LoadRange(tr timeline.TimeRange) error {
	if !r.main {
		return errors.New("not the main player")
	}
	return r.loaderController.LoadRange(tr)
}
