package player

import (
	"errors"
	"sync/atomic"

	"reviewsync/internal/timeline"
)

var ErrNotMain = errors.New("player: only the main player loads source windows")

// remote drives a player over its connection. It is ready once the player
// has reported ready. Whether it is the main player follows the session's
// main camera, not the role the connection was opened with.
type remote struct {
	camera string
	conn   *Conn
	ready  atomic.Bool
	main   atomic.Bool
}

func (p *remote) Camera() string { return p.camera }

func (p *remote) Ready() bool { return p.ready.Load() }

func (p *remote) markReady() { p.ready.Store(true) }

// IsMain reports whether the player currently runs as the main player.
func (p *remote) IsMain() bool { return p.main.Load() }

func (p *remote) SeekToTimestamp(t float64, force bool) error {
	return p.conn.Send(Command{Type: CmdSeek, Camera: p.camera, Time: t, Force: force})
}

func (p *remote) ScrubToTimestamp(t float64) error {
	return p.conn.Send(Command{Type: CmdScrub, Camera: p.camera, Time: t})
}

func (p *remote) Play() error {
	return p.conn.Send(Command{Type: CmdPlay, Camera: p.camera})
}

func (p *remote) Pause() error {
	return p.conn.Send(Command{Type: CmdPause, Camera: p.camera})
}

// SetMain promotes or demotes the player. The client is sent a role command
// only when the role actually changes.
func (p *remote) SetMain(main bool) {
	if p.main.Swap(main) == main {
		return
	}
	role := RolePreview
	if main {
		role = RoleMain
	}
	_ = p.conn.Send(Command{Type: CmdRole, Camera: p.camera, Role: role})
}

// LoadRange points the main player at a new source window. Loading makes it
// unready until the player reports ready again.
func (p *remote) LoadRange(r timeline.TimeRange) error {
	if !p.main.Load() {
		return ErrNotMain
	}
	if err := p.conn.Send(Command{Type: CmdLoad, Camera: p.camera, Range: &r}); err != nil {
		return err
	}
	p.ready.Store(false)
	return nil
}

// PreviewController is the handle of a player opened as a preview. It is
// reloaded like the main player once a camera switch promotes it.
type PreviewController struct {
	*remote
}

func NewPreviewController(camera string, conn *Conn) *PreviewController {
	return &PreviewController{remote: &remote{camera: camera, conn: conn}}
}

// MainController is the handle of a player opened as the main player.
type MainController struct {
	*remote
}

func NewMainController(camera string, conn *Conn) *MainController {
	m := &MainController{remote: &remote{camera: camera, conn: conn}}
	m.main.Store(true)
	return m
}
