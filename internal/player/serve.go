package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"reviewsync/internal/playback"
	"reviewsync/internal/session"
)

var ErrUnknownMessage = errors.New("player: unknown message type")

const releaseTimeout = 5 * time.Second

type readyMarker interface {
	playback.Controller
	markReady()
}

// Serve runs one player connection against sess until either side goes
// away. Every state change of the session is forwarded as a state frame. A
// registered player is always released when Serve returns.
func Serve(ctx context.Context, sess *session.Session, conn *Conn, camera string, role Role, logger zerolog.Logger) error {
	defer conn.Close()

	if role != RoleControl && !sess.HasCamera(camera) {
		return fmt.Errorf("%w: %s", playback.ErrUnknownCamera, camera)
	}

	var ctrl readyMarker
	switch role {
	case RoleMain:
		ctrl = NewMainController(camera, conn)
	case RolePreview:
		ctrl = NewPreviewController(camera, conn)
	}

	logger = logger.With().Str("session", sess.ID()).Str("camera", camera).Str("role", string(role)).Logger()
	logger.Debug().Msg("player connected")

	frames, cancel := sess.Subscribe()
	defer cancel()
	go forwardState(conn, frames)

	if ctrl != nil {
		defer release(sess, camera, ctrl, logger)
	}

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-conn.Done():
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			logger.Debug().Err(err).Msg("player read failed")
			return nil
		}

		if err := dispatch(ctx, sess, camera, ctrl, msg); err != nil {
			if errors.Is(err, session.ErrSessionClosed) {
				return err
			}
			logger.Debug().Err(err).Str("type", msg.Type).Msg("message rejected")
			_ = conn.Send(Command{Type: CmdError, Error: err.Error()})
		}
	}
}

func forwardState(conn *Conn, frames <-chan playback.Snapshot) {
	for {
		select {
		case snap, ok := <-frames:
			if !ok {
				conn.Close()
				return
			}
			if err := conn.Send(Command{Type: CmdState, State: &snap}); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

func release(sess *session.Session, camera string, ctrl playback.Controller, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	err := sess.Do(ctx, func(c *playback.Coordinator) error {
		c.Release(camera, ctrl)
		return nil
	})
	if err != nil && !errors.Is(err, session.ErrSessionClosed) {
		logger.Warn().Err(err).Msg("failed to release player")
		return
	}
	logger.Debug().Msg("player released")
}

func dispatch(ctx context.Context, sess *session.Session, camera string, ctrl readyMarker, msg Message) error {
	// time updates are frequent and losing one is harmless
	if msg.Type == MsgTimeUpdate {
		if ctrl != nil {
			sess.Post(func(c *playback.Coordinator) { c.OnTimeUpdate(camera, msg.Time) })
		}
		return nil
	}

	return sess.Do(ctx, func(c *playback.Coordinator) error {
		switch msg.Type {
		case MsgReady:
			if ctrl == nil {
				return fmt.Errorf("%w: control connections have no player", ErrUnknownMessage)
			}
			ctrl.markReady()
			c.OnReady(camera, ctrl)
		case MsgEnded:
			if ctrl != nil {
				c.OnEnded(camera)
			}
		case MsgScrubStart:
			c.SetScrubbing(true)
		case MsgScrubEnd:
			c.SetScrubbing(false)
		case MsgSetTime:
			if !c.ManuallySetCurrentTime(msg.Time, msg.Force) {
				return fmt.Errorf("%w: %.3f", playback.ErrOutOfRange, msg.Time)
			}
		case MsgPlay:
			c.Play()
		case MsgPause:
			c.Pause()
		case MsgSwitchCamera:
			return c.SwitchCamera(msg.Camera)
		case MsgExportMode:
			mode, err := playback.ParseExportMode(msg.Mode)
			if err != nil {
				return err
			}
			c.SetExportMode(mode)
		case MsgExportStart:
			c.SetExportStartTime(msg.Time)
		case MsgExportEnd:
			c.SetExportEndTime(msg.Time)
		default:
			return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
		}
		return nil
	})
}
