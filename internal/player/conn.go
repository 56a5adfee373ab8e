package player

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrClosed       = errors.New("player: connection closed")
	ErrSlowConsumer = errors.New("player: send buffer full")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Conn is a websocket connection with a single writer goroutine. Send never
// blocks; a peer that stops reading eventually gets disconnected.
type Conn struct {
	ws     *websocket.Conn
	send   chan any
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

func NewConn(ws *websocket.Conn, logger zerolog.Logger) *Conn {
	c := &Conn{
		ws:     ws,
		send:   make(chan any, sendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.writePump()
	return c
}

// Send queues v to be written as a JSON text frame.
func (c *Conn) Send(v any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- v:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		c.logger.Warn().Msg("client not reading, closing connection")
		c.Close()
		return ErrSlowConsumer
	}
}

// ReadMessage blocks for the next client message.
func (c *Conn) ReadMessage() (Message, error) {
	var msg Message
	err := c.ws.ReadJSON(&msg)
	return msg, err
}

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.ws.Close()
	}()

	for {
		select {
		case v := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(v); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.drain()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// drain flushes frames queued before Close.
func (c *Conn) drain() {
	for {
		select {
		case v := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(v); err != nil {
				return
			}
		default:
			return
		}
	}
}
