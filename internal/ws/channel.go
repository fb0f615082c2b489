// Package ws is the dashboard's live push channel to the relay backend.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/types"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
	// Full player batches for two teams exceed the library's 32KiB default.
	readLimit = 4 << 20
)

var ErrNotOpen = errors.New("live channel is not open")

// Event is what a Channel reports to its sink. Every event names the channel
// that produced it so a stale channel's events can be told apart.
type Event interface{ ChannelID() string }

type Opened struct{ ID string }

type Frame struct {
	ID   string
	Data []byte
}

// Closed is always the last event. Err is nil for a clean close.
type Closed struct {
	ID  string
	Err error
}

func (e Opened) ChannelID() string { return e.ID }
func (e Frame) ChannelID() string  { return e.ID }
func (e Closed) ChannelID() string { return e.ID }

type Sink func(Event)

type Channel struct {
	ID string

	url    string
	log    *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Dial starts connecting to url in the background. Events arrive on sink in
// order: Opened, zero or more Frames, then exactly one Closed. A failed dial
// reports only Closed. There is no reconnect.
func Dial(parent context.Context, url string, sink Sink, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Channel{
		ID:     uuid.NewString(),
		url:    url,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.log = log.With(zap.String("channel", c.ID))
	go c.run(ctx, sink)
	return c
}

func (c *Channel) run(ctx context.Context, sink Sink) {
	defer close(c.done)
	defer c.cancel()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, _, err := websocket.Dial(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			sink(Closed{ID: c.ID})
			return
		}
		c.log.Warn("live channel dial failed", zap.String("url", c.url), zap.Error(err))
		sink(Closed{ID: c.ID, Err: err})
		return
	}
	conn.SetReadLimit(readLimit)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		sink(Closed{ID: c.ID})
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("live channel open", zap.String("url", c.url))
	sink(Opened{ID: c.ID})

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			err = c.closeReason(ctx, err)
			if err != nil {
				c.log.Warn("live channel lost", zap.Error(err))
			} else {
				c.log.Info("live channel closed")
			}
			sink(Closed{ID: c.ID, Err: err})
			return
		}
		if typ != websocket.MessageText {
			c.log.Debug("ignoring binary frame", zap.Int("bytes", len(data)))
			continue
		}
		sink(Frame{ID: c.ID, Data: data})
	}
}

func (c *Channel) closeReason(ctx context.Context, err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || ctx.Err() != nil {
		return nil
	}
	return err
}

// Send writes one JSON text frame.
func (c *Channel) Send(ctx context.Context, msg types.ClientMessage) error {
	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if conn == nil || closed {
		return ErrNotOpen
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}

// Close starts a normal closure and returns without waiting for it. Safe to
// call more than once. Done reports when the channel has fully stopped.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		c.cancel()
		return
	}
	go func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		c.cancel()
	}()
}

func (c *Channel) Done() <-chan struct{} { return c.done }
