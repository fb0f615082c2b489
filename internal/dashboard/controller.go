// Package dashboard owns the dashboard's state. A single Controller goroutine
// applies every mutation: operator actions, REST completions and live channel
// events are all messages on its inbox, handled one at a time in arrival order.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/metrics"
	"github.com/DoyleJ11/relay-dashboard/internal/render"
	"github.com/DoyleJ11/relay-dashboard/internal/storage"
	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
	"github.com/DoyleJ11/relay-dashboard/internal/ws"
)

var (
	ErrNoURL            = errors.New("Введите хотя бы один URL")
	ErrAlreadyConnected = errors.New("upstream already connected, disconnect first")
	ErrNotConnected     = errors.New("no upstream connected")
	ErrSuperseded       = errors.New("superseded by a newer action")
	ErrClosed           = errors.New("dashboard closed")
)

const DefaultRevertDelay = 3 * time.Second

// Backend is the relay backend's REST surface.
type Backend interface {
	Configure(ctx context.Context, url1, url2 string) error
	DisconnectAll(ctx context.Context) error
	ResetMaxValues(ctx context.Context) error
	ResetMaxValuesTag(ctx context.Context, tag string) error
	Status(ctx context.Context) (telemetry.StatusReport, error)
	LiveURL() string
}

// AfterFunc schedules f after d. It exists so tests can drive time.
type AfterFunc func(d time.Duration, f func())

type Option func(*Controller)

func WithStore(s storage.URLStore) Option {
	return func(c *Controller) {
		if s != nil {
			c.store = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithRenderer(r *render.Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

func WithRevertDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.revertDelay = d
		}
	}
}

func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) {
		if f != nil {
			c.afterFunc = f
		}
	}
}

type group string

const (
	groupConnection group = "connection"
	groupReset      group = "reset"
	groupStatus     group = "status"
)

type Controller struct {
	inbox   chan msg
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	workers sync.WaitGroup

	// Store writes, applied one at a time in the order the loop queued them.
	writes     chan func(context.Context)
	writesDone chan struct{}

	backend     Backend
	store       storage.URLStore
	renderer    *render.Renderer
	log         *zap.Logger
	metrics     *metrics.Metrics
	revertDelay time.Duration
	afterFunc   AfterFunc

	// Everything below is touched only by the loop goroutine.
	state       *telemetry.State
	rows        []render.Row
	notice      Notice
	noticeSeq   uint64
	flashSeq    uint64 // noticeSeq of the latest flash
	flashBase   Notice // notice the latest flash reverts to
	saved       storage.SavedURLs
	gens        map[group]uint64
	channel     *ws.Channel
	channelOpen bool
	subscribers map[string]chan View
	dirty       bool
}

// New starts the controller loop. Call Start to load status and open the
// live channel, and Close to stop.
func New(parent context.Context, be Backend, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		inbox:       make(chan msg, 64),
		ctx:         ctx,
		cancel:      cancel,
		stopped:     make(chan struct{}),
		writes:      make(chan func(context.Context), 16),
		writesDone:  make(chan struct{}),
		backend:     be,
		store:       storage.NewMemoryStore(),
		renderer:    render.New("ru"),
		log:         zap.NewNop(),
		revertDelay: DefaultRevertDelay,
		afterFunc:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		state:       telemetry.NewState(),
		gens:        map[group]uint64{},
		subscribers: map[string]chan View{},
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.writer()
	go c.loop()
	return c
}

// writer drains queued store writes. They run detached from shutdown so a
// write queued just before Close still lands.
func (c *Controller) writer() {
	defer close(c.writesDone)
	ctx := context.WithoutCancel(c.ctx)
	for w := range c.writes {
		w(ctx)
	}
}

// write queues a store write. Only the loop calls it.
func (c *Controller) write(w func(context.Context)) {
	c.writes <- w
}

func (c *Controller) loop() {
	defer close(c.stopped)
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			c.handle(m)
			if c.dirty {
				c.dirty = false
				c.broadcast()
			}
		}
	}
}

func (c *Controller) handle(m msg) {
	switch m := m.(type) {
	case startCmd:
		c.onStart(m)
	case configureCmd:
		c.onConfigure(m)
	case disconnectCmd:
		c.onDisconnect(m)
	case resetCmd:
		c.onReset(m)
	case fetchStatusCmd:
		c.onFetchStatus(m)

	case startDone:
		c.onStartDone(m)
	case configureDone:
		c.onConfigureDone(m)
	case disconnectDone:
		c.onDisconnectDone(m)
	case resetDone:
		c.onResetDone(m)
	case statusDone:
		c.onStatusDone(m)
	case revertNotice:
		c.onRevert(m)

	case channelEvent:
		c.onChannelEvent(m.ev)

	case getView:
		m.reply <- c.view()
	case subscribe:
		c.subscribers[m.id] = m.out
		c.metrics.SetSubscribers(len(c.subscribers))
		select {
		case m.out <- c.view():
		default:
		}
		m.reply <- struct{}{}
	case unsubscribe:
		delete(c.subscribers, m.id)
		c.metrics.SetSubscribers(len(c.subscribers))
	}
}

func (c *Controller) shutdown() {
	close(c.writes)
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
}

// Close stops the loop and waits for in-flight REST calls and queued store
// writes to finish.
func (c *Controller) Close() {
	c.cancel()
	<-c.stopped
	c.workers.Wait()
	<-c.writesDone
}

// post delivers m to the loop unless the controller is shutting down.
func (c *Controller) post(m msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

// spawn runs work off the loop and posts its result back.
func (c *Controller) spawn(work func(ctx context.Context) msg) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		c.post(work(c.ctx))
	}()
}

// call sends a command and waits for its completion to be applied.
func (c *Controller) call(ctx context.Context, m msg, reply chan error) error {
	select {
	case c.inbox <- m:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *Controller) bump(g group) uint64 {
	c.gens[g]++
	return c.gens[g]
}

// current reports whether gen is still the newest action of its group. Stale
// completions are counted and dropped.
func (c *Controller) current(g group, gen uint64) bool {
	if c.gens[g] == gen {
		return true
	}
	c.metrics.Superseded(string(g))
	c.log.Info("dropping superseded result", zap.String("group", string(g)), zap.Uint64("gen", gen), zap.Uint64("current", c.gens[g]))
	return false
}

// Start loads saved URLs, fetches backend status and opens the live channel.
func (c *Controller) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, startCmd{reply: reply}, reply)
}

// Configure points the backend at up to two upstream feeds.
func (c *Controller) Configure(ctx context.Context, url1, url2 string) error {
	reply := make(chan error, 1)
	return c.call(ctx, configureCmd{url1: url1, url2: url2, reply: reply}, reply)
}

// ConfigureSaved reuses the URLs saved by the last successful configure.
func (c *Controller) ConfigureSaved(ctx context.Context) error {
	v, err := c.View(ctx)
	if err != nil {
		return err
	}
	return c.Configure(ctx, v.SavedURLs.URL1, v.SavedURLs.URL2)
}

func (c *Controller) DisconnectAll(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, disconnectCmd{reply: reply}, reply)
}

func (c *Controller) ResetAllMax(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, resetCmd{reply: reply}, reply)
}

func (c *Controller) ResetOneMax(ctx context.Context, tag string) error {
	reply := make(chan error, 1)
	return c.call(ctx, resetCmd{tag: tag, one: true, reply: reply}, reply)
}

func (c *Controller) FetchStatus(ctx context.Context) error {
	reply := make(chan error, 1)
	return c.call(ctx, fetchStatusCmd{reply: reply}, reply)
}

// View returns a consistent copy of the dashboard state.
func (c *Controller) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case c.inbox <- getView{reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.ctx.Done():
		return View{}, ErrClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-c.ctx.Done():
		return View{}, ErrClosed
	}
}

// Subscribe registers out to receive a View after every change, starting
// with the current one. A subscriber whose buffer is full is dropped and out
// is closed. Once Subscribe returns nil, Close is guaranteed to close out; on
// ErrClosed out was never registered.
func (c *Controller) Subscribe(ctx context.Context, id string, out chan View) error {
	reply := make(chan struct{}, 1)
	select {
	case c.inbox <- subscribe{id: id, out: out, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		// The loop is gone; reply is final.
		select {
		case <-reply:
			return nil
		default:
			return ErrClosed
		}
	}
}

func (c *Controller) Unsubscribe(id string) {
	c.post(unsubscribe{id: id})
}
