package dashboard

import (
	"github.com/DoyleJ11/relay-dashboard/internal/render"
	"github.com/DoyleJ11/relay-dashboard/internal/storage"
	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

const (
	ClassConnected    = "connected"
	ClassDisconnected = "disconnected"
)

// Notice is the status line shown to the operator.
type Notice struct {
	Text  string `json:"text"`
	Class string `json:"class"`
}

type View struct {
	Slots          []telemetry.UpstreamSlot `json:"slots"`
	Teams          []telemetry.TeamBatch    `json:"teams"`
	Rows           []render.Row             `json:"rows"`
	Notice         Notice                   `json:"notice"`
	ConnectionInfo string                   `json:"connection_info"`
	SavedURLs      storage.SavedURLs        `json:"saved_urls"`
	CanConfigure   bool                     `json:"can_configure"`
	CanDisconnect  bool                     `json:"can_disconnect"`
	ChannelOpen    bool                     `json:"channel_open"`
}

func (c *Controller) view() View {
	snap := c.state.Snapshot()
	connected := c.state.AnyConnected()
	return View{
		Slots:          snap.Slots,
		Teams:          snap.Teams,
		Rows:           c.rows,
		Notice:         c.notice,
		ConnectionInfo: c.state.ConnectionInfo(),
		SavedURLs:      c.saved,
		CanConfigure:   !connected,
		CanDisconnect:  connected,
		ChannelOpen:    c.channelOpen,
	}
}

// broadcast pushes the current view to every subscriber. Slow subscribers
// are dropped.
func (c *Controller) broadcast() {
	if len(c.subscribers) == 0 {
		return
	}
	v := c.view()
	for id, ch := range c.subscribers {
		select {
		case ch <- v:
		default:
			close(ch)
			delete(c.subscribers, id)
		}
	}
	c.metrics.SetSubscribers(len(c.subscribers))
}

// setNotice replaces the status line. Any pending revert becomes stale.
func (c *Controller) setNotice(text, class string) {
	c.noticeSeq++
	c.notice = Notice{Text: text, Class: class}
	c.dirty = true
}

// flash shows a notice that reverts after revertDelay, unless something else
// replaced it first. Flashing over a pending flash keeps that flash's base,
// so stacked flashes revert to the notice shown before the first one.
func (c *Controller) flash(text, class string) {
	base := c.notice
	if c.flashSeq != 0 && c.flashSeq == c.noticeSeq {
		base = c.flashBase
	}
	c.setNotice(text, class)
	seq := c.noticeSeq
	c.flashSeq, c.flashBase = seq, base
	c.afterFunc(c.revertDelay, func() {
		c.post(revertNotice{seq: seq, prev: base})
	})
}

func (c *Controller) onRevert(m revertNotice) {
	if m.seq != c.noticeSeq {
		return
	}
	c.setNotice(m.prev.Text, m.prev.Class)
}

// rerender rebuilds the table rows from the team store.
func (c *Controller) rerender() {
	c.rows = c.renderer.Rows(c.state.Snapshot().Teams)
	c.metrics.TableRendered()
	c.dirty = true
}
