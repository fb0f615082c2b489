package dashboard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/storage"
	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

func (c *Controller) onStart(m startCmd) {
	gen := c.bump(groupStatus)
	c.spawn(func(ctx context.Context) msg {
		done := startDone{gen: gen, reply: m.reply}
		done.saved, done.savedErr = c.store.Load(ctx)
		done.report, done.err = c.backend.Status(ctx)
		return done
	})
}

func (c *Controller) onStartDone(m startDone) {
	if m.savedErr != nil {
		c.log.Error("loading saved urls", zap.Error(m.savedErr))
	} else {
		c.saved = m.saved
		c.dirty = true
	}

	if c.current(groupStatus, m.gen) {
		if m.err != nil {
			c.log.Warn("initial status fetch failed", zap.Error(m.err))
			c.setNotice("Ошибка получения статуса: "+m.err.Error(), ClassDisconnected)
		} else {
			c.state.ApplyStatusReport(m.report)
			c.dirty = true
		}
	}

	c.openChannel()
	m.reply <- m.err
}

func (c *Controller) onConfigure(m configureCmd) {
	url1, url2 := strings.TrimSpace(m.url1), strings.TrimSpace(m.url2)
	if url1 == "" && url2 == "" {
		m.reply <- ErrNoURL
		return
	}
	if c.state.AnyConnected() {
		m.reply <- ErrAlreadyConnected
		return
	}

	gen := c.bump(groupConnection)
	c.state.ClearTeams()
	c.state.SetConfigured(url1, url2)
	c.rerender()
	if url1 != "" {
		c.saved.URL1 = url1
	}
	if url2 != "" {
		c.saved.URL2 = url2
	}

	c.log.Info("configuring upstreams", zap.String("url1", url1), zap.String("url2", url2), zap.Uint64("gen", gen))
	c.write(func(ctx context.Context) { c.persist(ctx, url1, url2) })
	c.spawn(func(ctx context.Context) msg {
		done := configureDone{gen: gen, reply: m.reply}
		if done.err = c.backend.Configure(ctx, url1, url2); done.err != nil {
			return done
		}
		done.report, done.reportErr = c.backend.Status(ctx)
		return done
	})
}

func (c *Controller) persist(ctx context.Context, url1, url2 string) {
	for i, u := range []string{url1, url2} {
		if u == "" {
			continue
		}
		if err := c.store.Save(ctx, telemetry.Slots[i], u); err != nil {
			c.log.Error("saving url", zap.String("slot", string(telemetry.Slots[i])), zap.Error(err))
		}
	}
}

func (c *Controller) onConfigureDone(m configureDone) {
	if !c.current(groupConnection, m.gen) {
		m.reply <- ErrSuperseded
		return
	}
	if m.err != nil {
		c.log.Warn("configure failed", zap.Error(m.err))
		c.setNotice("Ошибка подключения: "+m.err.Error(), ClassDisconnected)
		m.reply <- m.err
		return
	}

	// The status fetched here is newer than any standalone fetch still in flight.
	c.bump(groupStatus)
	if m.reportErr != nil {
		c.log.Warn("status refresh after configure failed", zap.Error(m.reportErr))
	} else {
		c.state.ApplyStatusReport(m.report)
	}
	c.setNotice("Подключение установлено", ClassConnected)

	if !c.channelOpen {
		c.openChannel()
	}
	m.reply <- nil
}

func (c *Controller) onDisconnect(m disconnectCmd) {
	if !c.state.AnyConnected() {
		m.reply <- ErrNotConnected
		return
	}
	gen := c.bump(groupConnection)
	c.spawn(func(ctx context.Context) msg {
		done := disconnectDone{gen: gen, reply: m.reply}
		done.err = c.backend.DisconnectAll(ctx)
		return done
	})
}

func (c *Controller) onDisconnectDone(m disconnectDone) {
	if !c.current(groupConnection, m.gen) {
		m.reply <- ErrSuperseded
		return
	}
	if m.err != nil {
		c.log.Warn("disconnect failed", zap.Error(m.err))
		c.setNotice("Ошибка отключения: "+m.err.Error(), ClassDisconnected)
		m.reply <- m.err
		return
	}

	c.write(func(ctx context.Context) {
		if err := c.store.Clear(ctx); err != nil {
			c.log.Error("clearing saved urls", zap.Error(err))
		}
	})
	c.bump(groupStatus)
	c.state.ResetSlots()
	c.state.ClearTeams()
	c.state.ClearConfigured()
	c.saved = storage.SavedURLs{}
	c.rerender()
	c.setNotice("Все соединения отключены", ClassDisconnected)
	m.reply <- nil
}

func (c *Controller) onReset(m resetCmd) {
	gen := c.bump(groupReset)
	c.spawn(func(ctx context.Context) msg {
		done := resetDone{gen: gen, tag: m.tag, one: m.one, reply: m.reply}
		if m.one {
			done.err = c.backend.ResetMaxValuesTag(ctx, m.tag)
		} else {
			done.err = c.backend.ResetMaxValues(ctx)
		}
		return done
	})
}

func (c *Controller) onResetDone(m resetDone) {
	if !c.current(groupReset, m.gen) {
		m.reply <- ErrSuperseded
		return
	}
	if m.err != nil {
		c.log.Warn("reset failed", zap.String("tag", m.tag), zap.Error(m.err))
		c.setNotice("Ошибка сброса: "+m.err.Error(), ClassDisconnected)
		m.reply <- m.err
		return
	}
	if m.one {
		c.flash(fmt.Sprintf("Максимальные значения очищены для %s", m.tag), ClassConnected)
	} else {
		c.flash("Максимальные значения очищены", ClassConnected)
	}
	m.reply <- nil
}

func (c *Controller) onFetchStatus(m fetchStatusCmd) {
	gen := c.bump(groupStatus)
	c.spawn(func(ctx context.Context) msg {
		report, err := c.backend.Status(ctx)
		return statusDone{gen: gen, report: report, err: err, reply: m.reply}
	})
}

func (c *Controller) onStatusDone(m statusDone) {
	if !c.current(groupStatus, m.gen) {
		m.reply <- ErrSuperseded
		return
	}
	if m.err != nil {
		c.log.Warn("status fetch failed", zap.Error(m.err))
		c.setNotice("Ошибка получения статуса: "+m.err.Error(), ClassDisconnected)
		m.reply <- m.err
		return
	}
	c.state.ApplyStatusReport(m.report)
	c.dirty = true
	m.reply <- nil
}
