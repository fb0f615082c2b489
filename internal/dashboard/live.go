package dashboard

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/types"
	"github.com/DoyleJ11/relay-dashboard/internal/ws"
)

// openChannel replaces the live channel. The old one is closed first and its
// remaining events are ignored.
func (c *Controller) openChannel() {
	if c.channel != nil {
		c.channel.Close()
	}
	c.channelOpen = false
	c.channel = ws.Dial(c.ctx, c.backend.LiveURL(), func(ev ws.Event) {
		c.post(channelEvent{ev: ev})
	}, c.log.Named("live"))
	c.log.Debug("opening live channel", zap.String("channel", c.channel.ID))
}

func (c *Controller) onChannelEvent(ev ws.Event) {
	if c.channel == nil || ev.ChannelID() != c.channel.ID {
		return
	}

	switch ev := ev.(type) {
	case ws.Opened:
		c.channelOpen = true
		c.metrics.ChannelOpened()
		c.setNotice("Подключено", ClassConnected)
		if c.state.AnyConnected() {
			c.requestInitialData(c.channel)
		}

	case ws.Frame:
		c.dispatch(types.Decode(ev.Data))

	case ws.Closed:
		c.channel = nil
		c.channelOpen = false
		if ev.Err != nil {
			c.log.Error("live channel error", zap.Error(ev.Err))
			c.setNotice("Ошибка соединения", ClassDisconnected)
		} else {
			c.setNotice("Соединение закрыто", ClassDisconnected)
		}
	}
}

func (c *Controller) requestInitialData(ch *ws.Channel) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		if err := ch.Send(c.ctx, types.ClientMessage{Type: types.TypeGetInitialData}); err != nil {
			c.log.Warn("requesting initial data", zap.Error(err))
		}
	}()
}

// dispatch applies one push message. Every variant is handled here.
func (c *Controller) dispatch(m types.ServerMessage) {
	switch m := m.(type) {
	case types.ConnectionStatus:
		c.metrics.PushMessage("connection_status")
		c.state.ApplyConnectionStatus(m.Data)
		c.dirty = true

	case types.NoResponse:
		c.metrics.PushMessage("no_response")
		c.log.Warn("upstream not responding", zap.String("team", m.Team), zap.String("message", m.Message))
		c.setNotice(fmt.Sprintf("Нет данных от %s", m.Team), ClassDisconnected)

	case types.DisconnectedTimeout:
		c.metrics.PushMessage("disconnected_timeout")
		c.log.Warn("upstream timed out", zap.String("team", m.Team), zap.String("message", m.Message))
		c.setNotice(fmt.Sprintf("Время подключения к %s истекло", m.Team), ClassDisconnected)

	case types.PlayersUpdate:
		c.metrics.PushMessage("players")
		team := m.TeamName()
		if team == "" {
			c.metrics.PushDropped("unresolved_team")
			c.log.Debug("dropping player batch without team", zap.Int("players", len(m.Players)))
			return
		}
		c.state.ReplaceTeam(team, m.Players)
		c.rerender()

	case types.Unknown:
		c.metrics.PushDropped("unknown")
		c.log.Debug("dropping unrecognised push message", zap.ByteString("raw", m.Raw))

	case types.Malformed:
		c.metrics.PushDropped("malformed")
		c.log.Error("malformed push message", zap.Error(m.Err), zap.ByteString("raw", m.Raw))
	}
}
