package dashboard

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/relay-dashboard/internal/backend"
	"github.com/DoyleJ11/relay-dashboard/internal/backendtest"
	"github.com/DoyleJ11/relay-dashboard/internal/metrics"
	"github.com/DoyleJ11/relay-dashboard/internal/storage"
	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

// fakeClock runs scheduled callbacks only when Advance moves past them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []fakeTimer
}

type fakeTimer struct {
	at time.Duration
	f  func()
}

func (fc *fakeClock) AfterFunc(d time.Duration, f func()) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.timers = append(fc.timers, fakeTimer{at: fc.now + d, f: f})
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	fc.now += d
	var due, rest []fakeTimer
	for _, tm := range fc.timers {
		if tm.at <= fc.now {
			due = append(due, tm)
		} else {
			rest = append(rest, tm)
		}
	}
	fc.timers = rest
	fc.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, tm := range due {
		tm.f()
	}
}

func (fc *fakeClock) Pending() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.timers)
}

type harness struct {
	srv   *backendtest.Server
	ctrl  *Controller
	clock *fakeClock
	store *storage.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := backendtest.New()
	t.Cleanup(srv.Close)

	be, err := backend.New(srv.BaseURL(), backendtest.BasePath, 2*time.Second)
	require.NoError(t, err)

	h := &harness{srv: srv, clock: &fakeClock{}, store: storage.NewMemoryStore()}
	h.ctrl = New(context.Background(), be,
		WithStore(h.store),
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(metrics.New()),
		WithAfterFunc(h.clock.AfterFunc),
	)
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) view(t *testing.T) View {
	t.Helper()
	v, err := h.ctrl.View(context.Background())
	require.NoError(t, err)
	return v
}

// waitFor polls the view until cond holds so tests never hang.
func (h *harness) waitFor(t *testing.T, what string, cond func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := h.view(t)
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last view: %+v", what, v)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) start(t *testing.T) View {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	v := h.waitFor(t, "live channel open", func(v View) bool { return v.ChannelOpen })
	select {
	case <-h.srv.Joined():
	case <-time.After(time.Second):
		t.Fatalf("backend never saw the live channel")
	}
	return v
}

func (h *harness) push(t *testing.T, frame string) {
	t.Helper()
	require.NoError(t, h.srv.Push(context.Background(), []byte(frame)))
}

// barrier pushes a connection_status frame and waits for it to apply; frames
// are handled in order, so everything pushed before it has been handled too.
func (h *harness) barrier(t *testing.T, team2 bool) View {
	t.Helper()
	if team2 {
		h.push(t, `{"type":"connection_status","data":{"team1":false,"team2":true}}`)
	} else {
		h.push(t, `{"type":"connection_status","data":{"team1":false,"team2":false}}`)
	}
	return h.waitFor(t, "barrier", func(v View) bool { return v.Slots[1].Connected == team2 })
}

// savedEventually waits for queued store writes to settle on want.
func (h *harness) savedEventually(t *testing.T, want storage.SavedURLs) {
	t.Helper()
	var got storage.SavedURLs
	deadline := time.Now().Add(2 * time.Second)
	for {
		var err error
		got, err = h.store.Load(context.Background())
		require.NoError(t, err)
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("saved urls: got %+v, want %+v", got, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func recvFrame(t *testing.T, srv *backendtest.Server, within time.Duration) string {
	t.Helper()
	select {
	case f := <-srv.Frames():
		return string(f)
	case <-time.After(within):
		t.Fatalf("timed out waiting for a frame from the dashboard")
		return ""
	}
}

func noFrame(t *testing.T, srv *backendtest.Server, within time.Duration) {
	t.Helper()
	select {
	case f := <-srv.Frames():
		t.Fatalf("expected no frame, got %s", f)
	case <-time.After(within):
	}
}

func teamTags(v View) []string {
	out := make([]string, len(v.Rows))
	for i, r := range v.Rows {
		out[i] = r.Tag
	}
	return out
}

func TestStart_LoadsStatusAndRequestsInitialData(t *testing.T) {
	h := newHarness(t)
	h.srv.SetStatus(telemetry.StatusReport{Team1: &telemetry.SlotReport{Connected: true, URL: "wss://one"}})
	require.NoError(t, h.store.Save(context.Background(), telemetry.SlotTeam2, "wss://saved"))

	v := h.start(t)

	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam1, Connected: true, URL: "wss://one"}, v.Slots[0])
	assert.Equal(t, "wss://saved", v.SavedURLs.URL2)
	assert.Equal(t, Notice{Text: "Подключено", Class: ClassConnected}, v.Notice)
	assert.False(t, v.CanConfigure)
	assert.True(t, v.CanDisconnect)
	assert.JSONEq(t, `{"type":"get_initial_data"}`, recvFrame(t, h.srv, time.Second))
}

func TestStart_NoInitialDataWhenNothingConnected(t *testing.T) {
	h := newHarness(t)

	v := h.start(t)

	assert.True(t, v.CanConfigure)
	assert.False(t, v.CanDisconnect)
	noFrame(t, h.srv, 150*time.Millisecond)
}

func TestStart_StatusFailureIsSurfaced(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail("status", 500, "db down")
	views := make(chan View, 32)
	require.NoError(t, h.ctrl.Subscribe(context.Background(), "t", views))

	err := h.ctrl.Start(context.Background())
	require.Error(t, err)

	// The channel still opens, which replaces the notice afterwards.
	h.waitFor(t, "channel still opens", func(v View) bool { return v.ChannelOpen })
	var seen []Notice
	for len(views) > 0 {
		seen = append(seen, (<-views).Notice)
	}
	assert.Contains(t, seen, Notice{Text: "Ошибка получения статуса: db down", Class: ClassDisconnected})
}

func TestPlayersPush_FullReplace(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.push(t, `{"status":"success","team":"A","players":[{"tag":1,"team_name":"A"},{"tag":2,"team_name":"A"}]}`)
	h.waitFor(t, "first batch", func(v View) bool { return len(v.Rows) == 2 })

	h.push(t, `{"status":"success","team":"A","players":[{"tag":3,"team_name":"A"}]}`)
	v := h.waitFor(t, "replacement batch", func(v View) bool { return len(v.Rows) == 1 })

	require.Len(t, v.Teams, 1)
	assert.Equal(t, "A", v.Teams[0].Team)
	assert.Equal(t, []string{"3"}, teamTags(v))
}

func TestPlayersPush_UnresolvedTeamIsDropped(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.push(t, `{"status":"success","team":"A","players":[{"tag":1,"team_name":"A"}]}`)
	h.waitFor(t, "batch", func(v View) bool { return len(v.Rows) == 1 })

	h.push(t, `{"status":"success","players":[{"tag":9}]}`)
	h.push(t, `{"status":"success","players":[]}`)
	h.push(t, `{"status":"success"}`)
	v := h.barrier(t, true)

	require.Len(t, v.Teams, 1)
	assert.Equal(t, []string{"1"}, teamTags(v))
}

func TestPlayersPush_SortedStable(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.push(t, `{"status":"success","players":[{"team_name":"B","tag":"x"},{"team_name":"A","tag":"y"},{"team_name":"A","tag":"z"}]}`)
	v := h.waitFor(t, "rows", func(v View) bool { return len(v.Rows) == 3 })

	assert.Equal(t, []string{"y", "z", "x"}, teamTags(v))
	assert.Equal(t, "B", v.Teams[0].Team, "team resolved from the first record")
}

func TestMalformedAndUnknownPushesAreIgnored(t *testing.T) {
	h := newHarness(t)
	before := h.start(t)

	h.push(t, `{oops`)
	h.push(t, `{"status":"error","message":"Invalid JSON data"}`)
	h.push(t, `[1,2,3]`)
	v := h.barrier(t, true)

	assert.Equal(t, before.Notice, v.Notice)
	assert.Empty(t, v.Rows)
}

func TestUpstreamNotices(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.push(t, `{"status":"no_response","team":"team1","message":"Нет ответа от источника team1"}`)
	v := h.waitFor(t, "no_response notice", func(v View) bool { return v.Notice.Text == "Нет данных от team1" })
	assert.Equal(t, ClassDisconnected, v.Notice.Class)

	h.push(t, `{"status":"disconnected_timeout","team":"team2","message":"..."}`)
	v = h.waitFor(t, "timeout notice", func(v View) bool { return v.Notice.Text == "Время подключения к team2 истекло" })
	assert.Equal(t, ClassDisconnected, v.Notice.Class)
	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam2}, v.Slots[1], "notices do not touch slot state")
}

func TestConnectionStatusPushThenFetch_FetchWins(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.push(t, `{"type":"connection_status","data":{"team1":true,"team2":true}}`)
	h.waitFor(t, "push applied", func(v View) bool { return v.Slots[0].Connected && v.Slots[1].Connected })

	h.srv.SetStatus(telemetry.StatusReport{Team1: &telemetry.SlotReport{Connected: false, URL: "wss://from-fetch"}})
	require.NoError(t, h.ctrl.FetchStatus(context.Background()))

	v := h.view(t)
	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam1, URL: "wss://from-fetch"}, v.Slots[0])
	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam2}, v.Slots[1])
}

func TestConfigure_EmptyIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	h.srv.SetStatus(telemetry.StatusReport{})
	before := h.view(t)

	err := h.ctrl.Configure(context.Background(), "", "   ")

	assert.ErrorIs(t, err, ErrNoURL)
	assert.Empty(t, h.srv.Requests())
	assert.Equal(t, before.Slots, h.view(t).Slots)
}

func TestConfigure_Success(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Configure(ctx, " wss://one ", "wss://two"))

	reqs := h.srv.RequestsTo("set_wss_url")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"url":"wss://one","url_2":"wss://two"}`, string(reqs[0].Body))

	v := h.view(t)
	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam1, Connected: true, URL: "wss://one"}, v.Slots[0])
	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam2, Connected: true, URL: "wss://two"}, v.Slots[1])
	assert.Equal(t, storage.SavedURLs{URL1: "wss://one", URL2: "wss://two"}, v.SavedURLs)

	h.savedEventually(t, storage.SavedURLs{URL1: "wss://one", URL2: "wss://two"})

	h.waitFor(t, "channel opened by configure", func(v View) bool { return v.ChannelOpen })
	assert.JSONEq(t, `{"type":"get_initial_data"}`, recvFrame(t, h.srv, time.Second))

	assert.ErrorIs(t, h.ctrl.Configure(ctx, "wss://three", ""), ErrAlreadyConnected)
}

func TestConfigure_ClearsTeamData(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.push(t, `{"status":"success","team":"A","players":[{"tag":1,"team_name":"A"}]}`)
	h.waitFor(t, "batch", func(v View) bool { return len(v.Rows) == 1 })

	require.NoError(t, h.ctrl.Configure(context.Background(), "wss://one", ""))

	v := h.view(t)
	assert.Empty(t, v.Teams)
	assert.Empty(t, v.Rows)
}

func TestConfigure_ConnectionStatusUsesSlotNames(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.NoError(t, h.ctrl.Configure(context.Background(), "", "wss://second"))
	h.push(t, `{"type":"connection_status","data":{"team1":false,"team2":true}}`)
	v := h.waitFor(t, "push", func(v View) bool { return v.Slots[1].Connected && v.Slots[1].URL == "wss://second" })

	assert.Equal(t, telemetry.UpstreamSlot{Name: telemetry.SlotTeam1}, v.Slots[0])
}

func TestConfigure_FailureSurfacesServerText(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail("set_wss_url", 500, "upstream refused")

	err := h.ctrl.Configure(context.Background(), "wss://one", "")

	require.Error(t, err)
	v := h.view(t)
	assert.Equal(t, Notice{Text: "Ошибка подключения: upstream refused", Class: ClassDisconnected}, v.Notice)
	assert.False(t, v.ChannelOpen)
}

func TestConfigure_SupersededResultIsDropped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	release := h.srv.Hold("set_wss_url")
	defer release()

	first := make(chan error, 1)
	go func() { first <- h.ctrl.Configure(ctx, "wss://old", "") }()
	require.Eventually(t, func() bool { return len(h.srv.RequestsTo("set_wss_url")) == 1 }, 2*time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- h.ctrl.Configure(ctx, "wss://new", "") }()
	require.Eventually(t, func() bool { return len(h.srv.RequestsTo("set_wss_url")) == 2 }, 2*time.Second, 5*time.Millisecond)

	release()

	for _, tc := range []struct {
		name string
		ch   chan error
		want error
	}{{"first", first, ErrSuperseded}, {"second", second, nil}} {
		select {
		case err := <-tc.ch:
			if tc.want == nil {
				assert.NoError(t, err, tc.name)
			} else {
				assert.ErrorIs(t, err, tc.want, tc.name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s configure never completed", tc.name)
		}
	}
	h.savedEventually(t, storage.SavedURLs{URL1: "wss://new"})
}

func TestDisconnectAll_ClearsEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.start(t)

	require.NoError(t, h.ctrl.Configure(ctx, "wss://one", "wss://two"))
	h.push(t, `{"status":"success","team":"A","players":[{"tag":1,"team_name":"A"}]}`)
	h.push(t, `{"status":"success","team":"B","players":[{"tag":2,"team_name":"B"}]}`)
	h.waitFor(t, "two teams", func(v View) bool { return len(v.Teams) == 2 })

	require.NoError(t, h.ctrl.DisconnectAll(ctx))

	v := h.view(t)
	assert.Empty(t, v.Teams)
	assert.Empty(t, v.Rows)
	assert.False(t, v.Slots[0].Connected)
	assert.False(t, v.Slots[1].Connected)
	assert.True(t, v.SavedURLs.Empty())
	assert.Equal(t, Notice{Text: "Все соединения отключены", Class: ClassDisconnected}, v.Notice)
	assert.Equal(t, "Нет активных подключений к внешним WebSocket", v.ConnectionInfo)

	h.savedEventually(t, storage.SavedURLs{})
}

func TestDisconnectAll_RequiresConnection(t *testing.T) {
	h := newHarness(t)

	assert.ErrorIs(t, h.ctrl.DisconnectAll(context.Background()), ErrNotConnected)
	assert.Empty(t, h.srv.RequestsTo("disconnect_all"))
}

func TestDisconnectAll_FailureKeepsState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.Configure(ctx, "wss://one", ""))
	h.waitFor(t, "channel open", func(v View) bool { return v.ChannelOpen })
	h.srv.Fail("disconnect_all", 502, "")

	err := h.ctrl.DisconnectAll(ctx)

	require.Error(t, err)
	v := h.view(t)
	assert.True(t, v.Slots[0].Connected)
	assert.Equal(t, Notice{Text: "Ошибка отключения: Ошибка сервера", Class: ClassDisconnected}, v.Notice)
	h.savedEventually(t, storage.SavedURLs{URL1: "wss://one"})
}

func TestResetOneMax_FlashThenRevert(t *testing.T) {
	h := newHarness(t)
	before := h.start(t).Notice

	require.NoError(t, h.ctrl.ResetOneMax(context.Background(), "tag123"))

	v := h.view(t)
	assert.Equal(t, Notice{Text: "Максимальные значения очищены для tag123", Class: ClassConnected}, v.Notice)
	assert.JSONEq(t, `{"tag":"tag123"}`, string(h.srv.RequestsTo("reset_max_values_tag")[0].Body))

	h.clock.Advance(2999 * time.Millisecond)
	assert.Equal(t, "Максимальные значения очищены для tag123", h.view(t).Notice.Text)

	h.clock.Advance(time.Millisecond)
	h.waitFor(t, "revert", func(v View) bool { return v.Notice == before })
}

func TestResetAllMax_FlashThenRevert(t *testing.T) {
	h := newHarness(t)
	before := h.start(t).Notice

	require.NoError(t, h.ctrl.ResetAllMax(context.Background()))
	assert.Equal(t, "Максимальные значения очищены", h.view(t).Notice.Text)
	require.Len(t, h.srv.RequestsTo("reset_max_values"), 1)

	h.clock.Advance(3 * time.Second)
	h.waitFor(t, "revert", func(v View) bool { return v.Notice == before })
}

func TestReset_StackedFlashesRevertToBase(t *testing.T) {
	h := newHarness(t)
	before := h.start(t).Notice
	ctx := context.Background()

	require.NoError(t, h.ctrl.ResetOneMax(ctx, "A"))
	h.clock.Advance(time.Second)
	require.NoError(t, h.ctrl.ResetOneMax(ctx, "B"))
	assert.Equal(t, "Максимальные значения очищены для B", h.view(t).Notice.Text)

	// The first flash's revert is stale; the second must restore the base.
	h.clock.Advance(2 * time.Second)
	h.barrier(t, true)
	assert.Equal(t, "Максимальные значения очищены для B", h.view(t).Notice.Text)

	h.clock.Advance(time.Second)
	h.waitFor(t, "revert to base", func(v View) bool { return v.Notice == before })
	assert.Equal(t, 0, h.clock.Pending())
}

func TestStoreWrites_FollowActionOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.Configure(ctx, "wss://one", "wss://two"))
	require.NoError(t, h.ctrl.DisconnectAll(ctx))
	require.NoError(t, h.ctrl.Configure(ctx, "wss://three", ""))

	h.savedEventually(t, storage.SavedURLs{URL1: "wss://three"})
	h.ctrl.Close()
	saved, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.SavedURLs{URL1: "wss://three"}, saved)
}

func TestReset_ErrorIsPersistent(t *testing.T) {
	h := newHarness(t)
	h.srv.Fail("reset_max_values", 500, "nope")

	err := h.ctrl.ResetAllMax(context.Background())

	require.Error(t, err)
	assert.Equal(t, Notice{Text: "Ошибка сброса: nope", Class: ClassDisconnected}, h.view(t).Notice)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestRevert_SkippedWhenNoticeReplaced(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.NoError(t, h.ctrl.ResetAllMax(context.Background()))
	h.push(t, `{"status":"no_response","team":"team1"}`)
	h.waitFor(t, "newer notice", func(v View) bool { return v.Notice.Text == "Нет данных от team1" })

	h.clock.Advance(3 * time.Second)
	h.barrier(t, true)

	assert.Equal(t, "Нет данных от team1", h.view(t).Notice.Text)
}

func TestChannelClose_NoticeAndNoReconnect(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.srv.DropClients(websocket.StatusNormalClosure)
	v := h.waitFor(t, "closed", func(v View) bool { return !v.ChannelOpen && v.Notice.Text == "Соединение закрыто" })
	assert.Equal(t, ClassDisconnected, v.Notice.Class)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, h.srv.Clients())
}

func TestChannelError_Notice(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	h.srv.DropClients(websocket.StatusInternalError)
	h.waitFor(t, "error notice", func(v View) bool {
		return !v.ChannelOpen && v.Notice == Notice{Text: "Ошибка соединения", Class: ClassDisconnected}
	})
}

func TestSubscribe_ReceivesViewsAndDropsSlowSubscriber(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	ctx := context.Background()

	fast := make(chan View, 16)
	slow := make(chan View, 1)
	require.NoError(t, h.ctrl.Subscribe(ctx, "fast", fast))
	require.NoError(t, h.ctrl.Subscribe(ctx, "slow", slow))

	h.push(t, `{"status":"success","team":"A","players":[{"tag":1,"team_name":"A"}]}`)

	deadline := time.After(2 * time.Second)
	for got := false; !got; {
		select {
		case v := <-fast:
			got = len(v.Rows) == 1
		case <-deadline:
			t.Fatalf("fast subscriber never saw the batch")
		}
	}

	<-slow // the initial view
	select {
	case _, ok := <-slow:
		assert.False(t, ok, "slow subscriber should have been dropped")
	case <-time.After(time.Second):
		t.Fatalf("slow subscriber channel was not closed")
	}

	h.ctrl.Unsubscribe("fast")
}

func TestClose_ClosesSubscribersAndRejectsCalls(t *testing.T) {
	h := newHarness(t)
	out := make(chan View, 4)
	require.NoError(t, h.ctrl.Subscribe(context.Background(), "s", out))

	h.ctrl.Close()

	drainClosed(t, out, time.Second)
	assert.ErrorIs(t, h.ctrl.ResetAllMax(context.Background()), ErrClosed)
	_, err := h.ctrl.View(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_RightAfterSubscribeClosesOutbox(t *testing.T) {
	be, err := backend.New("http://127.0.0.1:1", backendtest.BasePath, time.Second)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		ctrl := New(context.Background(), be)
		out := make(chan View, 1)
		require.NoError(t, ctrl.Subscribe(context.Background(), "s", out))
		ctrl.Close()
		drainClosed(t, out, time.Second)
	}
}

func TestSubscribe_AfterCloseIsRejected(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Close()

	out := make(chan View, 1)
	assert.ErrorIs(t, h.ctrl.Subscribe(context.Background(), "late", out), ErrClosed)
}

// drainClosed reads out until it is closed, failing instead of hanging.
func drainClosed(t *testing.T, out <-chan View, within time.Duration) {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("subscriber outbox was not closed")
		}
	}
}
