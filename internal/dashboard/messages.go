package dashboard

import (
	"github.com/DoyleJ11/relay-dashboard/internal/storage"
	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
	"github.com/DoyleJ11/relay-dashboard/internal/ws"
)

type msg interface{ isMsg() }

// Operator commands.

type startCmd struct{ reply chan error }

type configureCmd struct {
	url1, url2 string
	reply      chan error
}

type disconnectCmd struct{ reply chan error }

type resetCmd struct {
	tag   string
	one   bool
	reply chan error
}

type fetchStatusCmd struct{ reply chan error }

// Completions posted back by REST workers.

type startDone struct {
	gen      uint64
	saved    storage.SavedURLs
	savedErr error
	report   telemetry.StatusReport
	err      error
	reply    chan error
}

type configureDone struct {
	gen       uint64
	err       error
	report    telemetry.StatusReport
	reportErr error
	reply     chan error
}

type disconnectDone struct {
	gen   uint64
	err   error
	reply chan error
}

type resetDone struct {
	gen   uint64
	tag   string
	one   bool
	err   error
	reply chan error
}

type statusDone struct {
	gen    uint64
	report telemetry.StatusReport
	err    error
	reply  chan error
}

type revertNotice struct {
	seq  uint64
	prev Notice
}

type channelEvent struct{ ev ws.Event }

// Read side.

type getView struct{ reply chan View }

type subscribe struct {
	id    string
	out   chan View
	reply chan struct{}
}

type unsubscribe struct{ id string }

func (startCmd) isMsg()       {}
func (configureCmd) isMsg()   {}
func (disconnectCmd) isMsg()  {}
func (resetCmd) isMsg()       {}
func (fetchStatusCmd) isMsg() {}
func (startDone) isMsg()      {}
func (configureDone) isMsg()  {}
func (disconnectDone) isMsg() {}
func (resetDone) isMsg()      {}
func (statusDone) isMsg()     {}
func (revertNotice) isMsg()   {}
func (channelEvent) isMsg()   {}
func (getView) isMsg()        {}
func (subscribe) isMsg()      {}
func (unsubscribe) isMsg()    {}
