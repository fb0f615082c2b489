package telemetry

import (
	"fmt"
	"slices"
	"strings"
)

type SlotName string

const (
	SlotTeam1 SlotName = "team1"
	SlotTeam2 SlotName = "team2"
)

// Slots lists the two upstream positions in their fixed order.
var Slots = [2]SlotName{SlotTeam1, SlotTeam2}

// Label is the operator-facing name of the slot.
func (s SlotName) Label() string {
	switch s {
	case SlotTeam1:
		return "Team 1"
	case SlotTeam2:
		return "Team 2"
	default:
		return string(s)
	}
}

func ParseSlot(s string) (SlotName, bool) {
	switch s {
	case "team1":
		return SlotTeam1, true
	case "team2":
		return SlotTeam2, true
	default:
		return "", false
	}
}

func slotIndex(s SlotName) int {
	if s == SlotTeam2 {
		return 1
	}
	return 0
}

type UpstreamSlot struct {
	Name      SlotName `json:"name"`
	Connected bool     `json:"connected"`
	URL       string   `json:"url,omitempty"`
}

// SlotReport is the backend's view of one slot. Missing fields mean
// disconnected and no URL.
type SlotReport struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
}

// StatusReport is the body of GET /status.
type StatusReport struct {
	Team1 *SlotReport `json:"team1,omitempty"`
	Team2 *SlotReport `json:"team2,omitempty"`
}

func (r StatusReport) slot(name SlotName) SlotReport {
	var rep *SlotReport
	if name == SlotTeam1 {
		rep = r.Team1
	} else {
		rep = r.Team2
	}
	if rep == nil {
		return SlotReport{}
	}
	return *rep
}

// TeamBatch is the latest full player list received for one team.
type TeamBatch struct {
	Team    string         `json:"team"`
	Players []PlayerRecord `json:"players"`
}

// State is the dashboard's connection status store plus team data store.
// It is owned by a single goroutine; use Snapshot to hand it to readers.
type State struct {
	slots      [2]UpstreamSlot
	teamOrder  []string
	teams      map[string][]PlayerRecord
	configured map[SlotName]string
}

func NewState() *State {
	s := &State{
		teams:      map[string][]PlayerRecord{},
		configured: map[SlotName]string{},
	}
	s.ResetSlots()
	return s
}

// ApplyStatusReport overwrites both slots from a REST status fetch.
func (s *State) ApplyStatusReport(r StatusReport) {
	for i, name := range Slots {
		rep := r.slot(name)
		s.slots[i] = UpstreamSlot{Name: name, Connected: rep.Connected, URL: rep.URL}
	}
}

// ApplyConnectionStatus overwrites both slots from a connection_status push.
// The push carries only booleans; the URL comes from what this session
// configured for that slot, by slot name.
func (s *State) ApplyConnectionStatus(data map[SlotName]bool) {
	for i, name := range Slots {
		s.slots[i] = UpstreamSlot{Name: name, Connected: data[name], URL: s.configured[name]}
	}
}

// ResetSlots marks both slots disconnected with no URL.
func (s *State) ResetSlots() {
	for i, name := range Slots {
		s.slots[i] = UpstreamSlot{Name: name}
	}
}

// SetConfigured records the URLs this session asked the backend to relay.
// Empty URLs leave their slot unconfigured.
func (s *State) SetConfigured(url1, url2 string) {
	clear(s.configured)
	if url1 != "" {
		s.configured[SlotTeam1] = url1
	}
	if url2 != "" {
		s.configured[SlotTeam2] = url2
	}
}

func (s *State) ClearConfigured() { clear(s.configured) }

func (s *State) Configured(name SlotName) string { return s.configured[name] }

// ReplaceTeam swaps in a team's full player list. Other teams are untouched.
func (s *State) ReplaceTeam(team string, players []PlayerRecord) {
	if _, ok := s.teams[team]; !ok {
		s.teamOrder = append(s.teamOrder, team)
	}
	s.teams[team] = slices.Clone(players)
}

func (s *State) ClearTeams() {
	s.teamOrder = nil
	clear(s.teams)
}

func (s *State) Team(team string) ([]PlayerRecord, bool) {
	p, ok := s.teams[team]
	return p, ok
}

func (s *State) TeamCount() int { return len(s.teamOrder) }

func (s *State) Slot(name SlotName) UpstreamSlot { return s.slots[slotIndex(name)] }

// AnyConnected gates the configure/disconnect actions and the initial data request.
func (s *State) AnyConnected() bool {
	return s.slots[0].Connected || s.slots[1].Connected
}

// ConnectionInfo is the one-line summary of active upstream relays.
func (s *State) ConnectionInfo() string {
	var parts []string
	for _, slot := range s.slots {
		if slot.Connected && slot.URL != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", slot.Name.Label(), slot.URL))
		}
	}
	if len(parts) == 0 {
		return "Нет активных подключений к внешним WebSocket"
	}
	return "Активные подключения сервера: " + strings.Join(parts, " | ")
}

type Snapshot struct {
	Slots []UpstreamSlot `json:"slots"`
	Teams []TeamBatch    `json:"teams"`
}

// Snapshot deep-copies the state for use outside the owning goroutine.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Slots: slices.Clone(s.slots[:]),
		Teams: make([]TeamBatch, 0, len(s.teamOrder)),
	}
	for _, team := range s.teamOrder {
		snap.Teams = append(snap.Teams, TeamBatch{Team: team, Players: slices.Clone(s.teams[team])})
	}
	return snap
}
