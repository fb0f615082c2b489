// Package types holds the wire protocol spoken with the relay backend.
//
// Client -> Server (live channel):
//
//	{"type": "get_initial_data"}
//
// Server -> Client (live channel), one of:
//
//	{"type": "connection_status", "data": {"team1": bool, "team2": bool}}
//	{"status": "no_response", "team": string, "message": string}
//	{"status": "disconnected_timeout", "team": string, "message": string}
//	{"status": "success", "team"?: string, "players": [PlayerRecord, ...]}
package types

import (
	"bytes"
	"encoding/json"

	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

const (
	TypeGetInitialData   = "get_initial_data"
	TypeConnectionStatus = "connection_status"

	StatusNoResponse          = "no_response"
	StatusDisconnectedTimeout = "disconnected_timeout"
	StatusSuccess             = "success"
)

type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage is the closed set of push messages the dashboard understands.
type ServerMessage interface{ isServerMessage() }

type ConnectionStatus struct {
	Data map[telemetry.SlotName]bool
}

type NoResponse struct {
	Team    string
	Message string
}

type DisconnectedTimeout struct {
	Team    string
	Message string
}

type PlayersUpdate struct {
	Team    string
	Players []telemetry.PlayerRecord
}

// Unknown is a well-formed message that matches no known variant.
type Unknown struct {
	Raw json.RawMessage
}

// Malformed is a frame that is not a JSON object.
type Malformed struct {
	Raw []byte
	Err error
}

func (ConnectionStatus) isServerMessage()    {}
func (NoResponse) isServerMessage()          {}
func (DisconnectedTimeout) isServerMessage() {}
func (PlayersUpdate) isServerMessage()       {}
func (Unknown) isServerMessage()             {}
func (Malformed) isServerMessage()           {}

// TeamName resolves the team a player batch belongs to: the explicit team field,
// else the first record's team_name. "" means unresolved.
func (p PlayersUpdate) TeamName() string {
	if p.Team != "" {
		return p.Team
	}
	if len(p.Players) > 0 {
		return p.Players[0].TeamName.Text()
	}
	return ""
}

type envelope struct {
	Type    string                     `json:"type"`
	Status  string                     `json:"status"`
	Team    string                     `json:"team"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
	Players []telemetry.PlayerRecord   `json:"players"`
}

// Decode classifies one text frame. The discriminant precedence is
// type=="connection_status", then status no_response, disconnected_timeout,
// success with a non-empty player list.
func Decode(data []byte) ServerMessage {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Malformed{Raw: data, Err: err}
	}

	switch {
	case env.Type == TypeConnectionStatus:
		status := make(map[telemetry.SlotName]bool, len(telemetry.Slots))
		for _, name := range telemetry.Slots {
			status[name] = isTrue(env.Data[string(name)])
		}
		return ConnectionStatus{Data: status}
	case env.Status == StatusNoResponse:
		return NoResponse{Team: env.Team, Message: env.Message}
	case env.Status == StatusDisconnectedTimeout:
		return DisconnectedTimeout{Team: env.Team, Message: env.Message}
	case env.Status == StatusSuccess && len(env.Players) > 0:
		return PlayersUpdate{Team: env.Team, Players: env.Players}
	default:
		return Unknown{Raw: json.RawMessage(data)}
	}
}

// isTrue reports whether a connection_status slot value is JSON true. Any
// other value, or a missing slot, counts as disconnected.
func isTrue(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

// ConfigureRequest is the body of POST set_wss_url.
type ConfigureRequest struct {
	URL  string `json:"url"`
	URL2 string `json:"url_2"`
}

// ResetTagRequest is the body of POST reset_max_values_tag.
type ResetTagRequest struct {
	Tag json.RawMessage `json:"tag"`
}
