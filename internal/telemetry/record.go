package telemetry

import (
	"bytes"
	"encoding/json"
)

// Placeholder is rendered for fields a record does not carry.
const Placeholder = "-"

// Value is one optional scalar of a player record. The raw JSON token is kept so
// numbers round-trip to the backend exactly as they arrived.
type Value struct {
	raw json.RawMessage
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		v.raw = nil
		return nil
	}
	v.raw = append(v.raw[:0], b...)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Present reports whether the field was sent with a non-null value.
func (v Value) Present() bool { return len(v.raw) > 0 }

// Raw returns the JSON token, nil when absent.
func (v Value) Raw() json.RawMessage { return v.raw }

// Text is the plain text of the value, "" when absent.
func (v Value) Text() string {
	if len(v.raw) == 0 {
		return ""
	}
	if v.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(v.raw, &s); err == nil {
			return s
		}
	}
	return string(v.raw)
}

// String is the display form: Text, or Placeholder when absent.
func (v Value) String() string {
	if !v.Present() {
		return Placeholder
	}
	return v.Text()
}

// StringValue builds a Value holding a JSON string.
func StringValue(s string) Value {
	b, _ := json.Marshal(s)
	return Value{raw: b}
}

// NumberValue builds a Value from a JSON number literal such as "12" or "3.5".
func NumberValue(n string) Value {
	return Value{raw: json.RawMessage(n)}
}

// PlayerRecord is one player's metrics row as relayed by the backend.
type PlayerRecord struct {
	Tag          Value `json:"tag"`
	TeamName     Value `json:"team_name"`
	Jersey       Value `json:"jersey"`
	FirstName    Value `json:"first_name"`
	LastName     Value `json:"last_name"`
	DistanceM    Value `json:"distance_m"`
	DistanceKM   Value `json:"distance_km"`
	HIR          Value `json:"hir"`
	HR           Value `json:"hr"`
	MaxHR        Value `json:"max_hr"`
	MaxSpeed60s  Value `json:"max_speed_60_s"`
	MaxSpeed120s Value `json:"max_speed_120_s"`
	MaxSpeed180s Value `json:"max_speed_180_s"`
	MaxSpeed     Value `json:"max_speed"`
	Load         Value `json:"load"`
}

// Columns is the fixed column order of the player table.
var Columns = []string{
	"tag", "team_name", "jersey", "first_name", "last_name",
	"distance_m", "distance_km", "hir", "hr", "max_hr",
	"max_speed_60_s", "max_speed_120_s", "max_speed_180_s", "max_speed", "load",
}

// Cells returns the display values in Columns order.
func (p PlayerRecord) Cells() []string {
	fields := [...]Value{
		p.Tag, p.TeamName, p.Jersey, p.FirstName, p.LastName,
		p.DistanceM, p.DistanceKM, p.HIR, p.HR, p.MaxHR,
		p.MaxSpeed60s, p.MaxSpeed120s, p.MaxSpeed180s, p.MaxSpeed, p.Load,
	}
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = f.String()
	}
	return cells
}
