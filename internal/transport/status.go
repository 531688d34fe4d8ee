package transport

import (
	"encoding/json"
	"time"
)

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateSearching
	StateNoDeviceFound
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSearching:
		return "searching"
	case StateNoDeviceFound:
		return "no device found"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Status is an observable snapshot of the session. Attempt counts consecutive
// failed attempts since the last successful open.
type Status struct {
	State   State
	Device  Device
	Attempt int
	Err     error
	Since   time.Time
}

func (s Status) MarshalJSON() ([]byte, error) {
	out := struct {
		State   string    `json:"state"`
		Device  string    `json:"device,omitempty"`
		Attempt int       `json:"attempt"`
		Error   string    `json:"error,omitempty"`
		Since   time.Time `json:"since"`
	}{
		State:   s.State.String(),
		Device:  s.Device.Name,
		Attempt: s.Attempt,
		Since:   s.Since,
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}
