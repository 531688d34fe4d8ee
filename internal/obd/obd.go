package obd

import (
	"slices"
	"time"
)

const (
	// Invalid is the value of a reading whose reply could not be decoded.
	Invalid = -1

	// Bias is subtracted from every decoded payload.
	Bias = 40

	// PowerDivisor relates rpm and torque to power in the mixed units used here.
	PowerDivisor = 5252.0

	DefaultMaxTorque  = 380.0
	DefaultMaxPower   = 310.0
	DefaultInterval   = 100 * time.Millisecond
	DefaultBufferSize = 1024
)

// Reading names one decoded value of a cycle.
type Reading string

const (
	OilTemp     Reading = "oil_temp"
	CoolantTemp Reading = "coolant_temp"
	EngineLoad  Reading = "engine_load"
	EngineSpeed Reading = "engine_speed"
)

// Snapshot is the outcome of one complete cycle. Missing lists readings whose
// reply could not be decoded; their value is Invalid.
type Snapshot struct {
	Cycle  uint64    `json:"cycle"`
	Time   time.Time `json:"time"`
	Device string    `json:"device,omitempty"`

	OilTemp     int `json:"oilTemp"`
	CoolantTemp int `json:"coolantTemp"`
	EngineLoad  int `json:"engineLoad"`
	EngineSpeed int `json:"engineSpeed"`

	Torque float64 `json:"torque"`
	Power  float64 `json:"power"`

	MaxTorque float64 `json:"maxTorque"`
	MaxPower  float64 `json:"maxPower"`

	Missing []Reading `json:"missing,omitempty"`
}

// Value returns the decoded value for r.
func (s Snapshot) Value(r Reading) int {
	switch r {
	case OilTemp:
		return s.OilTemp
	case CoolantTemp:
		return s.CoolantTemp
	case EngineLoad:
		return s.EngineLoad
	case EngineSpeed:
		return s.EngineSpeed
	default:
		return Invalid
	}
}

// Available reports whether r was decoded in this cycle.
func (s Snapshot) Available(r Reading) bool {
	return !slices.Contains(s.Missing, r)
}

func (s *Snapshot) set(r Reading, v int) {
	switch r {
	case OilTemp:
		s.OilTemp = v
	case CoolantTemp:
		s.CoolantTemp = v
	case EngineLoad:
		s.EngineLoad = v
	case EngineSpeed:
		s.EngineSpeed = v
	}
}
