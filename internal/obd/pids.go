package obd

import "fmt"

type PID struct {
	Mode    string
	Code    string
	Desc    string
	Reading Reading
}

var (
	PIDOilTemp     = PID{Mode: "01", Code: "5C", Desc: "Engine Oil Temperature", Reading: OilTemp}
	PIDCoolantTemp = PID{Mode: "01", Code: "05", Desc: "Engine Coolant Temperature", Reading: CoolantTemp}
	PIDEngineLoad  = PID{Mode: "01", Code: "04", Desc: "Calculated Engine Load", Reading: EngineLoad}
	PIDEngineRPM   = PID{Mode: "01", Code: "0C", Desc: "Engine RPM", Reading: EngineSpeed}
)

// Cycle is the fixed request order of one polling cycle.
var Cycle = []PID{PIDOilTemp, PIDCoolantTemp, PIDEngineLoad, PIDEngineRPM}

func (p PID) String() string {
	return fmt.Sprintf("%s%s", p.Mode, p.Code)
}

// Command is the request line without its terminator, e.g. "01 5C".
func (p PID) Command() string {
	return p.Mode + " " + p.Code
}
