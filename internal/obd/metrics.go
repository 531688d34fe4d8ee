package obd

// Maxima are the best torque and power seen so far. They never decrease.
type Maxima struct {
	Torque float64 `json:"torque"`
	Power  float64 `json:"power"`
}

// DefaultMaxima returns the calibration seed.
func DefaultMaxima() Maxima {
	return Maxima{Torque: DefaultMaxTorque, Power: DefaultMaxPower}
}

// Merge returns the element-wise maximum of m and o.
func (m Maxima) Merge(o Maxima) Maxima {
	return Maxima{Torque: max(m.Torque, o.Torque), Power: max(m.Power, o.Power)}
}

// DeriveMetrics estimates torque as the load share of the running maximum
// and power from torque and speed, then raises the maxima if exceeded.
func DeriveMetrics(engineLoad, engineSpeed int, m Maxima) (torque, power float64, next Maxima) {
	if engineLoad > 0 {
		torque = (float64(engineLoad) / 100) * m.Torque
	}
	if engineSpeed > 0 && torque > 0 {
		power = (float64(engineSpeed) * torque) / PowerDivisor
	}

	next = m
	if torque > next.Torque {
		next.Torque = torque
	}
	if power > next.Power {
		next.Power = power
	}
	return torque, power, next
}
