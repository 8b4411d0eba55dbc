package host

import "errors"

// CUMax is the default compute unit budget for one program run.
const CUMax = uint64(200_000)

// ErrComputeExceeded is returned when compute units are exhausted.
var ErrComputeExceeded = errors.New("compute budget exceeded")

// Meter tracks compute unit consumption.
type Meter struct {
	remaining uint64
	limit     uint64
}

// NewMeter creates a new compute meter.
func NewMeter(limit uint64) *Meter {
	return &Meter{
		remaining: limit,
		limit:     limit,
	}
}

// Consume attempts to consume compute units.
func (cm *Meter) Consume(cost uint64) error {
	if cm.remaining < cost {
		cm.remaining = 0
		return ErrComputeExceeded
	}
	cm.remaining -= cost
	return nil
}

// Remaining returns remaining compute units.
func (cm *Meter) Remaining() uint64 {
	return cm.remaining
}

// Consumed returns the compute units used so far.
func (cm *Meter) Consumed() uint64 {
	return cm.limit - cm.remaining
}
