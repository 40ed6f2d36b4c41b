package pipeline

import "log/slog"

// State is the position of one order in its life cycle.
//
//	Filling → Submitted → Captured
//	    └──────┴──────────→ Failed
type State int

const (
	StateFilling State = iota
	StateSubmitted
	StateCaptured
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateSubmitted:
		return "submitted"
	case StateCaptured:
		return "captured"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// orderRun tracks one order through its states.
type orderRun struct {
	number   int
	state    State
	attempts int
	log      *slog.Logger
}

func newOrderRun(number int) *orderRun {
	return &orderRun{
		number: number,
		state:  StateFilling,
		log:    slog.With("order", number),
	}
}

func (r *orderRun) transition(to State) {
	r.log.Debug("order state", "from", r.state.String(), "to", to.String())
	r.state = to
}

// fail moves the order to StateFailed and returns err unchanged.
func (r *orderRun) fail(err error) error {
	r.log.Error("order failed", "state", r.state.String(), "attempts", r.attempts, "error", err)
	r.transition(StateFailed)
	return err
}
