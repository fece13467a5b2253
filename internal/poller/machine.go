package poller

// Phase is the poller's position in its fetch lifecycle.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseFetching       Phase = "fetching"
	PhaseRetryScheduled Phase = "retry_scheduled"
	PhaseDisabled       Phase = "disabled"
	PhaseStopped        Phase = "stopped"
)

type event string

const (
	evDispatch    event = "dispatch"
	evSucceed     event = "succeed"
	evFail        event = "fail"
	evRetry       event = "schedule_retry"
	evCancelRetry event = "cancel_retry"
	evDisable     event = "disable"
	evEnable      event = "enable"
	evStop        event = "stop"
	evHalt        event = "halt"
)

// transitions is the complete transition table. A dispatch while fetching
// supersedes the in-flight attempt. Halt is the end of a session through
// its context; stopped is terminal.
var transitions = map[Phase]map[event]Phase{
	PhaseIdle: {
		evDispatch: PhaseFetching,
		evDisable:  PhaseDisabled,
		evStop:     PhaseStopped,
		evHalt:     PhaseIdle,
	},
	PhaseFetching: {
		evDispatch: PhaseFetching,
		evSucceed:  PhaseIdle,
		evFail:     PhaseIdle,
		evRetry:    PhaseRetryScheduled,
		evDisable:  PhaseDisabled,
		evStop:     PhaseStopped,
		evHalt:     PhaseIdle,
	},
	PhaseRetryScheduled: {
		evDispatch:    PhaseFetching,
		evCancelRetry: PhaseIdle,
		evDisable:     PhaseDisabled,
		evStop:        PhaseStopped,
		evHalt:        PhaseIdle,
	},
	PhaseDisabled: {
		evEnable: PhaseIdle,
		evStop:   PhaseStopped,
	},
	PhaseStopped: {},
}

// next returns the phase reached from p on ev, and false when the
// transition is not in the table.
func (p Phase) next(ev event) (Phase, bool) {
	to, ok := transitions[p][ev]
	if !ok {
		return p, false
	}
	return to, true
}
