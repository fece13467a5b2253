package poller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhase_Next(t *testing.T) {
	tests := []struct {
		from   Phase
		ev     event
		want   Phase
		wantOK bool
	}{
		{PhaseIdle, evDispatch, PhaseFetching, true},
		{PhaseFetching, evSucceed, PhaseIdle, true},
		{PhaseFetching, evFail, PhaseIdle, true},
		{PhaseFetching, evRetry, PhaseRetryScheduled, true},
		{PhaseFetching, evDispatch, PhaseFetching, true},
		{PhaseRetryScheduled, evDispatch, PhaseFetching, true},
		{PhaseRetryScheduled, evCancelRetry, PhaseIdle, true},
		{PhaseDisabled, evEnable, PhaseIdle, true},
		{PhaseIdle, evDisable, PhaseDisabled, true},
		{PhaseRetryScheduled, evStop, PhaseStopped, true},
		{PhaseFetching, evHalt, PhaseIdle, true},
		{PhaseRetryScheduled, evHalt, PhaseIdle, true},
		{PhaseIdle, evHalt, PhaseIdle, true},

		{PhaseIdle, evSucceed, PhaseIdle, false},
		{PhaseIdle, evRetry, PhaseIdle, false},
		{PhaseDisabled, evDispatch, PhaseDisabled, false},
		{PhaseStopped, evEnable, PhaseStopped, false},
		{PhaseStopped, evDispatch, PhaseStopped, false},
		{PhaseDisabled, evHalt, PhaseDisabled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, ok := tt.from.next(tt.ev)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestTransitions_EveryPhaseCanStop(t *testing.T) {
	for from := range transitions {
		if from == PhaseStopped {
			continue
		}
		to, ok := from.next(evStop)
		assert.True(t, ok, "phase %s", from)
		assert.Equal(t, PhaseStopped, to)
	}
}
