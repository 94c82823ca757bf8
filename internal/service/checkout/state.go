package checkout

import (
	"fmt"

	"storefront/internal/domain"
)

// State is the position of one checkout attempt.
type State string

const (
	StateStarted              State = "started"
	StateCustomerResolved     State = "customer_resolved"
	StatePaymentIntentCreated State = "payment_intent_created"
	StatePaymentConfirmed     State = "payment_confirmed"
	StateOrderCreated         State = "order_created"
	StateCartCleared          State = "cart_cleared"
	StateNotificationEnqueued State = "notification_enqueued"
	StateComplete             State = "complete"
	StateAborted              State = "aborted"
)

var next = map[State]State{
	StateStarted:              StateCustomerResolved,
	StateCustomerResolved:     StatePaymentIntentCreated,
	StatePaymentIntentCreated: StatePaymentConfirmed,
	StatePaymentConfirmed:     StateOrderCreated,
	StateOrderCreated:         StateCartCleared,
	StateCartCleared:          StateNotificationEnqueued,
	StateNotificationEnqueued: StateComplete,
}

func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

// CanTransition reports whether the machine may move from one state to
// another. Steps only move forward one at a time; any non-terminal state may
// abort.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateAborted {
		return true
	}
	return next[from] == to
}

// Step is one entry of the transition trail. Error is set for aborts and for
// best-effort steps that failed without stopping the checkout.
type Step struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

type run struct {
	state State
	steps []Step
}

func newRun(at State) *run {
	return &run{state: at, steps: []Step{{State: at}}}
}

func (r *run) advance(to State, stepErr error) error {
	if !CanTransition(r.state, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, r.state, to)
	}
	step := Step{State: to}
	if stepErr != nil {
		step.Error = stepErr.Error()
	}
	r.state = to
	r.steps = append(r.steps, step)
	return nil
}

func (r *run) abort(reason error) {
	if r.state.Terminal() {
		return
	}
	r.state = StateAborted
	r.steps = append(r.steps, Step{State: StateAborted, Error: reason.Error()})
}
