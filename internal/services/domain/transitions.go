package domain

import "marketplace_backend/platform/apperr"

// Action names a lifecycle operation on a service.
type Action string

const (
	ActionMarkOnRoute    Action = "mark_on_route"
	ActionMarkInProgress Action = "mark_in_progress"
	ActionMarkCompleted  Action = "mark_completed"
	ActionCancel         Action = "cancel"
	ActionWarrantyReopen Action = "warranty_reopen"
)

type rule struct {
	from []Status
	to   Status
	// idempotent is the status in which repeating the action is a no-op.
	idempotent Status
}

// rules is the complete transition table. Anything not listed is rejected.
var rules = map[Action]rule{
	ActionMarkOnRoute:    {from: []Status{StatusConfirmed}, to: StatusOnRoute, idempotent: StatusOnRoute},
	ActionMarkInProgress: {from: []Status{StatusConfirmed, StatusOnRoute}, to: StatusInProgress, idempotent: StatusInProgress},
	ActionMarkCompleted:  {from: []Status{StatusInProgress}, to: StatusCompleted},
	ActionCancel:         {from: []Status{StatusConfirmed, StatusOnRoute}, to: StatusCanceled},
	ActionWarrantyReopen: {from: []Status{StatusCompleted}, to: StatusConfirmed},
}

// Transition resolves action applied in status current. It returns the
// target status and changed=false when the action is an idempotent repeat.
func Transition(current Status, action Action) (Status, bool, error) {
	r, ok := rules[action]
	if !ok {
		return current, false, apperr.Validation("unknown service action")
	}
	if r.idempotent != "" && current == r.idempotent {
		return current, false, nil
	}
	for _, from := range r.from {
		if from == current {
			return r.to, true, nil
		}
	}
	return current, false, apperr.Conflict("cannot " + string(action) + " a service in status " + string(current)).
		WithDetails(map[string]string{"status": string(current)})
}
