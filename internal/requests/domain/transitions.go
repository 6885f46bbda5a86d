package domain

import "marketplace_backend/platform/apperr"

// statusTransitions lists every (from, to) pair a request may take through an
// update or cancellation. CLOSED is only entered by payment confirmation and
// is therefore listed separately.
var statusTransitions = map[Status]map[Status]bool{
	StatusDraft:     {StatusPublished: true, StatusCancelled: true},
	StatusPublished: {StatusDraft: true, StatusCancelled: true},
	StatusClosed:    {StatusCancelled: true},
	StatusCancelled: {},
}

// confirmableStatuses are the request statuses that accept a payment.
var confirmableStatuses = map[Status]bool{
	StatusPublished: true,
	StatusClosed:    true,
}

// CanTransition reports whether an update may move a request from -> to.
func CanTransition(from, to Status) bool {
	return statusTransitions[from][to]
}

// CheckStatusChange validates an update-driven status change. Same-status
// changes are accepted and treated as no-ops by the caller.
func CheckStatusChange(from, to Status) error {
	if !to.Valid() {
		return apperr.Validation("unknown status")
	}
	if from == to {
		return nil
	}
	if to == StatusClosed {
		return apperr.Conflict("a request is closed only by confirming a payment")
	}
	if !CanTransition(from, to) {
		return apperr.Conflict("cannot change request status from " + string(from) + " to " + string(to))
	}
	return nil
}

// CanConfirmPayment reports whether a request in status s accepts a payment.
func CanConfirmPayment(s Status) bool {
	return confirmableStatuses[s]
}

// CheckTypeChange allows only FAST -> LICITACION.
func CheckTypeChange(from, to RequestType) error {
	if !to.Valid() {
		return apperr.Validation("unknown request type")
	}
	if from == to {
		return nil
	}
	if from == TypeFast && to == TypeLicitacion {
		return nil
	}
	return apperr.Conflict("cannot change request type from " + string(from) + " to " + string(to))
}
