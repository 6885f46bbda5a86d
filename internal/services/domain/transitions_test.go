package domain

import (
	"testing"

	"marketplace_backend/platform/apperr"
)

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusConfirmed, StatusOnRoute, StatusInProgress, StatusCompleted, StatusCanceled}

	type outcome struct {
		to      Status
		changed bool
	}
	want := map[Action]map[Status]outcome{
		ActionMarkOnRoute: {
			StatusConfirmed: {StatusOnRoute, true},
			StatusOnRoute:   {StatusOnRoute, false},
		},
		ActionMarkInProgress: {
			StatusConfirmed:  {StatusInProgress, true},
			StatusOnRoute:    {StatusInProgress, true},
			StatusInProgress: {StatusInProgress, false},
		},
		ActionMarkCompleted: {
			StatusInProgress: {StatusCompleted, true},
		},
		ActionCancel: {
			StatusConfirmed: {StatusCanceled, true},
			StatusOnRoute:   {StatusCanceled, true},
		},
		ActionWarrantyReopen: {
			StatusCompleted: {StatusConfirmed, true},
		},
	}

	for action, allowed := range want {
		for _, from := range all {
			to, changed, err := Transition(from, action)
			exp, ok := allowed[from]
			if !ok {
				if !apperr.Is(err, apperr.KindConflict) {
					t.Fatalf("%s from %s: expected conflict, got %v", action, from, err)
				}
				if to != from {
					t.Fatalf("%s from %s: status must be unchanged on rejection", action, from)
				}
				continue
			}
			if err != nil {
				t.Fatalf("%s from %s: unexpected error %v", action, from, err)
			}
			if to != exp.to || changed != exp.changed {
				t.Fatalf("%s from %s: expected (%s,%v), got (%s,%v)", action, from, exp.to, exp.changed, to, changed)
			}
		}
	}
}

func TestCancelRejectedFromInProgressAndCompleted(t *testing.T) {
	for _, s := range []Status{StatusInProgress, StatusCompleted, StatusCanceled} {
		if _, _, err := Transition(s, ActionCancel); !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("cancel from %s: expected conflict, got %v", s, err)
		}
	}
}

func TestWarrantyReopenOnlyFromCompleted(t *testing.T) {
	to, changed, err := Transition(StatusCompleted, ActionWarrantyReopen)
	if err != nil || !changed || to != StatusConfirmed {
		t.Fatalf("expected completed -> confirmed, got %s changed=%v err=%v", to, changed, err)
	}
	if _, _, err := Transition(StatusCanceled, ActionWarrantyReopen); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("reopen from canceled: expected conflict, got %v", err)
	}
}
