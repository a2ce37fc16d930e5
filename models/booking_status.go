package models

import (
	"fmt"
	"strings"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BlockingBookingStatuses are the statuses that occupy a vehicle.
var BlockingBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusActive,
}

type BookingAction string

const (
	BookingActionConfirm  BookingAction = "confirm"
	BookingActionActivate BookingAction = "activate"
	BookingActionComplete BookingAction = "complete"
	BookingActionCancel   BookingAction = "cancel"
)

type bookingTransition struct {
	from []BookingStatus
	to   BookingStatus
	verb string
}

var bookingTransitions = map[BookingAction]bookingTransition{
	BookingActionConfirm:  {from: []BookingStatus{BookingStatusPending}, to: BookingStatusConfirmed, verb: "confirmed"},
	BookingActionActivate: {from: []BookingStatus{BookingStatusConfirmed}, to: BookingStatusActive, verb: "activated"},
	BookingActionComplete: {from: []BookingStatus{BookingStatusActive}, to: BookingStatusCompleted, verb: "completed"},
	BookingActionCancel:   {from: []BookingStatus{BookingStatusPending, BookingStatusConfirmed}, to: BookingStatusCancelled, verb: "cancelled"},
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	Action BookingAction
	From   BookingStatus
	rule   string
}

func (e *TransitionError) Error() string {
	return e.rule
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) BlocksAvailability() bool {
	for _, blocking := range BlockingBookingStatuses {
		if s == blocking {
			return true
		}
	}
	return false
}

// Apply returns the status reached by performing action from s.
func (s BookingStatus) Apply(action BookingAction) (BookingStatus, error) {
	t, ok := bookingTransitions[action]
	if !ok {
		return s, fmt.Errorf("unknown booking action %q", action)
	}
	for _, from := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return s, &TransitionError{Action: action, From: s, rule: t.rule()}
}

// TransitionTo moves s to next through the action that leads there.
func (s BookingStatus) TransitionTo(next BookingStatus) (BookingStatus, error) {
	if !next.IsValid() {
		return s, fmt.Errorf("invalid booking status %q", next)
	}
	for action, t := range bookingTransitions {
		if t.to == next {
			return s.Apply(action)
		}
	}
	return s, &TransitionError{From: s, rule: fmt.Sprintf("cannot move a %s booking back to %s", s, next)}
}

func (t bookingTransition) rule() string {
	names := make([]string, len(t.from))
	for i, from := range t.from {
		names[i] = string(from)
	}
	return fmt.Sprintf("only %s bookings can be %s", strings.Join(names, " or "), t.verb)
}
