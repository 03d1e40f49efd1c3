package models

import "errors"

type ErrorKind string

const (
	KindUnknownStation    ErrorKind = "unknown_station"
	KindInvalidRoutePair  ErrorKind = "invalid_route_pair"
	KindNotApplicable     ErrorKind = "not_applicable"
	KindTooSoon           ErrorKind = "too_soon"
	KindTooFarAhead       ErrorKind = "too_far_ahead"
	KindNotAuthenticated  ErrorKind = "not_authenticated"
	KindSelfJoin          ErrorKind = "self_join"
	KindAlreadyJoined     ErrorKind = "already_joined"
	KindTripFull          ErrorKind = "trip_full"
	KindTripTerminal      ErrorKind = "trip_terminal"
	KindTripExpired       ErrorKind = "trip_expired"
	KindNotCreator        ErrorKind = "not_creator"
	KindConflict          ErrorKind = "conflict"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidPassengers ErrorKind = "invalid_passengers"
	KindInvalidRating     ErrorKind = "invalid_rating"
	KindPaymentNotPending ErrorKind = "payment_not_pending"
	KindForbidden         ErrorKind = "forbidden"
	KindNoPaymentMethod   ErrorKind = "payment_method_required"
)

// DomainError is a user-facing, recoverable failure. Sentinels are compared by
// Kind so wrapped copies with a different message still match errors.Is.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind ErrorKind, msg string) *DomainError { return &DomainError{Kind: kind, Message: msg} }

var (
	ErrUnknownStation    = newErr(KindUnknownStation, "unknown pickup or dropoff station")
	ErrInvalidRoutePair  = newErr(KindInvalidRoutePair, "routes must connect an airport with a train or taxi station")
	ErrNotApplicable     = newErr(KindNotApplicable, "no fixed fare applies to this route")
	ErrTooSoon           = newErr(KindTooSoon, "bookings must be made at least 30 minutes in advance")
	ErrTooFarAhead       = newErr(KindTooFarAhead, "bookings cannot be made more than 3 months in advance")
	ErrNotAuthenticated  = newErr(KindNotAuthenticated, "you must be logged in")
	ErrSelfJoin          = newErr(KindSelfJoin, "you cannot join your own trip")
	ErrAlreadyJoined     = newErr(KindAlreadyJoined, "you have already joined this trip")
	ErrTripFull          = newErr(KindTripFull, "this trip is full")
	ErrTripTerminal      = newErr(KindTripTerminal, "this trip is no longer active")
	ErrTripExpired       = newErr(KindTripExpired, "this trip has already departed")
	ErrNotCreator        = newErr(KindNotCreator, "only the trip creator can do this")
	ErrConflict          = newErr(KindConflict, "the trip changed concurrently, please retry")
	ErrNotFound          = newErr(KindNotFound, "not found")
	ErrInvalidPassengers = newErr(KindInvalidPassengers, "invalid passenger count")
	ErrInvalidRating     = newErr(KindInvalidRating, "rating must be between 1 and 5")
	ErrPaymentNotPending = newErr(KindPaymentNotPending, "booking is not awaiting payment")
	ErrForbidden         = newErr(KindForbidden, "not allowed")
	ErrNoPaymentMethod   = newErr(KindNoPaymentMethod, "a payment method is required")
)

// KindOf returns the domain kind carried by err, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
