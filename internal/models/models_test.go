package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorMatchesByKind(t *testing.T) {
	wrapped := fmt.Errorf("join trip t1: %w", ErrTripFull)
	if !errors.Is(wrapped, ErrTripFull) {
		t.Fatalf("expected wrapped error to match ErrTripFull")
	}
	if errors.Is(wrapped, ErrTripTerminal) {
		t.Fatalf("did not expect match with ErrTripTerminal")
	}
	custom := &DomainError{Kind: KindTripFull, Message: "no seats left on t1"}
	if !errors.Is(custom, ErrTripFull) {
		t.Fatalf("expected custom message error to match by kind")
	}
	if KindOf(wrapped) != KindTripFull {
		t.Fatalf("expected kind %q, got %q", KindTripFull, KindOf(wrapped))
	}
	if KindOf(errors.New("db down")) != "" {
		t.Fatalf("expected empty kind for infrastructure error")
	}
}

func TestTripCloneDoesNotShareParticipants(t *testing.T) {
	orig := &Trip{ID: "t1", Participants: []string{"a"}, CurrentPassengers: 1, MaxPassengers: 4}
	c := orig.Clone()
	c.Participants = append(c.Participants, "b")
	c.Participants[0] = "z"
	if orig.Participants[0] != "a" || len(orig.Participants) != 1 {
		t.Fatalf("clone mutated original: %v", orig.Participants)
	}
	if orig.AvailableSeats() != 3 {
		t.Fatalf("expected 3 seats, got %d", orig.AvailableSeats())
	}
}
