package trips

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/airport-shuttle/internal/models"
)

func title(t models.NotificationType) string {
	switch t {
	case models.NotifyTripUpdate:
		return "Trip updated"
	case models.NotifyTripCancelled:
		return "Trip cancelled"
	case models.NotifyParticipantJoined:
		return "New participant"
	case models.NotifyParticipantLeft:
		return "Participant left"
	default:
		return "Trip notification"
	}
}

func message(t models.NotificationType, trip *models.Trip) string {
	switch t {
	case models.NotifyTripUpdate:
		return fmt.Sprintf("The trip from %s to %s has been updated", trip.Pickup.Address, trip.Dropoff.Address)
	case models.NotifyTripCancelled:
		return fmt.Sprintf("The trip from %s to %s has been cancelled", trip.Pickup.Address, trip.Dropoff.Address)
	case models.NotifyParticipantJoined:
		return fmt.Sprintf("A new participant joined your trip to %s", trip.Dropoff.Address)
	case models.NotifyParticipantLeft:
		return fmt.Sprintf("A participant left your trip to %s", trip.Dropoff.Address)
	default:
		return "Your trip has been updated"
	}
}

// NewNotification builds the unread notification sent to userID about trip.
func NewNotification(userID string, typ models.NotificationType, trip *models.Trip, now time.Time) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		TripID:    trip.ID,
		Type:      typ,
		Title:     title(typ),
		Message:   message(typ, trip),
		CreatedAt: now,
	}
}

// recipients is every participant except the actor.
func recipients(trip *models.Trip, actorID string) []string {
	out := make([]string, 0, len(trip.Participants))
	for _, p := range trip.Participants {
		if p != actorID {
			out = append(out, p)
		}
	}
	return out
}
