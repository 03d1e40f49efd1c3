package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/airport-shuttle/internal/models"
	"github.com/example/airport-shuttle/internal/storage"
)

const maxComment = 1000

type Service struct {
	Store storage.ReviewStore
	Now   func() time.Time
}

func (s *Service) Create(ctx context.Context, authorID, userID string, rating int, comment, bookingID string) (*models.Review, error) {
	if authorID == "" {
		return nil, models.ErrNotAuthenticated
	}
	if userID == "" {
		return nil, models.ErrNotFound
	}
	if authorID == userID {
		return nil, models.ErrForbidden
	}
	if rating < 1 || rating > 5 {
		return nil, models.ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxComment {
		comment = comment[:maxComment]
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	r := &models.Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		AuthorID:  authorID,
		Rating:    rating,
		Comment:   comment,
		BookingID: bookingID,
		CreatedAt: now(),
	}
	if err := s.Store.SaveReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the reviews about userID, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Review, error) {
	return s.Store.ListReviews(ctx, userID)
}

type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

func Summarize(rs []*models.Review) Summary {
	if len(rs) == 0 {
		return Summary{}
	}
	total := 0
	for _, r := range rs {
		total += r.Rating
	}
	return Summary{Count: len(rs), Average: float64(total) / float64(len(rs))}
}
