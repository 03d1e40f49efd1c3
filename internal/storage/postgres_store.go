package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/example/airport-shuttle/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresStore) Close() error { return p.db.Close() }

// Migrate executes a SQL file against the database.
func (p *PostgresStore) Migrate(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", path, err)
	}
	if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("exec migration %s: %w", path, err)
	}
	return nil
}

const tripColumns = `id, creator_id, participants, pickup, dropoff, scheduled_for, max_passengers,
	current_passengers, status, fare, version, created_at, updated_at`

func (p *PostgresStore) CreateTrip(ctx context.Context, t *models.Trip) error {
	pickup, dropoff, err := marshalStations(t.Pickup, t.Dropoff)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO trips(id, creator_id, participants, pickup, dropoff, pickup_id, dropoff_id,
		scheduled_for, max_passengers, current_passengers, status, fare, version, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		t.ID, t.CreatorID, pq.Array(t.Participants), pickup, dropoff, t.Pickup.ID, t.Dropoff.ID,
		t.ScheduledFor, t.MaxPassengers, t.CurrentPassengers, t.Status, int64(t.Fare), t.Version, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

func (p *PostgresStore) UpdateTrip(ctx context.Context, t *models.Trip, expectedVersion int64) error {
	res, err := p.db.ExecContext(ctx, `UPDATE trips
		SET participants=$1, current_passengers=$2, status=$3, updated_at=$4, version=version+1
		WHERE id=$5 AND version=$6`,
		pq.Array(t.Participants), t.CurrentPassengers, t.Status, t.UpdatedAt, t.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM trips WHERE id=$1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return ErrVersionConflict
	}
	t.Version = expectedVersion + 1
	return nil
}

func (p *PostgresStore) ListTrips(ctx context.Context, f TripFilter) ([]*models.Trip, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.PickupID != "" {
		add("pickup_id = $%d", f.PickupID)
	}
	if f.DropoffID != "" {
		add("dropoff_id = $%d", f.DropoffID)
	}
	if !f.From.IsZero() {
		add("scheduled_for >= $%d", f.From)
	}
	if f.MinSeats > 0 {
		add("max_passengers - current_passengers >= $%d", f.MinSeats)
	}
	q := `SELECT ` + tripColumns + ` FROM trips`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY scheduled_for ASC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return p.queryTrips(ctx, q, args...)
}

func (p *PostgresStore) ListDue(ctx context.Context, before time.Time, limit int) ([]*models.Trip, error) {
	if limit <= 0 {
		limit = 100
	}
	return p.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips
		WHERE status IN ('open', 'full') AND scheduled_for < $1
		ORDER BY scheduled_for ASC LIMIT $2`, before, limit)
}

func (p *PostgresStore) queryTrips(ctx context.Context, q string, args ...any) ([]*models.Trip, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (*models.Trip, error) {
	var (
		t               models.Trip
		pickup, dropoff []byte
		fare            int64
	)
	err := s.Scan(&t.ID, &t.CreatorID, pq.Array(&t.Participants), &pickup, &dropoff, &t.ScheduledFor,
		&t.MaxPassengers, &t.CurrentPassengers, &t.Status, &fare, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Fare = models.Amount(fare)
	if err := json.Unmarshal(pickup, &t.Pickup); err != nil {
		return nil, fmt.Errorf("decode pickup: %w", err)
	}
	if err := json.Unmarshal(dropoff, &t.Dropoff); err != nil {
		return nil, fmt.Errorf("decode dropoff: %w", err)
	}
	return &t, nil
}

func (p *PostgresStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	pickup, dropoff, err := marshalStations(b.Pickup, b.Dropoff)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO bookings(id, user_id, email, pickup, dropoff, scheduled_for, passengers,
		fare, status, payment_status, payment_ref, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		b.ID, b.UserID, b.Email, pickup, dropoff, b.ScheduledFor, b.Passengers, int64(b.Fare), b.Status,
		b.PaymentStatus, b.PaymentRef, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

const bookingColumns = `id, user_id, email, pickup, dropoff, scheduled_for, passengers, fare, status,
	payment_status, payment_ref, created_at, updated_at`

func (p *PostgresStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(p.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (p *PostgresStore) UpdateBooking(ctx context.Context, b *models.Booking) error {
	res, err := p.db.ExecContext(ctx, `UPDATE bookings SET status=$1, payment_status=$2, payment_ref=$3, updated_at=$4 WHERE id=$5`,
		b.Status, b.PaymentStatus, b.PaymentRef, time.Now(), b.ID)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (p *PostgresStore) TransitionPayment(ctx context.Context, id string, from, to models.PaymentStatus, at time.Time) error {
	res, err := p.db.ExecContext(ctx, `UPDATE bookings SET payment_status=$1, updated_at=$2 WHERE id=$3 AND payment_status=$4`,
		to, at, id, from)
	if err != nil {
		return fmt.Errorf("transition payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition payment: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id=$1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("transition payment: %w", err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return ErrPaymentStateConflict
}

func (p *PostgresStore) ListBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(s scanner) (*models.Booking, error) {
	var (
		b               models.Booking
		pickup, dropoff []byte
		fare            int64
	)
	err := s.Scan(&b.ID, &b.UserID, &b.Email, &pickup, &dropoff, &b.ScheduledFor, &b.Passengers, &fare,
		&b.Status, &b.PaymentStatus, &b.PaymentRef, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Fare = models.Amount(fare)
	if err := json.Unmarshal(pickup, &b.Pickup); err != nil {
		return nil, fmt.Errorf("decode pickup: %w", err)
	}
	if err := json.Unmarshal(dropoff, &b.Dropoff); err != nil {
		return nil, fmt.Errorf("decode dropoff: %w", err)
	}
	return &b, nil
}

func (p *PostgresStore) SaveReview(ctx context.Context, r *models.Review) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO reviews(id, user_id, author_id, rating, comment, booking_id, created_at)
		VALUES($1,$2,$3,$4,$5,NULLIF($6, ''),$7)`,
		r.ID, r.UserID, r.AuthorID, r.Rating, r.Comment, r.BookingID, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListReviews(ctx context.Context, userID string) ([]*models.Review, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, user_id, author_id, rating, comment, COALESCE(booking_id, ''), created_at
		FROM reviews WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Review, 0)
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.AuthorID, &r.Rating, &r.Comment, &r.BookingID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func marshalStations(a, b models.Station) ([]byte, []byte, error) {
	ja, err := json.Marshal(a)
	if err != nil {
		return nil, nil, fmt.Errorf("encode station: %w", err)
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return nil, nil, fmt.Errorf("encode station: %w", err)
	}
	return ja, jb, nil
}
