package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openroads/roadpass/internal/core/domain"
)

// BookingRepo implements ports.BookingRepository on the central database.
type BookingRepo struct {
	db *DB
}

func NewBookingRepo(db *DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, booking *domain.BookingInfo) error {
	_, err := r.db.Pool.Exec(ctx, `
        INSERT INTO booking_info (booking_id, start_location, end_location, regions, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, booking.BookingID, booking.StartLocation, booking.EndLocation,
		booking.Regions, string(booking.Status), booking.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateBooking
		}
		return err
	}
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, bookingID string) (*domain.BookingInfo, error) {
	var booking domain.BookingInfo
	var status string
	err := r.db.Pool.QueryRow(ctx, `
        SELECT booking_id, start_location, end_location, regions, status, created_at
        FROM booking_info
        WHERE booking_id = $1
    `, bookingID).Scan(
		&booking.BookingID, &booking.StartLocation, &booking.EndLocation,
		&booking.Regions, &status, &booking.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	booking.Status = domain.BookingStatus(status)
	return &booking, nil
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID string, status domain.BookingStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `
        UPDATE booking_info SET status = $2 WHERE booking_id = $1
    `, bookingID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepo) List(ctx context.Context, offset, limit int) ([]domain.BookingInfo, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM booking_info`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
        SELECT booking_id, start_location, end_location, regions, status, created_at
        FROM booking_info
        ORDER BY created_at DESC
        OFFSET $1 LIMIT $2
    `, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.BookingInfo
	for rows.Next() {
		var b domain.BookingInfo
		var status string
		if err := rows.Scan(
			&b.BookingID, &b.StartLocation, &b.EndLocation,
			&b.Regions, &status, &b.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		b.Status = domain.BookingStatus(status)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
