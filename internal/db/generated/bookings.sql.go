package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const cancelBooking = `-- name: CancelBooking :one
UPDATE bookings
SET status = 'cancelled',
    cancelled_at = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status IN ('pending', 'confirmed')
RETURNING id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
`

type CancelBookingParams struct {
	CancelledAt sql.NullTime `json:"cancelled_at"`
	ID          int64        `json:"id"`
}

func (q *Queries) CancelBooking(ctx context.Context, arg CancelBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, cancelBooking, arg.CancelledAt, arg.ID)
	return scanBooking(row)
}

const checkInBooking = `-- name: CheckInBooking :one
UPDATE bookings
SET status = 'checked_in',
    check_in_at = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'confirmed'
RETURNING id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
`

type CheckInBookingParams struct {
	CheckInAt sql.NullTime `json:"check_in_at"`
	ID        int64        `json:"id"`
}

func (q *Queries) CheckInBooking(ctx context.Context, arg CheckInBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, checkInBooking, arg.CheckInAt, arg.ID)
	return scanBooking(row)
}

const confirmBooking = `-- name: ConfirmBooking :one
UPDATE bookings
SET status = 'confirmed',
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'pending'
RETURNING id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
`

func (q *Queries) ConfirmBooking(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx, confirmBooking, id)
	return scanBooking(row)
}

const createBooking = `-- name: CreateBooking :one
INSERT INTO bookings (court_id, user_id, booking_date, start_time, end_time, status, total_price_cents)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
`

type CreateBookingParams struct {
	CourtID         int64  `json:"court_id"`
	UserID          int64  `json:"user_id"`
	BookingDate     string `json:"booking_date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (Booking, error) {
	row := q.db.QueryRowContext(ctx, createBooking,
		arg.CourtID,
		arg.UserID,
		arg.BookingDate,
		arg.StartTime,
		arg.EndTime,
		arg.Status,
		arg.TotalPriceCents,
	)
	return scanBooking(row)
}

const getBooking = `-- name: GetBooking :one
SELECT id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
FROM bookings
WHERE id = ?
`

func (q *Queries) GetBooking(ctx context.Context, id int64) (Booking, error) {
	row := q.db.QueryRowContext(ctx, getBooking, id)
	return scanBooking(row)
}

const listActiveBookingsForCourtDate = `-- name: ListActiveBookingsForCourtDate :many
SELECT id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
FROM bookings
WHERE court_id = ?
  AND booking_date = ?
  AND status IN ('pending', 'confirmed', 'checked_in')
ORDER BY start_time
`

type ListActiveBookingsForCourtDateParams struct {
	CourtID     int64  `json:"court_id"`
	BookingDate string `json:"booking_date"`
}

func (q *Queries) ListActiveBookingsForCourtDate(ctx context.Context, arg ListActiveBookingsForCourtDateParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listActiveBookingsForCourtDate, arg.CourtID, arg.BookingDate)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

const listBookingsByUser = `-- name: ListBookingsByUser :many
SELECT id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
FROM bookings
WHERE user_id = ?
ORDER BY booking_date DESC, start_time DESC
`

func (q *Queries) ListBookingsByUser(ctx context.Context, userID int64) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsByUser, userID)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

const listBookingsByUserAndStatus = `-- name: ListBookingsByUserAndStatus :many
SELECT id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
FROM bookings
WHERE user_id = ? AND status = ?
ORDER BY booking_date DESC, start_time DESC
`

type ListBookingsByUserAndStatusParams struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

func (q *Queries) ListBookingsByUserAndStatus(ctx context.Context, arg ListBookingsByUserAndStatusParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsByUserAndStatus, arg.UserID, arg.Status)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

const listBookingsForCourtDate = `-- name: ListBookingsForCourtDate :many
SELECT id, court_id, user_id, booking_date, start_time, end_time, status, total_price_cents, check_in_at, cancelled_at, no_show_at, created_at, updated_at
FROM bookings
WHERE court_id = ? AND booking_date = ?
ORDER BY start_time, id
`

type ListBookingsForCourtDateParams struct {
	CourtID     int64  `json:"court_id"`
	BookingDate string `json:"booking_date"`
}

func (q *Queries) ListBookingsForCourtDate(ctx context.Context, arg ListBookingsForCourtDateParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsForCourtDate, arg.CourtID, arg.BookingDate)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

const listBookingsForFacilityDate = `-- name: ListBookingsForFacilityDate :many
SELECT b.id, b.court_id, b.user_id, b.booking_date, b.start_time, b.end_time, b.status, b.total_price_cents, b.check_in_at, b.cancelled_at, b.no_show_at, b.created_at, b.updated_at
FROM bookings b
JOIN courts c ON c.id = b.court_id
WHERE c.facility_id = ? AND b.booking_date = ?
ORDER BY c.court_number, b.start_time, b.id
`

type ListBookingsForFacilityDateParams struct {
	FacilityID  int64  `json:"facility_id"`
	BookingDate string `json:"booking_date"`
}

func (q *Queries) ListBookingsForFacilityDate(ctx context.Context, arg ListBookingsForFacilityDateParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listBookingsForFacilityDate, arg.FacilityID, arg.BookingDate)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

const listNoShowCandidates = `-- name: ListNoShowCandidates :many
SELECT b.id, b.court_id, b.user_id, b.booking_date, b.start_time, b.end_time, b.status, b.total_price_cents, b.check_in_at, b.cancelled_at, b.no_show_at, b.created_at, b.updated_at
FROM bookings b
JOIN courts c ON c.id = b.court_id
WHERE c.facility_id = ?
  AND b.status = 'confirmed'
  AND b.check_in_at IS NULL
  AND b.booking_date <= ?
ORDER BY b.booking_date, b.end_time, b.id
`

type ListNoShowCandidatesParams struct {
	FacilityID  int64  `json:"facility_id"`
	BookingDate string `json:"booking_date"`
}

func (q *Queries) ListNoShowCandidates(ctx context.Context, arg ListNoShowCandidatesParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listNoShowCandidates, arg.FacilityID, arg.BookingDate)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

const markBookingNoShow = `-- name: MarkBookingNoShow :execrows
UPDATE bookings
SET status = 'no_show',
    no_show_at = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'confirmed' AND check_in_at IS NULL
`

type MarkBookingNoShowParams struct {
	NoShowAt time.Time `json:"no_show_at"`
	ID       int64     `json:"id"`
}

func (q *Queries) MarkBookingNoShow(ctx context.Context, arg MarkBookingNoShowParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markBookingNoShow, arg.NoShowAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanBooking(row *sql.Row) (Booking, error) {
	var i Booking
	err := row.Scan(
		&i.ID,
		&i.CourtID,
		&i.UserID,
		&i.BookingDate,
		&i.StartTime,
		&i.EndTime,
		&i.Status,
		&i.TotalPriceCents,
		&i.CheckInAt,
		&i.CancelledAt,
		&i.NoShowAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanBookings(rows *sql.Rows) ([]Booking, error) {
	defer rows.Close()
	items := []Booking{}
	for rows.Next() {
		var i Booking
		if err := rows.Scan(
			&i.ID,
			&i.CourtID,
			&i.UserID,
			&i.BookingDate,
			&i.StartTime,
			&i.EndTime,
			&i.Status,
			&i.TotalPriceCents,
			&i.CheckInAt,
			&i.CancelledAt,
			&i.NoShowAt,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
