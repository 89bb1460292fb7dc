package dbgen

import (
	"context"
)

const createCourt = `-- name: CreateCourt :one
INSERT INTO courts (facility_id, name, court_number, status)
VALUES (?, ?, ?, ?)
RETURNING id, facility_id, name, court_number, status, created_at
`

type CreateCourtParams struct {
	FacilityID  int64  `json:"facility_id"`
	Name        string `json:"name"`
	CourtNumber int64  `json:"court_number"`
	Status      string `json:"status"`
}

func (q *Queries) CreateCourt(ctx context.Context, arg CreateCourtParams) (Court, error) {
	row := q.db.QueryRowContext(ctx, createCourt,
		arg.FacilityID,
		arg.Name,
		arg.CourtNumber,
		arg.Status,
	)
	var i Court
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.Name,
		&i.CourtNumber,
		&i.Status,
		&i.CreatedAt,
	)
	return i, err
}

const createFacility = `-- name: CreateFacility :one
INSERT INTO facilities (name, timezone)
VALUES (?, ?)
RETURNING id, name, timezone, created_at
`

type CreateFacilityParams struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

func (q *Queries) CreateFacility(ctx context.Context, arg CreateFacilityParams) (Facility, error) {
	row := q.db.QueryRowContext(ctx, createFacility, arg.Name, arg.Timezone)
	var i Facility
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Timezone,
		&i.CreatedAt,
	)
	return i, err
}

const getCourt = `-- name: GetCourt :one
SELECT id, facility_id, name, court_number, status, created_at
FROM courts
WHERE id = ?
`

func (q *Queries) GetCourt(ctx context.Context, id int64) (Court, error) {
	row := q.db.QueryRowContext(ctx, getCourt, id)
	var i Court
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.Name,
		&i.CourtNumber,
		&i.Status,
		&i.CreatedAt,
	)
	return i, err
}

const getFacility = `-- name: GetFacility :one
SELECT id, name, timezone, created_at
FROM facilities
WHERE id = ?
`

func (q *Queries) GetFacility(ctx context.Context, id int64) (Facility, error) {
	row := q.db.QueryRowContext(ctx, getFacility, id)
	var i Facility
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Timezone,
		&i.CreatedAt,
	)
	return i, err
}

const getOperatingHours = `-- name: GetOperatingHours :one
SELECT id, facility_id, day_of_week, opens_at, closes_at
FROM operating_hours
WHERE facility_id = ? AND day_of_week = ?
`

type GetOperatingHoursParams struct {
	FacilityID int64 `json:"facility_id"`
	DayOfWeek  int64 `json:"day_of_week"`
}

func (q *Queries) GetOperatingHours(ctx context.Context, arg GetOperatingHoursParams) (OperatingHour, error) {
	row := q.db.QueryRowContext(ctx, getOperatingHours, arg.FacilityID, arg.DayOfWeek)
	var i OperatingHour
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.DayOfWeek,
		&i.OpensAt,
		&i.ClosesAt,
	)
	return i, err
}

const listCourtsByFacility = `-- name: ListCourtsByFacility :many
SELECT id, facility_id, name, court_number, status, created_at
FROM courts
WHERE facility_id = ?
ORDER BY court_number
`

func (q *Queries) ListCourtsByFacility(ctx context.Context, facilityID int64) ([]Court, error) {
	rows, err := q.db.QueryContext(ctx, listCourtsByFacility, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Court{}
	for rows.Next() {
		var i Court
		if err := rows.Scan(
			&i.ID,
			&i.FacilityID,
			&i.Name,
			&i.CourtNumber,
			&i.Status,
			&i.CreatedAt,
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

const listFacilities = `-- name: ListFacilities :many
SELECT id, name, timezone, created_at
FROM facilities
ORDER BY id
`

func (q *Queries) ListFacilities(ctx context.Context) ([]Facility, error) {
	rows, err := q.db.QueryContext(ctx, listFacilities)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Facility{}
	for rows.Next() {
		var i Facility
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Timezone,
			&i.CreatedAt,
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

const listOperatingHours = `-- name: ListOperatingHours :many
SELECT id, facility_id, day_of_week, opens_at, closes_at
FROM operating_hours
WHERE facility_id = ?
ORDER BY day_of_week
`

func (q *Queries) ListOperatingHours(ctx context.Context, facilityID int64) ([]OperatingHour, error) {
	rows, err := q.db.QueryContext(ctx, listOperatingHours, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OperatingHour{}
	for rows.Next() {
		var i OperatingHour
		if err := rows.Scan(
			&i.ID,
			&i.FacilityID,
			&i.DayOfWeek,
			&i.OpensAt,
			&i.ClosesAt,
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

const upsertOperatingHours = `-- name: UpsertOperatingHours :one
INSERT INTO operating_hours (facility_id, day_of_week, opens_at, closes_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (facility_id, day_of_week) DO UPDATE
SET opens_at = excluded.opens_at,
    closes_at = excluded.closes_at
RETURNING id, facility_id, day_of_week, opens_at, closes_at
`

type UpsertOperatingHoursParams struct {
	FacilityID int64  `json:"facility_id"`
	DayOfWeek  int64  `json:"day_of_week"`
	OpensAt    string `json:"opens_at"`
	ClosesAt   string `json:"closes_at"`
}

func (q *Queries) UpsertOperatingHours(ctx context.Context, arg UpsertOperatingHoursParams) (OperatingHour, error) {
	row := q.db.QueryRowContext(ctx, upsertOperatingHours,
		arg.FacilityID,
		arg.DayOfWeek,
		arg.OpensAt,
		arg.ClosesAt,
	)
	var i OperatingHour
	err := row.Scan(
		&i.ID,
		&i.FacilityID,
		&i.DayOfWeek,
		&i.OpensAt,
		&i.ClosesAt,
	)
	return i, err
}
