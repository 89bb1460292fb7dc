package dbgen

import (
	"context"
	"database/sql"
)

const createMatch = `-- name: CreateMatch :one
INSERT INTO matches (
    booking_id, creator_user_id, sport_id, team_size, team_count,
    title, description, min_skill_level, max_skill_level, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'open')
RETURNING id, booking_id, creator_user_id, sport_id, team_size, team_count, title, description, min_skill_level, max_skill_level, status, started_at, completed_at, cancelled_at, created_at, updated_at
`

type CreateMatchParams struct {
	BookingID     int64         `json:"booking_id"`
	CreatorUserID int64         `json:"creator_user_id"`
	SportID       int64         `json:"sport_id"`
	TeamSize      int64         `json:"team_size"`
	TeamCount     int64         `json:"team_count"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	MinSkillLevel sql.NullInt64 `json:"min_skill_level"`
	MaxSkillLevel sql.NullInt64 `json:"max_skill_level"`
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (Match, error) {
	row := q.db.QueryRowContext(ctx, createMatch,
		arg.BookingID,
		arg.CreatorUserID,
		arg.SportID,
		arg.TeamSize,
		arg.TeamCount,
		arg.Title,
		arg.Description,
		arg.MinSkillLevel,
		arg.MaxSkillLevel,
	)
	return scanMatch(row)
}

const getMatch = `-- name: GetMatch :one
SELECT id, booking_id, creator_user_id, sport_id, team_size, team_count, title, description, min_skill_level, max_skill_level, status, started_at, completed_at, cancelled_at, created_at, updated_at
FROM matches
WHERE id = ?
`

func (q *Queries) GetMatch(ctx context.Context, id int64) (Match, error) {
	row := q.db.QueryRowContext(ctx, getMatch, id)
	return scanMatch(row)
}

const getMatchByBookingID = `-- name: GetMatchByBookingID :one
SELECT id, booking_id, creator_user_id, sport_id, team_size, team_count, title, description, min_skill_level, max_skill_level, status, started_at, completed_at, cancelled_at, created_at, updated_at
FROM matches
WHERE booking_id = ?
`

func (q *Queries) GetMatchByBookingID(ctx context.Context, bookingID int64) (Match, error) {
	row := q.db.QueryRowContext(ctx, getMatchByBookingID, bookingID)
	return scanMatch(row)
}

const listMatchesByCreator = `-- name: ListMatchesByCreator :many
SELECT id, booking_id, creator_user_id, sport_id, team_size, team_count, title, description, min_skill_level, max_skill_level, status, started_at, completed_at, cancelled_at, created_at, updated_at
FROM matches
WHERE creator_user_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListMatchesByCreator(ctx context.Context, creatorUserID int64) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listMatchesByCreator, creatorUserID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

const listOrphanedMatchesByCreator = `-- name: ListOrphanedMatchesByCreator :many
SELECT m.id, m.booking_id, m.creator_user_id, m.sport_id, m.team_size, m.team_count, m.title, m.description, m.min_skill_level, m.max_skill_level, m.status, m.started_at, m.completed_at, m.cancelled_at, m.created_at, m.updated_at
FROM matches m
JOIN bookings b ON b.id = m.booking_id
WHERE m.creator_user_id = ?
  AND m.status IN ('open', 'full')
  AND b.status IN ('cancelled', 'no_show')
ORDER BY m.id
`

func (q *Queries) ListOrphanedMatchesByCreator(ctx context.Context, creatorUserID int64) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listOrphanedMatchesByCreator, creatorUserID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

const updateMatchCreator = `-- name: UpdateMatchCreator :one
UPDATE matches
SET creator_user_id = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, booking_id, creator_user_id, sport_id, team_size, team_count, title, description, min_skill_level, max_skill_level, status, started_at, completed_at, cancelled_at, created_at, updated_at
`

type UpdateMatchCreatorParams struct {
	CreatorUserID int64 `json:"creator_user_id"`
	ID            int64 `json:"id"`
}

func (q *Queries) UpdateMatchCreator(ctx context.Context, arg UpdateMatchCreatorParams) (Match, error) {
	row := q.db.QueryRowContext(ctx, updateMatchCreator, arg.CreatorUserID, arg.ID)
	return scanMatch(row)
}

const updateMatchStatus = `-- name: UpdateMatchStatus :one
UPDATE matches
SET status = ?,
    started_at = COALESCE(?, started_at),
    completed_at = COALESCE(?, completed_at),
    cancelled_at = COALESCE(?, cancelled_at),
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
RETURNING id, booking_id, creator_user_id, sport_id, team_size, team_count, title, description, min_skill_level, max_skill_level, status, started_at, completed_at, cancelled_at, created_at, updated_at
`

type UpdateMatchStatusParams struct {
	Status      string       `json:"status"`
	StartedAt   sql.NullTime `json:"started_at"`
	CompletedAt sql.NullTime `json:"completed_at"`
	CancelledAt sql.NullTime `json:"cancelled_at"`
	ID          int64        `json:"id"`
	FromStatus  string       `json:"from_status"`
}

func (q *Queries) UpdateMatchStatus(ctx context.Context, arg UpdateMatchStatusParams) (Match, error) {
	row := q.db.QueryRowContext(ctx, updateMatchStatus,
		arg.Status,
		arg.StartedAt,
		arg.CompletedAt,
		arg.CancelledAt,
		arg.ID,
		arg.FromStatus,
	)
	return scanMatch(row)
}

func scanMatch(row *sql.Row) (Match, error) {
	var i Match
	err := row.Scan(
		&i.ID,
		&i.BookingID,
		&i.CreatorUserID,
		&i.SportID,
		&i.TeamSize,
		&i.TeamCount,
		&i.Title,
		&i.Description,
		&i.MinSkillLevel,
		&i.MaxSkillLevel,
		&i.Status,
		&i.StartedAt,
		&i.CompletedAt,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanMatches(rows *sql.Rows) ([]Match, error) {
	defer rows.Close()
	items := []Match{}
	for rows.Next() {
		var i Match
		if err := rows.Scan(
			&i.ID,
			&i.BookingID,
			&i.CreatorUserID,
			&i.SportID,
			&i.TeamSize,
			&i.TeamCount,
			&i.Title,
			&i.Description,
			&i.MinSkillLevel,
			&i.MaxSkillLevel,
			&i.Status,
			&i.StartedAt,
			&i.CompletedAt,
			&i.CancelledAt,
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
