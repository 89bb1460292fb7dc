package dbgen

import (
	"context"
	"database/sql"
)

const countCheckedInPlayers = `-- name: CountCheckedInPlayers :one
SELECT COUNT(*)
FROM match_players
WHERE match_id = ? AND status = 'checked_in'
`

func (q *Queries) CountCheckedInPlayers(ctx context.Context, matchID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCheckedInPlayers, matchID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countSeatedPlayers = `-- name: CountSeatedPlayers :one
SELECT COUNT(*)
FROM match_players
WHERE match_id = ? AND status IN ('joined', 'checked_in')
`

func (q *Queries) CountSeatedPlayers(ctx context.Context, matchID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSeatedPlayers, matchID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createMatchPlayer = `-- name: CreateMatchPlayer :one
INSERT INTO match_players (match_id, user_id, status, team, invited_by, joined_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, match_id, user_id, status, team, checked_in, invited_by, joined_at, created_at, updated_at
`

type CreateMatchPlayerParams struct {
	MatchID   int64          `json:"match_id"`
	UserID    int64          `json:"user_id"`
	Status    string         `json:"status"`
	Team      sql.NullString `json:"team"`
	InvitedBy sql.NullInt64  `json:"invited_by"`
	JoinedAt  sql.NullTime   `json:"joined_at"`
}

func (q *Queries) CreateMatchPlayer(ctx context.Context, arg CreateMatchPlayerParams) (MatchPlayer, error) {
	row := q.db.QueryRowContext(ctx, createMatchPlayer,
		arg.MatchID,
		arg.UserID,
		arg.Status,
		arg.Team,
		arg.InvitedBy,
		arg.JoinedAt,
	)
	return scanMatchPlayer(row)
}

const declinePendingInvitations = `-- name: DeclinePendingInvitations :execrows
UPDATE match_players
SET status = 'declined',
    updated_at = CURRENT_TIMESTAMP
WHERE match_id = ? AND status = 'invited'
`

func (q *Queries) DeclinePendingInvitations(ctx context.Context, matchID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, declinePendingInvitations, matchID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getActiveMatchPlayer = `-- name: GetActiveMatchPlayer :one
SELECT id, match_id, user_id, status, team, checked_in, invited_by, joined_at, created_at, updated_at
FROM match_players
WHERE match_id = ?
  AND user_id = ?
  AND status IN ('invited', 'joined', 'checked_in')
`

type GetActiveMatchPlayerParams struct {
	MatchID int64 `json:"match_id"`
	UserID  int64 `json:"user_id"`
}

func (q *Queries) GetActiveMatchPlayer(ctx context.Context, arg GetActiveMatchPlayerParams) (MatchPlayer, error) {
	row := q.db.QueryRowContext(ctx, getActiveMatchPlayer, arg.MatchID, arg.UserID)
	return scanMatchPlayer(row)
}

const listActiveMatchPlayers = `-- name: ListActiveMatchPlayers :many
SELECT id, match_id, user_id, status, team, checked_in, invited_by, joined_at, created_at, updated_at
FROM match_players
WHERE match_id = ? AND status IN ('invited', 'joined', 'checked_in')
ORDER BY id
`

func (q *Queries) ListActiveMatchPlayers(ctx context.Context, matchID int64) ([]MatchPlayer, error) {
	rows, err := q.db.QueryContext(ctx, listActiveMatchPlayers, matchID)
	if err != nil {
		return nil, err
	}
	return scanMatchPlayers(rows)
}

const listMatchPlayers = `-- name: ListMatchPlayers :many
SELECT id, match_id, user_id, status, team, checked_in, invited_by, joined_at, created_at, updated_at
FROM match_players
WHERE match_id = ?
ORDER BY id
`

func (q *Queries) ListMatchPlayers(ctx context.Context, matchID int64) ([]MatchPlayer, error) {
	rows, err := q.db.QueryContext(ctx, listMatchPlayers, matchID)
	if err != nil {
		return nil, err
	}
	return scanMatchPlayers(rows)
}

const updateMatchPlayerStatus = `-- name: UpdateMatchPlayerStatus :one
UPDATE match_players
SET status = ?,
    checked_in = MAX(checked_in, ?),
    joined_at = COALESCE(?, joined_at),
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, match_id, user_id, status, team, checked_in, invited_by, joined_at, created_at, updated_at
`

type UpdateMatchPlayerStatusParams struct {
	Status    string       `json:"status"`
	CheckedIn bool         `json:"checked_in"`
	JoinedAt  sql.NullTime `json:"joined_at"`
	ID        int64        `json:"id"`
}

func (q *Queries) UpdateMatchPlayerStatus(ctx context.Context, arg UpdateMatchPlayerStatusParams) (MatchPlayer, error) {
	row := q.db.QueryRowContext(ctx, updateMatchPlayerStatus,
		arg.Status,
		arg.CheckedIn,
		arg.JoinedAt,
		arg.ID,
	)
	return scanMatchPlayer(row)
}

const updateMatchPlayerTeam = `-- name: UpdateMatchPlayerTeam :one
UPDATE match_players
SET team = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, match_id, user_id, status, team, checked_in, invited_by, joined_at, created_at, updated_at
`

type UpdateMatchPlayerTeamParams struct {
	Team sql.NullString `json:"team"`
	ID   int64          `json:"id"`
}

func (q *Queries) UpdateMatchPlayerTeam(ctx context.Context, arg UpdateMatchPlayerTeamParams) (MatchPlayer, error) {
	row := q.db.QueryRowContext(ctx, updateMatchPlayerTeam, arg.Team, arg.ID)
	return scanMatchPlayer(row)
}

func scanMatchPlayer(row *sql.Row) (MatchPlayer, error) {
	var i MatchPlayer
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.UserID,
		&i.Status,
		&i.Team,
		&i.CheckedIn,
		&i.InvitedBy,
		&i.JoinedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanMatchPlayers(rows *sql.Rows) ([]MatchPlayer, error) {
	defer rows.Close()
	items := []MatchPlayer{}
	for rows.Next() {
		var i MatchPlayer
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.UserID,
			&i.Status,
			&i.Team,
			&i.CheckedIn,
			&i.InvitedBy,
			&i.JoinedAt,
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
