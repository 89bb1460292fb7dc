package dbgen

import (
	"context"
	"database/sql"
)

const countRatingsGivenInMatch = `-- name: CountRatingsGivenInMatch :one
SELECT COUNT(*)
FROM player_ratings
WHERE match_id = ? AND rater_user_id = ?
`

type CountRatingsGivenInMatchParams struct {
	MatchID     int64 `json:"match_id"`
	RaterUserID int64 `json:"rater_user_id"`
}

func (q *Queries) CountRatingsGivenInMatch(ctx context.Context, arg CountRatingsGivenInMatchParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countRatingsGivenInMatch, arg.MatchID, arg.RaterUserID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createPlayerRating = `-- name: CreatePlayerRating :one
INSERT INTO player_ratings (match_id, rater_user_id, rated_user_id, skill_rating, sportsmanship_rating, comment)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, match_id, rater_user_id, rated_user_id, skill_rating, sportsmanship_rating, comment, created_at
`

type CreatePlayerRatingParams struct {
	MatchID             int64          `json:"match_id"`
	RaterUserID         int64          `json:"rater_user_id"`
	RatedUserID         int64          `json:"rated_user_id"`
	SkillRating         int64          `json:"skill_rating"`
	SportsmanshipRating int64          `json:"sportsmanship_rating"`
	Comment             sql.NullString `json:"comment"`
}

func (q *Queries) CreatePlayerRating(ctx context.Context, arg CreatePlayerRatingParams) (PlayerRating, error) {
	row := q.db.QueryRowContext(ctx, createPlayerRating,
		arg.MatchID,
		arg.RaterUserID,
		arg.RatedUserID,
		arg.SkillRating,
		arg.SportsmanshipRating,
		arg.Comment,
	)
	var i PlayerRating
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.RaterUserID,
		&i.RatedUserID,
		&i.SkillRating,
		&i.SportsmanshipRating,
		&i.Comment,
		&i.CreatedAt,
	)
	return i, err
}

const getPlayerRating = `-- name: GetPlayerRating :one
SELECT id, match_id, rater_user_id, rated_user_id, skill_rating, sportsmanship_rating, comment, created_at
FROM player_ratings
WHERE match_id = ? AND rater_user_id = ? AND rated_user_id = ?
`

type GetPlayerRatingParams struct {
	MatchID     int64 `json:"match_id"`
	RaterUserID int64 `json:"rater_user_id"`
	RatedUserID int64 `json:"rated_user_id"`
}

func (q *Queries) GetPlayerRating(ctx context.Context, arg GetPlayerRatingParams) (PlayerRating, error) {
	row := q.db.QueryRowContext(ctx, getPlayerRating, arg.MatchID, arg.RaterUserID, arg.RatedUserID)
	var i PlayerRating
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.RaterUserID,
		&i.RatedUserID,
		&i.SkillRating,
		&i.SportsmanshipRating,
		&i.Comment,
		&i.CreatedAt,
	)
	return i, err
}

const listRatingsByMatch = `-- name: ListRatingsByMatch :many
SELECT id, match_id, rater_user_id, rated_user_id, skill_rating, sportsmanship_rating, comment, created_at
FROM player_ratings
WHERE match_id = ?
ORDER BY id
`

func (q *Queries) ListRatingsByMatch(ctx context.Context, matchID int64) ([]PlayerRating, error) {
	rows, err := q.db.QueryContext(ctx, listRatingsByMatch, matchID)
	if err != nil {
		return nil, err
	}
	return scanPlayerRatings(rows)
}

const listRatingsGiven = `-- name: ListRatingsGiven :many
SELECT id, match_id, rater_user_id, rated_user_id, skill_rating, sportsmanship_rating, comment, created_at
FROM player_ratings
WHERE rater_user_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListRatingsGiven(ctx context.Context, raterUserID int64) ([]PlayerRating, error) {
	rows, err := q.db.QueryContext(ctx, listRatingsGiven, raterUserID)
	if err != nil {
		return nil, err
	}
	return scanPlayerRatings(rows)
}

const listRatingsReceived = `-- name: ListRatingsReceived :many
SELECT id, match_id, rater_user_id, rated_user_id, skill_rating, sportsmanship_rating, comment, created_at
FROM player_ratings
WHERE rated_user_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListRatingsReceived(ctx context.Context, ratedUserID int64) ([]PlayerRating, error) {
	rows, err := q.db.QueryContext(ctx, listRatingsReceived, ratedUserID)
	if err != nil {
		return nil, err
	}
	return scanPlayerRatings(rows)
}

func scanPlayerRatings(rows *sql.Rows) ([]PlayerRating, error) {
	defer rows.Close()
	items := []PlayerRating{}
	for rows.Next() {
		var i PlayerRating
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.RaterUserID,
			&i.RatedUserID,
			&i.SkillRating,
			&i.SportsmanshipRating,
			&i.Comment,
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
