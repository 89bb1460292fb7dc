package dbgen

import (
	"database/sql"
	"time"
)

type Booking struct {
	ID              int64        `json:"id"`
	CourtID         int64        `json:"court_id"`
	UserID          int64        `json:"user_id"`
	BookingDate     string       `json:"booking_date"`
	StartTime       string       `json:"start_time"`
	EndTime         string       `json:"end_time"`
	Status          string       `json:"status"`
	TotalPriceCents int64        `json:"total_price_cents"`
	CheckInAt       sql.NullTime `json:"check_in_at"`
	CancelledAt     sql.NullTime `json:"cancelled_at"`
	NoShowAt        sql.NullTime `json:"no_show_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type Court struct {
	ID          int64     `json:"id"`
	FacilityID  int64     `json:"facility_id"`
	Name        string    `json:"name"`
	CourtNumber int64     `json:"court_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Facility struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

type Match struct {
	ID            int64         `json:"id"`
	BookingID     int64         `json:"booking_id"`
	CreatorUserID int64         `json:"creator_user_id"`
	SportID       int64         `json:"sport_id"`
	TeamSize      int64         `json:"team_size"`
	TeamCount     int64         `json:"team_count"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	MinSkillLevel sql.NullInt64 `json:"min_skill_level"`
	MaxSkillLevel sql.NullInt64 `json:"max_skill_level"`
	Status        string        `json:"status"`
	StartedAt     sql.NullTime  `json:"started_at"`
	CompletedAt   sql.NullTime  `json:"completed_at"`
	CancelledAt   sql.NullTime  `json:"cancelled_at"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type MatchPlayer struct {
	ID        int64          `json:"id"`
	MatchID   int64          `json:"match_id"`
	UserID    int64          `json:"user_id"`
	Status    string         `json:"status"`
	Team      sql.NullString `json:"team"`
	CheckedIn bool           `json:"checked_in"`
	InvitedBy sql.NullInt64  `json:"invited_by"`
	JoinedAt  sql.NullTime   `json:"joined_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type OperatingHour struct {
	ID         int64  `json:"id"`
	FacilityID int64  `json:"facility_id"`
	DayOfWeek  int64  `json:"day_of_week"`
	OpensAt    string `json:"opens_at"`
	ClosesAt   string `json:"closes_at"`
}

type PlayerRating struct {
	ID                  int64          `json:"id"`
	MatchID             int64          `json:"match_id"`
	RaterUserID         int64          `json:"rater_user_id"`
	RatedUserID         int64          `json:"rated_user_id"`
	SkillRating         int64          `json:"skill_rating"`
	SportsmanshipRating int64          `json:"sportsmanship_rating"`
	Comment             sql.NullString `json:"comment"`
	CreatedAt           time.Time      `json:"created_at"`
}

type User struct {
	ID             int64          `json:"id"`
	Email          string         `json:"email"`
	DisplayName    string         `json:"display_name"`
	Role           string         `json:"role"`
	HomeFacilityID sql.NullInt64  `json:"home_facility_id"`
	PasswordHash   sql.NullString `json:"password_hash"`
	CreatedAt      time.Time      `json:"created_at"`
}
