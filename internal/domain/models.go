package domain

import (
	"time"
)

type (
	WindowID        string
	CandidateID     string
	ParticipationID string
	NotificationID  string
	MovieID         string
	UserID          string
)

// VoteWindow is one weekly contest. The interval is half-open: a window is
// active while starts_at <= now < ends_at. Candidates are snapshotted at
// creation and never change afterwards; only their tallies move.
type VoteWindow struct {
	ID         WindowID    `gorm:"column:id;type:char(26);primaryKey"`
	Title      string      `gorm:"column:title;type:text;not null"`
	StartsAt   time.Time   `gorm:"column:starts_at;not null;index"`
	EndsAt     time.Time   `gorm:"column:ends_at;not null;index"`
	Candidates []Candidate `gorm:"foreignKey:WindowID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether t falls inside the window's half-open interval.
func (w VoteWindow) ActiveAt(t time.Time) bool {
	return !t.Before(w.StartsAt) && t.Before(w.EndsAt)
}

// CompletedAt reports whether the window has fully elapsed at t.
func (w VoteWindow) CompletedAt(t time.Time) bool {
	return !w.EndsAt.After(t)
}

// Candidate is one selectable movie inside a window. Position records the
// snapshot order handed over by the candidate source; LastTalliedAt is set on
// the first vote only and never moves afterwards.
type Candidate struct {
	ID            CandidateID `gorm:"column:id;type:char(26);primaryKey"`
	WindowID      WindowID    `gorm:"column:window_id;type:char(26);not null;index"`
	MovieID       MovieID     `gorm:"column:movie_id;type:char(26);not null"`
	Position      int         `gorm:"column:position;not null"`
	TallyCount    int64       `gorm:"column:tally_count;not null;default:0"`
	LastTalliedAt *time.Time  `gorm:"column:last_tallied_at"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime"`
}

// Participation is a user's single vote inside a window. The composite unique
// index is the one-vote-per-user-per-window invariant; duplicate inserts must
// fail at the database, not at a prior read.
type Participation struct {
	ID          ParticipationID `gorm:"column:id;type:char(26);primaryKey"`
	UserID      UserID          `gorm:"column:user_id;type:char(26);not null;uniqueIndex:idx_participations_user_window"`
	WindowID    WindowID        `gorm:"column:window_id;type:char(26);not null;uniqueIndex:idx_participations_user_window"`
	CandidateID CandidateID     `gorm:"column:candidate_id;type:char(26);not null;index"`
	VotedAt     time.Time       `gorm:"column:voted_at;not null"`
}

type NotificationType string

const (
	NotificationComment       NotificationType = "comment"
	NotificationLike          NotificationType = "like"
	NotificationCertification NotificationType = "certification"
	NotificationVote          NotificationType = "vote"
)

// Notification is the durable record behind every push; it outlives the
// connection and stays readable through the poll API regardless of delivery.
type Notification struct {
	ID        NotificationID   `gorm:"column:id;type:char(26);primaryKey"`
	UserID    UserID           `gorm:"column:user_id;type:char(26);not null;index"`
	Type      NotificationType `gorm:"column:type;type:text;not null"`
	RelatedID string           `gorm:"column:related_id;type:text"`
	Read      bool             `gorm:"column:read;not null;default:false"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// NotificationEvent travels on the queue between producers (the CRUD
// services) and the dispatcher running next to the connection registry.
type NotificationEvent struct {
	UserID    UserID           `json:"user_id"`
	Type      NotificationType `json:"type"`
	RelatedID string           `json:"related_id"`
}

// Movie is the catalog entry consumed through CandidateSource. The catalog
// itself is maintained elsewhere; this core only reads the popularity ranking.
type Movie struct {
	ID         MovieID   `gorm:"column:id;type:char(26);primaryKey"`
	Title      string    `gorm:"column:title;type:text;not null"`
	Popularity int64     `gorm:"column:popularity;not null;default:0;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// RankedCandidate is one row of a window's ranking. Ranks are a strict 1..N
// sequence by output position; tied tallies do not share a rank number.
type RankedCandidate struct {
	Rank          int         `json:"rank"`
	CandidateID   CandidateID `json:"candidate_id"`
	MovieID       MovieID     `json:"movie_id"`
	TallyCount    int64       `json:"tally_count"`
	LastTalliedAt *time.Time  `json:"last_tallied_at,omitempty"`
}

func (VoteWindow) TableName() string { return "vote_windows" }

func (Candidate) TableName() string { return "candidates" }

func (Participation) TableName() string { return "participations" }

func (Notification) TableName() string { return "notifications" }

func (Movie) TableName() string { return "movies" }
