package model

import (
	"time"

	"github.com/google/uuid"
)

type LeagueStatus string

const (
	LeagueStatusOpen   LeagueStatus = "open"
	LeagueStatusClosed LeagueStatus = "closed"
)

type League struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Status   LeagueStatus `json:"status"`
	EndsAt   *time.Time   `json:"ends_at,omitempty"`
	ClosedAt *time.Time   `json:"closed_at,omitempty"`
}

// Ended true, если дата окончания лиги уже прошла
func (l *League) Ended(now time.Time) bool {
	return l.EndsAt != nil && now.After(*l.EndsAt)
}

// Category категория (разряд) внутри лиги или турнира
type Category struct {
	ID           uuid.UUID  `json:"id"`
	LeagueID     *uuid.UUID `json:"league_id,omitempty"`
	TournamentID *uuid.UUID `json:"tournament_id,omitempty"`
	SeasonID     *uuid.UUID `json:"season_id,omitempty"`
	Name         string     `json:"name"`
	Format       string     `json:"format"`
	Doubles      bool       `json:"doubles"`
}

type Standing struct {
	CategoryID    uuid.UUID `json:"category_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	Played        int       `json:"played"`
	Won           int       `json:"won"`
	Lost          int       `json:"lost"`
	SetsWon       int       `json:"sets_won"`
	SetsLost      int       `json:"sets_lost"`
	GamesWon      int       `json:"games_won"`
	GamesLost     int       `json:"games_lost"`
	Points        int       `json:"points"`
	UpdatedAt     time.Time `json:"updated_at"`
}
