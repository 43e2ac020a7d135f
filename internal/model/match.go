package model

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"   // Ожидает согласования даты
	MatchStatusProposed  MatchStatus = "proposed"  // Есть предложение даты
	MatchStatusScheduled MatchStatus = "scheduled" // Дата и корт назначены
	MatchStatusInReview  MatchStatus = "in_review" // Результат ждёт подтверждения
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusExpired   MatchStatus = "expired"
)

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// ConfirmationStatus общий статус подтверждения расписания
type ConfirmationStatus string

const (
	ConfirmationStatusPending   ConfirmationStatus = "pending"
	ConfirmationStatusConfirmed ConfirmationStatus = "confirmed"
	ConfirmationStatusRejected  ConfirmationStatus = "rejected"
)

// ResponseStatus ответ одного участника
type ResponseStatus string

const (
	ResponseStatusPending  ResponseStatus = "pending"
	ResponseStatusApproved ResponseStatus = "approved"
	ResponseStatusRejected ResponseStatus = "rejected"
)

type ResultStatus string

const (
	ResultStatusPending   ResultStatus = "pending"
	ResultStatusInReview  ResultStatus = "in_review"
	ResultStatusConfirmed ResultStatus = "confirmed"
	ResultStatusRejected  ResultStatus = "rejected"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

type Proposal struct {
	RequestedBy uuid.UUID      `json:"requested_by"`
	RequestedTo uuid.UUID      `json:"requested_to"`
	ProposedFor time.Time      `json:"proposed_for"`
	Message     string         `json:"message,omitempty"`
	Status      ProposalStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ParticipantResponse ответ участника (игрока или пары) на подтверждение
type ParticipantResponse struct {
	ParticipantID uuid.UUID      `json:"participant_id"`
	Status        ResponseStatus `json:"status"`
	RespondedAt   *time.Time     `json:"responded_at,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

type ScheduleConfirmation struct {
	Status    ConfirmationStatus    `json:"status"`
	Responses []ParticipantResponse `json:"responses"`
}

// SetScore счёт сета; Scores[i] относится к Match.Players[i]
type SetScore struct {
	Number     int    `json:"number"`
	IsTieBreak bool   `json:"is_tie_break"`
	Scores     [2]int `json:"scores"`
}

type Result struct {
	Winner        uuid.UUID             `json:"winner"`
	Sets          []SetScore            `json:"sets"`
	Notes         string                `json:"notes,omitempty"`
	Status        ResultStatus          `json:"status"`
	Responses     []ParticipantResponse `json:"responses"`
	ReportedBy    uuid.UUID             `json:"reported_by"`
	ReportedAt    time.Time             `json:"reported_at"`
	ConfirmedBy   *uuid.UUID            `json:"confirmed_by,omitempty"`
	ConfirmedAt   *time.Time            `json:"confirmed_at,omitempty"`
	AutoConfirmAt *time.Time            `json:"auto_confirm_at,omitempty"`
	Walkover      bool                  `json:"walkover"`
	AutoConfirmed bool                  `json:"auto_confirmed"`
}

type Match struct {
	ID                   uuid.UUID             `json:"id"`
	CategoryID           uuid.UUID             `json:"category_id"`
	LeagueID             *uuid.UUID            `json:"league_id,omitempty"`
	TournamentID         *uuid.UUID            `json:"tournament_id,omitempty"`
	SeasonID             *uuid.UUID            `json:"season_id,omitempty"`
	Players              [2]uuid.UUID          `json:"players"` // игроки или пары (парный разряд)
	Status               MatchStatus           `json:"status"`
	ScheduledAt          *time.Time            `json:"scheduled_at,omitempty"`
	Court                *string               `json:"court,omitempty"`
	Proposal             *Proposal             `json:"proposal,omitempty"`
	ScheduleConfirmation *ScheduleConfirmation `json:"schedule_confirmation,omitempty"`
	Result               *Result               `json:"result,omitempty"`
	ExpiresAt            *time.Time            `json:"expires_at,omitempty"`
	Version              int64                 `json:"version"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// MatchFilter фильтры для списка матчей
type MatchFilter struct {
	CategoryID   *uuid.UUID
	LeagueID     *uuid.UUID
	Status       *MatchStatus
	PlayerID     *uuid.UUID
	ResultStatus *ResultStatus
	Limit        int
	Offset       int
}

// HasParticipant проверяет, является ли id одной из сторон матча
func (m *Match) HasParticipant(id uuid.UUID) bool {
	return m.ParticipantIndex(id) >= 0
}

func (m *Match) ParticipantIndex(id uuid.UUID) int {
	for i, p := range m.Players {
		if p == id {
			return i
		}
	}
	return -1
}

// Opponent возвращает соперника участника id
func (m *Match) Opponent(id uuid.UUID) uuid.UUID {
	if m.Players[0] == id {
		return m.Players[1]
	}
	return m.Players[0]
}

// ResultStatus возвращает pending, если результата нет
func (m *Match) ResultStatus() ResultStatus {
	if m.Result == nil {
		return ResultStatusPending
	}
	return m.Result.Status
}

func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusCompleted || m.Status == MatchStatusExpired
}

// Contexts возвращает лигу и турнир, которым принадлежит матч
func (m *Match) Contexts() []ContextRef {
	var refs []ContextRef
	if m.LeagueID != nil {
		refs = append(refs, ContextRef{Type: ContextTypeLeague, ID: *m.LeagueID})
	}
	if m.TournamentID != nil {
		refs = append(refs, ContextRef{Type: ContextTypeTournament, ID: *m.TournamentID})
	}
	return refs
}

// NewResponses открывает ответы для обоих участников
func NewResponses(players [2]uuid.UUID) []ParticipantResponse {
	return []ParticipantResponse{
		{ParticipantID: players[0], Status: ResponseStatusPending},
		{ParticipantID: players[1], Status: ResponseStatusPending},
	}
}

// Respond записывает ответ участника; false, если участника нет в списке
func Respond(responses []ParticipantResponse, participantID uuid.UUID, status ResponseStatus, at time.Time, reason string) bool {
	for i := range responses {
		if responses[i].ParticipantID == participantID {
			responses[i].Status = status
			responses[i].RespondedAt = &at
			responses[i].Reason = reason
			return true
		}
	}
	return false
}

func AllApproved(responses []ParticipantResponse) bool {
	if len(responses) == 0 {
		return false
	}
	for _, r := range responses {
		if r.Status != ResponseStatusApproved {
			return false
		}
	}
	return true
}

// Clone возвращает глубокую копию матча
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	c := *m
	c.LeagueID = cloneUUID(m.LeagueID)
	c.TournamentID = cloneUUID(m.TournamentID)
	c.SeasonID = cloneUUID(m.SeasonID)
	c.ScheduledAt = cloneTime(m.ScheduledAt)
	c.ExpiresAt = cloneTime(m.ExpiresAt)
	if m.Court != nil {
		court := *m.Court
		c.Court = &court
	}
	if m.Proposal != nil {
		p := *m.Proposal
		c.Proposal = &p
	}
	if m.ScheduleConfirmation != nil {
		sc := *m.ScheduleConfirmation
		sc.Responses = cloneResponses(m.ScheduleConfirmation.Responses)
		c.ScheduleConfirmation = &sc
	}
	if m.Result != nil {
		r := *m.Result
		r.Sets = append([]SetScore(nil), m.Result.Sets...)
		r.Responses = cloneResponses(m.Result.Responses)
		r.ConfirmedBy = cloneUUID(m.Result.ConfirmedBy)
		r.ConfirmedAt = cloneTime(m.Result.ConfirmedAt)
		r.AutoConfirmAt = cloneTime(m.Result.AutoConfirmAt)
		c.Result = &r
	}
	return &c
}

func cloneResponses(in []ParticipantResponse) []ParticipantResponse {
	if in == nil {
		return nil
	}
	out := make([]ParticipantResponse, len(in))
	for i, r := range in {
		r.RespondedAt = cloneTime(r.RespondedAt)
		out[i] = r
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
