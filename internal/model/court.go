package model

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusReserved    ReservationStatus = "reserved"
	ReservationStatusPreReserved ReservationStatus = "pre_reserved" // Под предложенную, но не принятую дату
	ReservationStatusCancelled   ReservationStatus = "cancelled"
)

type ReservationType string

const (
	ReservationTypeManual ReservationType = "manual"
	ReservationTypeMatch  ReservationType = "match"
)

// ContextType сущность, которой принадлежит блокировка или бронь
type ContextType string

const (
	ContextTypeLeague     ContextType = "league"
	ContextTypeTournament ContextType = "tournament"
	ContextTypeLesson     ContextType = "lesson"
)

func (t ContextType) Valid() bool {
	switch t {
	case ContextTypeLeague, ContextTypeTournament, ContextTypeLesson:
		return true
	}
	return false
}

type ContextRef struct {
	Type ContextType `json:"type"`
	ID   uuid.UUID   `json:"id"`
}

type CourtReservation struct {
	ID           uuid.UUID         `json:"id"`
	Court        string            `json:"court"`
	StartsAt     time.Time         `json:"starts_at"`
	EndsAt       time.Time         `json:"ends_at"`
	Status       ReservationStatus `json:"status"`
	Type         ReservationType   `json:"type"`
	MatchID      *uuid.UUID        `json:"match_id,omitempty"`
	Participants []uuid.UUID       `json:"participants"`
	CreatedBy    uuid.UUID         `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
	CancelledBy  *uuid.UUID        `json:"cancelled_by,omitempty"`
}

func (r *CourtReservation) IsActive() bool {
	return r.Status == ReservationStatusReserved || r.Status == ReservationStatusPreReserved
}

// Overlaps проверка пересечения полуинтервалов [start, end)
func (r *CourtReservation) Overlaps(start, end time.Time) bool {
	return Overlaps(r.StartsAt, r.EndsAt, start, end)
}

func (r *CourtReservation) Clone() *CourtReservation {
	if r == nil {
		return nil
	}
	c := *r
	c.MatchID = cloneUUID(r.MatchID)
	c.Participants = append([]uuid.UUID(nil), r.Participants...)
	c.CancelledAt = cloneTime(r.CancelledAt)
	c.CancelledBy = cloneUUID(r.CancelledBy)
	return &c
}

type ReservationFilter struct {
	Court            string
	From             *time.Time
	To               *time.Time
	MatchID          *uuid.UUID
	IncludeCancelled bool
}

// CourtBlock административная блокировка кортов
type CourtBlock struct {
	ID          uuid.UUID   `json:"id"`
	Courts      []string    `json:"courts"` // пустой список - все корты
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	ContextType ContextType `json:"context_type"`
	ContextID   *uuid.UUID  `json:"context_id,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (b *CourtBlock) AppliesTo(court string) bool {
	if len(b.Courts) == 0 {
		return true
	}
	for _, c := range b.Courts {
		if c == court {
			return true
		}
	}
	return false
}

func (b *CourtBlock) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartsAt, b.EndsAt, start, end)
}

// OwnedBy true, если блокировка принадлежит одному из контекстов
func (b *CourtBlock) OwnedBy(refs []ContextRef) bool {
	if b.ContextID == nil {
		return false
	}
	for _, ref := range refs {
		if ref.Type == b.ContextType && ref.ID == *b.ContextID {
			return true
		}
	}
	return false
}

func (b *CourtBlock) Clone() *CourtBlock {
	if b == nil {
		return nil
	}
	c := *b
	c.Courts = append([]string(nil), b.Courts...)
	c.ContextID = cloneUUID(b.ContextID)
	return &c
}

type SlotState string

const (
	SlotStateFree    SlotState = "free"
	SlotStateBooked  SlotState = "booked"
	SlotStateBlocked SlotState = "blocked"
)

// SlotAvailability состояние одного слота корта
type SlotAvailability struct {
	Court         string     `json:"court"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        time.Time  `json:"ends_at"`
	State         SlotState  `json:"state"`
	ReservationID *uuid.UUID `json:"reservation_id,omitempty"`
	BlockID       *uuid.UUID `json:"block_id,omitempty"`
}

// Overlaps a.start < b.end && a.end > b.start
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
