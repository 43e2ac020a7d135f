package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/club_league/internal/model"
	"github.com/Freeeeeet/club_league/internal/repository/base"
)

// Сетка кортов клуба по умолчанию
const (
	DefaultSlotLength    = 75 * time.Minute
	DefaultDayStart      = 8*time.Hour + 30*time.Minute
	DefaultDayEnd        = 22*time.Hour + 15*time.Minute
	DefaultManualHorizon = 48 * time.Hour
	maxParticipants      = 4
)

type CourtConfig struct {
	Courts        []string // в порядке, принятом в клубе
	Location      *time.Location
	SlotLength    time.Duration
	DayStart      time.Duration // от полуночи по времени клуба
	DayEnd        time.Duration
	ManualHorizon time.Duration
}

func (c CourtConfig) withDefaults() CourtConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.SlotLength == 0 {
		c.SlotLength = DefaultSlotLength
	}
	if c.DayStart == 0 {
		c.DayStart = DefaultDayStart
	}
	if c.DayEnd == 0 {
		c.DayEnd = DefaultDayEnd
	}
	if c.ManualHorizon == 0 {
		c.ManualHorizon = DefaultManualHorizon
	}
	return c
}

// SlotRequest запрос на проверку слота
type SlotRequest struct {
	Court    string
	StartsAt time.Time
	EndsAt   time.Time
	Kind     model.ReservationType
	// Contexts лига/турнир матча; блокировка своего контекста не мешает матчу
	Contexts             []model.ContextRef
	ExcludeMatchID       *uuid.UUID
	ExcludeReservationID *uuid.UUID
	BypassHorizon        bool
}

// CourtService единственное место, где пишутся брони кортов
type CourtService struct {
	repos  Repositories
	cfg    CourtConfig
	now    Clock
	logger *zap.Logger
}

func NewCourtService(repos Repositories, cfg CourtConfig, now Clock, logger *zap.Logger) *CourtService {
	return &CourtService{
		repos:  repos,
		cfg:    cfg.withDefaults(),
		now:    now,
		logger: logger,
	}
}

func (s *CourtService) Courts() []string {
	return slices.Clone(s.cfg.Courts)
}

func (s *CourtService) Location() *time.Location {
	return s.cfg.Location
}

// SlotEnd конец слота, начинающегося в start
func (s *CourtService) SlotEnd(start time.Time) time.Time {
	return start.Add(s.cfg.SlotLength)
}

// ValidateSlot проверяет длину слота и его место в сетке дня по времени клуба
func (s *CourtService) ValidateSlot(start, end time.Time) error {
	if !end.After(start) {
		return &InvalidSlotError{Reason: "slot must end after it starts"}
	}
	if end.Sub(start) != s.cfg.SlotLength {
		return &InvalidSlotError{Reason: fmt.Sprintf("slot must last exactly %d minutes", int(s.cfg.SlotLength.Minutes()))}
	}

	offset := wallClock(start.In(s.cfg.Location)) - s.cfg.DayStart
	if offset < 0 || offset%s.cfg.SlotLength != 0 {
		return &InvalidSlotError{Reason: fmt.Sprintf("slot must start at %s plus a multiple of %d minutes",
			clock(s.cfg.DayStart), int(s.cfg.SlotLength.Minutes()))}
	}
	if s.cfg.DayStart+offset+s.cfg.SlotLength > s.cfg.DayEnd {
		return &InvalidSlotError{Reason: fmt.Sprintf("slot must end by %s", clock(s.cfg.DayEnd))}
	}
	return nil
}

// EnsureAvailability проверяет слот и берёт блокировку (корт, день) до конца транзакции
func (s *CourtService) EnsureAvailability(ctx context.Context, req SlotRequest) error {
	if !slices.Contains(s.cfg.Courts, req.Court) {
		return fieldError("court", "unknown court %q", req.Court)
	}
	if err := s.ValidateSlot(req.StartsAt, req.EndsAt); err != nil {
		return err
	}

	if req.Kind == model.ReservationTypeManual {
		now := s.now()
		if req.StartsAt.Before(now) {
			return fieldError("starts_at", "cannot book a slot in the past")
		}
		if !req.BypassHorizon && req.StartsAt.After(now.Add(s.cfg.ManualHorizon)) {
			return fieldError("starts_at", "manual bookings open %d hours in advance", int(s.cfg.ManualHorizon.Hours()))
		}
	}

	if err := s.repos.Reservations.LockCourtDay(ctx, req.Court, s.dayStart(req.StartsAt)); err != nil {
		return err
	}

	existing, err := s.repos.Reservations.ListActiveOverlapping(ctx, req.Court, req.StartsAt, req.EndsAt)
	if err != nil {
		return fmt.Errorf("check reservations: %w", err)
	}
	for _, res := range existing {
		if req.ExcludeMatchID != nil && res.MatchID != nil && *res.MatchID == *req.ExcludeMatchID {
			continue
		}
		if req.ExcludeReservationID != nil && res.ID == *req.ExcludeReservationID {
			continue
		}
		return &ConflictError{Message: fmt.Sprintf("court %s is already booked at %s",
			req.Court, req.StartsAt.In(s.cfg.Location).Format("2006-01-02 15:04"))}
	}

	blocks, err := s.repos.Blocks.ListOverlapping(ctx, req.StartsAt, req.EndsAt)
	if err != nil {
		return fmt.Errorf("check court blocks: %w", err)
	}
	for _, b := range blocks {
		if !b.AppliesTo(req.Court) {
			continue
		}
		if req.Kind == model.ReservationTypeMatch && b.OwnedBy(req.Contexts) {
			continue
		}
		msg := fmt.Sprintf("court %s is blocked for a %s", req.Court, b.ContextType)
		if b.Notes != "" {
			msg += ": " + b.Notes
		}
		return &BlockedError{BlockID: b.ID, Message: msg}
	}

	return nil
}

// AutoAssignCourt возвращает первый свободный корт: сначала preferred, затем по порядку клуба
func (s *CourtService) AutoAssignCourt(ctx context.Context, start time.Time, preferred *string, contexts []model.ContextRef, excludeMatchID *uuid.UUID) (string, error) {
	candidates := make([]string, 0, len(s.cfg.Courts)+1)
	if preferred != nil && slices.Contains(s.cfg.Courts, *preferred) {
		candidates = append(candidates, *preferred)
	}
	for _, c := range s.cfg.Courts {
		if !slices.Contains(candidates, c) {
			candidates = append(candidates, c)
		}
	}

	for _, court := range candidates {
		err := s.EnsureAvailability(ctx, SlotRequest{
			Court:          court,
			StartsAt:       start,
			EndsAt:         s.SlotEnd(start),
			Kind:           model.ReservationTypeMatch,
			Contexts:       contexts,
			ExcludeMatchID: excludeMatchID,
			BypassHorizon:  true,
		})
		if err == nil {
			return court, nil
		}
		if !isSlotUnavailable(err) {
			return "", err
		}
	}

	return "", &ConflictError{Message: fmt.Sprintf("no court is available at %s",
		start.In(s.cfg.Location).Format("2006-01-02 15:04"))}
}

// UpsertMatchReservation приводит бронь матча к его текущему расписанию:
// reserved для назначенного матча, pre_reserved для предложенной даты, иначе отмена
func (s *CourtService) UpsertMatchReservation(ctx context.Context, m *model.Match, by uuid.UUID) (*model.CourtReservation, error) {
	var (
		start  time.Time
		status model.ReservationStatus
	)
	switch {
	case m.Court == nil:
	case m.ScheduledAt != nil && (m.Status == model.MatchStatusScheduled ||
		m.Status == model.MatchStatusInReview || m.Status == model.MatchStatusCompleted):
		start, status = *m.ScheduledAt, model.ReservationStatusReserved
	case m.Status == model.MatchStatusProposed && m.Proposal != nil && m.Proposal.Status == model.ProposalStatusPending:
		start, status = m.Proposal.ProposedFor, model.ReservationStatusPreReserved
	}
	if status == "" {
		return nil, s.CancelMatchReservation(ctx, m.ID, by)
	}

	var res *model.CourtReservation
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repos.Reservations.GetActiveByMatchID(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get match reservation: %w", err)
		}

		sameSlot := existing != nil && existing.Court == *m.Court && existing.StartsAt.Equal(start)
		if !sameSlot {
			err := s.EnsureAvailability(ctx, SlotRequest{
				Court:          *m.Court,
				StartsAt:       start,
				EndsAt:         s.SlotEnd(start),
				Kind:           model.ReservationTypeMatch,
				Contexts:       m.Contexts(),
				ExcludeMatchID: &m.ID,
				BypassHorizon:  true,
			})
			if err != nil {
				return err
			}
		}

		participants, err := s.repos.Players.ExpandParticipants(ctx, m.Players[:])
		if err != nil {
			return fmt.Errorf("expand participants: %w", err)
		}

		if existing == nil {
			matchID := m.ID
			res = &model.CourtReservation{
				ID:           uuid.New(),
				Court:        *m.Court,
				StartsAt:     start,
				EndsAt:       s.SlotEnd(start),
				Status:       status,
				Type:         model.ReservationTypeMatch,
				MatchID:      &matchID,
				Participants: participants,
				CreatedBy:    by,
				CreatedAt:    s.now(),
			}
			return s.translate(s.repos.Reservations.Create(ctx, res))
		}

		if sameSlot && existing.Status == status && sameParticipants(existing.Participants, participants) {
			res = existing
			return nil
		}
		existing.Court = *m.Court
		existing.StartsAt = start
		existing.EndsAt = s.SlotEnd(start)
		existing.Status = status
		existing.Participants = participants
		res = existing
		return s.translate(s.repos.Reservations.Update(ctx, existing))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Match reservation synced",
		zap.String("match_id", m.ID.String()),
		zap.String("court", res.Court),
		zap.Time("starts_at", res.StartsAt),
		zap.String("status", string(res.Status)))
	return res, nil
}

// sameParticipants сравнивает состав участников без учёта порядка
func sameParticipants(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	left := make(map[uuid.UUID]int, len(a))
	for _, id := range a {
		left[id]++
	}
	for _, id := range b {
		if left[id] == 0 {
			return false
		}
		left[id]--
	}
	return true
}

// CancelMatchReservation отменяет живую бронь матча, если она есть
func (s *CourtService) CancelMatchReservation(ctx context.Context, matchID, by uuid.UUID) error {
	existing, err := s.repos.Reservations.GetActiveByMatchID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("get match reservation: %w", err)
	}
	if existing == nil {
		return nil
	}
	return s.cancel(ctx, existing, by)
}

func (s *CourtService) cancel(ctx context.Context, res *model.CourtReservation, by uuid.UUID) error {
	now := s.now()
	res.Status = model.ReservationStatusCancelled
	res.CancelledAt = &now
	res.CancelledBy = &by
	if err := s.repos.Reservations.Update(ctx, res); err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	return nil
}

// ReserveInput ручная бронь корта
type ReserveInput struct {
	Court        string
	StartsAt     time.Time
	Participants []uuid.UUID
}

// Reserve создаёт ручную бронь; администратор может бронировать дальше горизонта
func (s *CourtService) Reserve(ctx context.Context, actor model.Actor, in ReserveInput) (*model.CourtReservation, error) {
	participants := in.Participants
	if len(participants) == 0 {
		participants = []uuid.UUID{actor.ID}
	}
	if len(participants) > maxParticipants {
		return nil, fieldError("participants", "at most %d participants per court", maxParticipants)
	}

	res := &model.CourtReservation{
		ID:           uuid.New(),
		Court:        in.Court,
		StartsAt:     in.StartsAt,
		EndsAt:       s.SlotEnd(in.StartsAt),
		Status:       model.ReservationStatusReserved,
		Type:         model.ReservationTypeManual,
		Participants: participants,
		CreatedBy:    actor.ID,
		CreatedAt:    s.now(),
	}

	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		err := s.EnsureAvailability(ctx, SlotRequest{
			Court:         res.Court,
			StartsAt:      res.StartsAt,
			EndsAt:        res.EndsAt,
			Kind:          model.ReservationTypeManual,
			BypassHorizon: actor.Admin,
		})
		if err != nil {
			return err
		}
		return s.translate(s.repos.Reservations.Create(ctx, res))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Court reserved",
		zap.String("reservation_id", res.ID.String()),
		zap.String("court", res.Court),
		zap.Time("starts_at", res.StartsAt),
		zap.String("by", actor.ID.String()))
	return res, nil
}

// CancelReservation отменяет ручную бронь; брони матчей следуют за матчем
func (s *CourtService) CancelReservation(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.CourtReservation, error) {
	var res *model.CourtReservation
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.repos.Reservations.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get reservation: %w", err)
		}
		if res == nil {
			return &NotFoundError{Entity: "reservation", ID: id}
		}
		if !actor.Admin && res.CreatedBy != actor.ID {
			return &ForbiddenError{Message: "only the owner or an admin can cancel this reservation"}
		}
		if res.Type == model.ReservationTypeMatch && !actor.Admin {
			return &ForbiddenError{Message: "match reservations are managed through the match"}
		}
		if !res.IsActive() {
			return nil
		}
		return s.cancel(ctx, res, actor.ID)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *CourtService) ListReservations(ctx context.Context, f model.ReservationFilter) ([]*model.CourtReservation, error) {
	reservations, err := s.repos.Reservations.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Availability сетка слотов дня date (по времени клуба) для корта или всех кортов
func (s *CourtService) Availability(ctx context.Context, date time.Time, court string) ([]model.SlotAvailability, error) {
	courts := s.cfg.Courts
	if court != "" {
		if !slices.Contains(courts, court) {
			return nil, fieldError("court", "unknown court %q", court)
		}
		courts = []string{court}
	}

	day := s.dayStart(date)
	from, to := atWallClock(day, s.cfg.DayStart), atWallClock(day, s.cfg.DayEnd)

	reservations, err := s.repos.Reservations.List(ctx, model.ReservationFilter{Court: court, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	blocks, err := s.repos.Blocks.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list court blocks: %w", err)
	}

	var slots []model.SlotAvailability
	for _, c := range courts {
		for start := from; !start.Add(s.cfg.SlotLength).After(to); start = start.Add(s.cfg.SlotLength) {
			slot := model.SlotAvailability{Court: c, StartsAt: start, EndsAt: start.Add(s.cfg.SlotLength), State: model.SlotStateFree}
			for _, res := range reservations {
				if res.Court == c && res.Overlaps(slot.StartsAt, slot.EndsAt) {
					id := res.ID
					slot.State, slot.ReservationID = model.SlotStateBooked, &id
					break
				}
			}
			if slot.State == model.SlotStateFree {
				for _, b := range blocks {
					if b.AppliesTo(c) && b.Overlaps(slot.StartsAt, slot.EndsAt) {
						id := b.ID
						slot.State, slot.BlockID = model.SlotStateBlocked, &id
						break
					}
				}
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// BlockInput административная блокировка кортов
type BlockInput struct {
	Courts      []string
	StartsAt    time.Time
	EndsAt      time.Time
	ContextType model.ContextType
	ContextID   *uuid.UUID
	Notes       string
}

func (s *CourtService) CreateBlock(ctx context.Context, actor model.Actor, in BlockInput) (*model.CourtBlock, error) {
	if !actor.Admin {
		return nil, &ForbiddenError{Message: "only admins can block courts"}
	}

	var fields []FieldError
	if !in.EndsAt.After(in.StartsAt) {
		fields = append(fields, FieldError{Field: "ends_at", Msg: "must be after starts_at"})
	}
	if !in.ContextType.Valid() {
		fields = append(fields, FieldError{Field: "context_type", Msg: "must be league, tournament or lesson"})
	}
	for _, c := range in.Courts {
		if !slices.Contains(s.cfg.Courts, c) {
			fields = append(fields, FieldError{Field: "courts", Msg: fmt.Sprintf("unknown court %q", c)})
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	b := &model.CourtBlock{
		ID:          uuid.New(),
		Courts:      in.Courts,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		ContextType: in.ContextType,
		ContextID:   in.ContextID,
		Notes:       in.Notes,
		CreatedBy:   actor.ID,
		CreatedAt:   s.now(),
	}
	if err := s.repos.Blocks.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create court block: %w", err)
	}

	s.logger.Info("Courts blocked",
		zap.String("block_id", b.ID.String()),
		zap.Strings("courts", b.Courts),
		zap.Time("starts_at", b.StartsAt),
		zap.Time("ends_at", b.EndsAt))
	return b, nil
}

func (s *CourtService) ListBlocks(ctx context.Context, from, to time.Time) ([]*model.CourtBlock, error) {
	blocks, err := s.repos.Blocks.ListOverlapping(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list court blocks: %w", err)
	}
	return blocks, nil
}

func (s *CourtService) DeleteBlock(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.Admin {
		return &ForbiddenError{Message: "only admins can remove court blocks"}
	}
	b, err := s.repos.Blocks.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get court block: %w", err)
	}
	if b == nil {
		return &NotFoundError{Entity: "court block", ID: id}
	}
	if err := s.repos.Blocks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete court block: %w", err)
	}
	return nil
}

// translate нарушение ограничения пересечения -> ConflictError
func (s *CourtService) translate(err error) error {
	if errors.Is(err, base.ErrOverlap) {
		return &ConflictError{Message: "court slot is already booked"}
	}
	return err
}

// dayStart полночь дня t по времени клуба
func (s *CourtService) dayStart(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// wallClock время от полуночи по часам, без учёта перевода времени
func wallClock(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
}

func atWallClock(day time.Time, d time.Duration) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, int(d), day.Location())
}

func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
