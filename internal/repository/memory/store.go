// Package memory хранилище в памяти для STORAGE_DRIVER=memory и тестов.
// Транзакции сериализуются, откат восстанавливает снимок данных.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
)

type txKey struct{}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data data
}

type data struct {
	players      map[uuid.UUID]*model.Player
	pairs        map[uuid.UUID]*model.Pair
	leagues      map[uuid.UUID]*model.League
	categories   map[uuid.UUID]*model.Category
	enrolled     map[uuid.UUID]map[uuid.UUID]bool
	matches      map[uuid.UUID]*model.Match
	reservations map[uuid.UUID]*model.CourtReservation
	blocks       map[uuid.UUID]*model.CourtBlock
	standings    map[uuid.UUID][]model.Standing
}

func NewStore() *Store {
	return &Store{data: data{
		players:      make(map[uuid.UUID]*model.Player),
		pairs:        make(map[uuid.UUID]*model.Pair),
		leagues:      make(map[uuid.UUID]*model.League),
		categories:   make(map[uuid.UUID]*model.Category),
		enrolled:     make(map[uuid.UUID]map[uuid.UUID]bool),
		matches:      make(map[uuid.UUID]*model.Match),
		reservations: make(map[uuid.UUID]*model.CourtReservation),
		blocks:       make(map[uuid.UUID]*model.CourtBlock),
		standings:    make(map[uuid.UUID][]model.Standing),
	}}
}

// WithinTx выполняет fn эксклюзивно; при ошибке все изменения fn откатываются.
// Вложенный вызов выполняется в уже открытой транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// write вне транзакции ждёт завершения открытых транзакций
func (s *Store) write(ctx context.Context, fn func(d *data) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func (s *Store) read(fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

func (d *data) clone() data {
	c := data{
		players:      make(map[uuid.UUID]*model.Player, len(d.players)),
		pairs:        make(map[uuid.UUID]*model.Pair, len(d.pairs)),
		leagues:      make(map[uuid.UUID]*model.League, len(d.leagues)),
		categories:   make(map[uuid.UUID]*model.Category, len(d.categories)),
		enrolled:     make(map[uuid.UUID]map[uuid.UUID]bool, len(d.enrolled)),
		matches:      make(map[uuid.UUID]*model.Match, len(d.matches)),
		reservations: make(map[uuid.UUID]*model.CourtReservation, len(d.reservations)),
		blocks:       make(map[uuid.UUID]*model.CourtBlock, len(d.blocks)),
		standings:    make(map[uuid.UUID][]model.Standing, len(d.standings)),
	}
	for k, v := range d.players {
		p := *v
		c.players[k] = &p
	}
	for k, v := range d.pairs {
		p := *v
		c.pairs[k] = &p
	}
	for k, v := range d.leagues {
		l := *v
		c.leagues[k] = &l
	}
	for k, v := range d.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range d.enrolled {
		set := make(map[uuid.UUID]bool, len(v))
		for id := range v {
			set[id] = true
		}
		c.enrolled[k] = set
	}
	for k, v := range d.matches {
		c.matches[k] = v.Clone()
	}
	for k, v := range d.reservations {
		c.reservations[k] = v.Clone()
	}
	for k, v := range d.blocks {
		c.blocks[k] = v.Clone()
	}
	for k, v := range d.standings {
		c.standings[k] = append([]model.Standing(nil), v...)
	}
	return c
}

func (s *Store) Matches() *MatchRepository {
	return &MatchRepository{s: s}
}

func (s *Store) Reservations() *ReservationRepository {
	return &ReservationRepository{s: s}
}

func (s *Store) Blocks() *BlockRepository {
	return &BlockRepository{s: s}
}

func (s *Store) Leagues() *LeagueRepository {
	return &LeagueRepository{s: s}
}

func (s *Store) Categories() *CategoryRepository {
	return &CategoryRepository{s: s}
}

func (s *Store) Players() *PlayerRepository {
	return &PlayerRepository{s: s}
}

func (s *Store) Standings() *StandingRepository {
	return &StandingRepository{s: s}
}
