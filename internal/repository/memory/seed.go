package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/model"
)

// AddPlayer, AddLeague и остальные добавляют справочные данные,
// которые в Postgres заводит внешняя часть клуба

func (s *Store) AddPlayer(p model.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.players[p.ID] = &p
}

func (s *Store) AddLeague(l model.League) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.leagues[l.ID] = &l
}

func (s *Store) AddCategory(c model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.categories[c.ID] = &c
}

func (s *Store) AddPair(p model.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.pairs[p.ID] = &p
}

// Enroll записывает участников (игроков или пары) в категорию
func (s *Store) Enroll(categoryID uuid.UUID, participantIDs ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.data.enrolled[categoryID]
	if !ok {
		set = make(map[uuid.UUID]bool)
		s.data.enrolled[categoryID] = set
	}
	for _, id := range participantIDs {
		set[id] = true
	}
}

// Seed справочные данные для запуска без базы
type Seed struct {
	Players     []model.Player         `json:"players"`
	Leagues     []model.League         `json:"leagues"`
	Categories  []model.Category       `json:"categories"`
	Pairs       []model.Pair           `json:"pairs"`
	Enrollments map[string][]uuid.UUID `json:"enrollments"` // category id -> участники
}

// LoadSeed читает JSON файл с Seed и добавляет данные в хранилище
func (s *Store) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, p := range seed.Players {
		s.AddPlayer(p)
	}
	for _, l := range seed.Leagues {
		if l.Status == "" {
			l.Status = model.LeagueStatusOpen
		}
		s.AddLeague(l)
	}
	for _, c := range seed.Categories {
		s.AddCategory(c)
	}
	for _, p := range seed.Pairs {
		s.AddPair(p)
	}
	for categoryID, participants := range seed.Enrollments {
		id, err := uuid.Parse(categoryID)
		if err != nil {
			return fmt.Errorf("parse enrollment category %q: %w", categoryID, err)
		}
		s.Enroll(id, participants...)
	}
	return nil
}
