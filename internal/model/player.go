package model

import "github.com/google/uuid"

type Player struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TelegramID *int64    `json:"telegram_id,omitempty"` // nil - уведомления в Telegram не привязаны
	IsAdmin    bool      `json:"is_admin"`
}

// Pair пара игроков в парном разряде
type Pair struct {
	ID         uuid.UUID    `json:"id"`
	CategoryID uuid.UUID    `json:"category_id"`
	PlayerIDs  [2]uuid.UUID `json:"player_ids"`
}

// Actor тот, кто выполняет операцию; проверка прав выполняется снаружи
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// Notification запрос на уведомление для внешнего канала доставки
type Notification struct {
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Recipients []uuid.UUID       `json:"recipients"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
