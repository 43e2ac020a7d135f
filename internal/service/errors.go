package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Freeeeeet/club_league/internal/repository/base"
)

// FieldError ошибка конкретного поля запроса
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError некорректный ввод или нарушение бизнес-правила
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Msg)
	}
	return strings.Join(parts, "; ")
}

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func fieldError(field, format string, args ...any) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Msg: fmt.Sprintf(format, args...)}}}
}

// InvalidSlotError интервал не совпадает с сеткой слотов
type InvalidSlotError struct {
	Reason string
}

func (e *InvalidSlotError) Error() string {
	return "invalid slot: " + e.Reason
}

type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ForbiddenError актор не участник и не администратор
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// ConflictError слот занят, свободного корта нет или запись изменилась параллельно
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// BlockedError слот закрыт административной блокировкой чужого контекста
type BlockedError struct {
	BlockID uuid.UUID
	Message string
}

func (e *BlockedError) Error() string {
	return e.Message
}

type LeagueClosedError struct {
	LeagueID uuid.UUID
	Message  string
}

func (e *LeagueClosedError) Error() string {
	return e.Message
}

// isSlotUnavailable корт занят или заблокирован; можно пробовать другой корт
func isSlotUnavailable(err error) bool {
	var conflict *ConflictError
	var blocked *BlockedError
	return errors.As(err, &conflict) || errors.As(err, &blocked)
}

// isRetryable ошибки хранилища, после которых транзакцию можно повторить
func isRetryable(err error) bool {
	return errors.Is(err, base.ErrStaleWrite) || errors.Is(err, base.ErrTxConflict)
}
