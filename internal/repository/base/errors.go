package base

import "errors"

// Ошибки хранилища, общие для Postgres и in-memory реализаций
var (
	// ErrStaleWrite версия строки изменилась с момента чтения
	ErrStaleWrite = errors.New("stale write: row was modified concurrently")
	// ErrTxConflict транзакцию можно повторить (serialization failure, deadlock)
	ErrTxConflict = errors.New("transaction conflict")
	// ErrOverlap нарушено ограничение на пересечение броней
	ErrOverlap = errors.New("reservation overlaps an active reservation")
)
