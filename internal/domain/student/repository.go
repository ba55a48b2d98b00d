package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORT INTERFACES
// Реализации находятся в infrastructure.
// ══════════════════════════════════════════════════════════════════════════════

// Source - источник записей (CSV файл или таблица PostgreSQL).
type Source interface {
	// Load читает все записи в исходном порядке.
	// Возвращает ошибку вида shared.ErrDataLoad или *shared.ValidationError.
	Load(ctx context.Context) ([]Record, error)

	// Version возвращает отпечаток текущего состояния источника.
	// Пустая строка означает "источник не меняется".
	Version(ctx context.Context) (string, error)

	// Name - человекочитаемое имя источника для логов.
	Name() string
}

// SessionStore хранит состояние пользовательской сессии (последний поисковый запрос).
type SessionStore interface {
	// LastSearchTerm возвращает последний запрос сессии или "" если его нет.
	LastSearchTerm(ctx context.Context, sessionID string) (string, error)

	// SetLastSearchTerm перезаписывает последний запрос сессии; пустой запрос стирает его.
	SetLastSearchTerm(ctx context.Context, sessionID, term string) error
}
