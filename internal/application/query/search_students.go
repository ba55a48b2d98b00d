package query

import (
	"context"
	"strings"
	"time"

	"github.com/alem-hub/rank-explorer/internal/domain/search"
	"github.com/alem-hub/rank-explorer/internal/domain/shared"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
	"github.com/alem-hub/rank-explorer/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH STUDENTS QUERY
// Поиск по регистрационному номеру или части имени с подсказками.
// Последний запрос хранится в сессии: выбор подсказки запоминается,
// новый ввод перезаписывает его, пустой запрос берёт сохранённый.
// ══════════════════════════════════════════════════════════════════════════════

// SearchStudentsQuery содержит параметры поиска.
type SearchStudentsQuery struct {
	// SessionID - идентификатор сессии (пустой = без состояния).
	SessionID string

	// Term - введённый текст.
	Term string

	// Selected - выбранная подсказка; имеет приоритет над Term.
	Selected string

	// SuggestLimit - количество подсказок (0 = по умолчанию).
	SuggestLimit int
}

// Validate проверяет корректность параметров запроса.
func (q *SearchStudentsQuery) Validate() error {
	if q.SuggestLimit < 0 {
		return shared.NewValidationError("limit", "", "cannot be negative")
	}
	if q.SuggestLimit > search.MaxSuggestLimit {
		q.SuggestLimit = search.MaxSuggestLimit
	}
	q.Term = strings.TrimSpace(q.Term)
	q.Selected = strings.TrimSpace(q.Selected)
	return nil
}

// SearchStudentsResult содержит результат поиска.
type SearchStudentsResult struct {
	// Term - фактически использованный запрос.
	Term string `json:"term"`

	// FromSession - запрос взят из сессии.
	FromSession bool `json:"from_session"`

	// Matches - точные совпадения в исходном порядке.
	Matches []StudentDTO `json:"matches"`

	// Suggestions - похожие имена, лучшие первыми.
	Suggestions []search.Suggestion `json:"suggestions"`

	// TotalCount - размер таблицы.
	TotalCount int `json:"total_count"`
}

// SearchStudentsHandler обрабатывает поисковые запросы.
type SearchStudentsHandler struct {
	tables   TableProvider
	sessions student.SessionStore
	options  func() search.Options
	recorder Recorder
	log      *logger.Logger
}

// NewSearchStudentsHandler создаёт обработчик. options вызывается на каждый
// запрос, чтобы переключение флагов применялось без перезапуска.
func NewSearchStudentsHandler(
	tables TableProvider,
	sessions student.SessionStore,
	options func() search.Options,
	recorder Recorder,
	log *logger.Logger,
) *SearchStudentsHandler {
	if options == nil {
		options = search.DefaultOptions
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SearchStudentsHandler{
		tables:   tables,
		sessions: sessions,
		options:  options,
		recorder: recorderOrNop(recorder),
		log:      log,
	}
}

// Handle выполняет поиск.
func (h *SearchStudentsHandler) Handle(ctx context.Context, query SearchStudentsQuery) (result *SearchStudentsResult, err error) {
	defer observe(h.recorder, "search", time.Now(), &err)

	if err := query.Validate(); err != nil {
		return nil, err
	}

	term, fromSession, err := h.resolveTerm(ctx, query)
	if err != nil {
		return nil, err
	}

	table, err := loadTable(ctx, h.tables, "SearchStudents")
	if err != nil {
		return nil, err
	}
	records := table.Records()

	result = &SearchStudentsResult{
		Term:        term,
		FromSession: fromSession,
		Matches:     ToStudentDTOs(search.Find(term, records)),
		Suggestions: search.NewSuggester(h.options()).Suggest(term, records, query.SuggestLimit),
		TotalCount:  table.Count(),
	}
	return result, nil
}

// resolveTerm применяет правила сессии:
// выбор подсказки > новый ввод > сохранённый запрос.
func (h *SearchStudentsHandler) resolveTerm(ctx context.Context, query SearchStudentsQuery) (string, bool, error) {
	term := query.Selected
	if term == "" {
		term = query.Term
	}

	if h.sessions == nil || query.SessionID == "" {
		return term, false, nil
	}

	if term != "" {
		if err := h.sessions.SetLastSearchTerm(ctx, query.SessionID, term); err != nil {
			// Сессия не критична: поиск выполняется и без неё
			h.log.Warn("failed to store search term",
				logger.SessionID(query.SessionID),
				logger.Err(err),
			)
		}
		return term, false, nil
	}

	last, err := h.sessions.LastSearchTerm(ctx, query.SessionID)
	if err != nil {
		h.log.Warn("failed to read search term",
			logger.SessionID(query.SessionID),
			logger.Err(err),
		)
		return "", false, nil
	}
	return last, last != "", nil
}
