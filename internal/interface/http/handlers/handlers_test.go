package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/rank-explorer/internal/domain/leaderboard"
	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type tableFunc func(ctx context.Context) (*leaderboard.Table, error)

func (f tableFunc) Table(ctx context.Context) (*leaderboard.Table, error) { return f(ctx) }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("test")

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, StatusOK, status.Status)
	assert.Equal(t, "no checks registered", status.Message)

	table := leaderboard.NewTable([]student.Record{{RegistrationID: "1", Name: "Ann", CGPA: 9}}, "v1")
	c.AddCheck("dataset", NewDatasetCheck(tableFunc(func(context.Context) (*leaderboard.Table, error) {
		return table, nil
	}), false))
	c.AddOptionalCheck("redis", NewPingCheck(pingFunc(func(context.Context) error { return errors.New("connection refused") })))

	status = c.Check(context.Background())
	assert.True(t, status.Healthy, "optional failures keep the service up")
	assert.True(t, status.Ready)
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "running without: redis", status.Message)
	assert.Equal(t, "1 records, version v1", status.Checks["dataset"].Message)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	assert.True(t, status.Checks["redis"].Optional)

	c.AddCheck("database", NewPingCheck(pingFunc(func(context.Context) error { return errors.New("timeout") })))
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, StatusDown, status.Status)
	assert.Equal(t, "checks failed: database", status.Message)

	c.RemoveCheck("redis")
	c.RemoveCheck("database")
	status = c.Check(context.Background())
	assert.Equal(t, StatusOK, status.Status)
	assert.Equal(t, "all checks passed", status.Message)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("test")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestDatasetCheck_Empty(t *testing.T) {
	empty := leaderboard.NewTable(nil, "")
	src := tableFunc(func(context.Context) (*leaderboard.Table, error) { return empty, nil })

	_, err := NewDatasetCheck(src, false)(context.Background())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	detail, err := NewDatasetCheck(src, true)(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "0 records", detail)
}

func TestSessionMiddleware(t *testing.T) {
	var seen string
	h := SessionMiddleware("sid", time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, seen, cookies[0].Value)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)

	// an existing cookie is reused and not re-issued
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: cookies[0].Value})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, cookies[0].Value, seen)

	// a forged cookie is replaced
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "../../etc", seen)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("a"), "one token refills every 30s")

	now = now.Add(time.Hour)
	assert.Equal(t, 2, l.Sweep())
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("a"))
	}
}

func TestAPIKeyAuth(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"secret", ""})
	assert.True(t, auth.HasKeys())

	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-API-Key", "guess", http.StatusUnauthorized},
		{"prefix", "X-API-Key", "secre", http.StatusUnauthorized},
		{"longer", "X-API-Key", "secret2", http.StatusUnauthorized},
		{"header", "X-API-Key", "secret", http.StatusNoContent},
		{"bearer", "Authorization", "Bearer secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPIKeyAuth_IsValid(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"alpha", "beta-key"})

	assert.True(t, auth.IsValid("alpha"))
	assert.True(t, auth.IsValid("beta-key"))
	assert.False(t, auth.IsValid(""))
	assert.False(t, auth.IsValid("ALPHA"))
	assert.False(t, auth.IsValid("beta"))

	none := NewAPIKeyAuth("X-API-Key", []string{""})
	assert.False(t, none.HasKeys())
	assert.False(t, none.IsValid(""))
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := ChainHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"), SecurityHeadersMiddleware, NoCacheMiddleware)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}
