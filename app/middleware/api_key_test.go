package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/depin-orcha/orcha/app/dto"
	"github.com/depin-orcha/orcha/app/middleware"
	"github.com/depin-orcha/orcha/app/repository"
	"github.com/depin-orcha/orcha/app/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	findAllAPIKeys     = `(?s)SELECT id, key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions\s+FROM api_keys\s+ORDER BY created_at DESC`
	touchLastUsedQuery = `UPDATE api_keys SET last_used_at = \? WHERE id = \?`
)

var apiKeyColumns = []string{
	"id",
	"key_hash",
	"name",
	"description",
	"created_at",
	"expires_at",
	"last_used_at",
	"is_active",
	"rate_limit_per_minute",
	"permissions",
}

func newAPIKeyMiddleware(t *testing.T) (*middleware.APIKeyMiddleware, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	keyService := service.NewAPIKeyService(repository.NewAPIKeyRepository(db), 60)
	return middleware.NewAPIKeyMiddleware(keyService), mock, func() { _ = db.Close() }
}

func hashKeyForTest(t *testing.T, rawKey string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}
	return string(hash)
}

func newEchoContext(method, path string, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	e := echo.New()
	return e.NewContext(req, rec), rec
}

func nextRecorder(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusOK)
	}
}

func TestRequireAPIKey_MissingHeader(t *testing.T) {
	mw, _, cleanup := newAPIKeyMiddleware(t)
	defer cleanup()

	ctx, rec := newEchoContext(http.MethodGet, "/metrics", nil)
	called := false

	if err := mw.RequireAPIKey(nextRecorder(&called))(ctx); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if called {
		t.Fatalf("expected handler not to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestRequireAPIKey_InvalidKey(t *testing.T) {
	mw, mock, cleanup := newAPIKeyMiddleware(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(findAllAPIKeys).
		WillReturnRows(sqlmock.NewRows(apiKeyColumns).
			AddRow(int64(1), hashKeyForTest(t, "dpn_someotherkey"), "key", nil, now, nil, nil, true, 60, `[]`))

	ctx, rec := newEchoContext(http.MethodGet, "/metrics", map[string]string{
		middleware.HeaderAPIKey: "dpn_wrong",
	})
	called := false

	if err := mw.RequireAPIKey(nextRecorder(&called))(ctx); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if called {
		t.Fatalf("expected handler not to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRequireAPIKey_InactiveKey(t *testing.T) {
	mw, mock, cleanup := newAPIKeyMiddleware(t)
	defer cleanup()

	rawKey := "dpn_inactive000000000000000000000000"
	now := time.Now()
	mock.ExpectQuery(findAllAPIKeys).
		WillReturnRows(sqlmock.NewRows(apiKeyColumns).
			AddRow(int64(1), hashKeyForTest(t, rawKey), "revoked", nil, now, nil, nil, false, 60, `[]`))

	ctx, rec := newEchoContext(http.MethodGet, "/metrics", map[string]string{
		middleware.HeaderAPIKey: rawKey,
	})
	called := false

	if err := mw.RequireAPIKey(nextRecorder(&called))(ctx); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if called {
		t.Fatalf("expected handler not to be called")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRequireAPIKey_Success(t *testing.T) {
	mw, mock, cleanup := newAPIKeyMiddleware(t)
	defer cleanup()

	rawKey := "dpn_0123456789abcdef0123456789abcdef"
	now := time.Now()
	mock.ExpectQuery(findAllAPIKeys).
		WillReturnRows(sqlmock.NewRows(apiKeyColumns).
			AddRow(int64(1), hashKeyForTest(t, rawKey), "Admin Bootstrap Key", nil, now, nil, nil, true, 1000, `["admin"]`))
	mock.ExpectExec(touchLastUsedQuery).
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, rec := newEchoContext(http.MethodGet, "/metrics", map[string]string{
		middleware.HeaderAPIKey: rawKey,
	})
	called := false

	if err := mw.RequireAPIKey(nextRecorder(&called))(ctx); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	info, ok := ctx.Get(middleware.ContextKeyAPIKey).(*dto.APIKeyInfo)
	if !ok {
		t.Fatalf("expected key info in context")
	}
	if info.ID != 1 || info.RateLimitPerMinute != 1000 {
		t.Fatalf("unexpected key info: %+v", info)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRequireAPIKey_SkipsPreflight(t *testing.T) {
	mw, _, cleanup := newAPIKeyMiddleware(t)
	defer cleanup()

	ctx, _ := newEchoContext(http.MethodOptions, "/metrics", nil)
	called := false

	if err := mw.RequireAPIKey(nextRecorder(&called))(ctx); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if !called {
		t.Fatalf("expected preflight request to pass through")
	}
}
