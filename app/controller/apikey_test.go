package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/depin-orcha/orcha/app/controller"
	"github.com/depin-orcha/orcha/app/repository"
	"github.com/depin-orcha/orcha/app/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
)

const (
	insertAPIKeyQuery = `(?s)INSERT INTO api_keys \(\s+key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions\s+\) VALUES \(\?, \?, \?, \?, \?, \?, \?, \?, \?\)`
	findAPIKeyByID    = `(?s)SELECT id, key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions\s+FROM api_keys WHERE id = \?`
	findAllAPIKeys    = `(?s)SELECT id, key_hash, name, description, created_at, expires_at, last_used_at, is_active, rate_limit_per_minute, permissions\s+FROM api_keys\s+ORDER BY created_at DESC`
	deleteAPIKeyQuery = `DELETE FROM api_keys WHERE id = \?`
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

func newKeyControllerWithMock(t *testing.T) (*controller.APIKeyController, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	keyService := service.NewAPIKeyService(repository.NewAPIKeyRepository(db), 60)
	return controller.NewAPIKeyController(keyService), mock, func() { _ = db.Close() }
}

func newJSONRequest(t *testing.T, method, path string, body any) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func TestCreateKey_MissingName(t *testing.T) {
	keyController, _, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodPost, "/admin/keys", map[string]any{})
	e := echo.New()
	ctx := e.NewContext(req, rec)

	if err := keyController.Create(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestCreateKey_Success(t *testing.T) {
	keyController, mock, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodPost, "/admin/keys", map[string]any{
		"name":                  "Reporting Key",
		"rate_limit_per_minute": 120,
		"permissions":           []string{"read"},
	})
	e := echo.New()
	ctx := e.NewContext(req, rec)

	mock.ExpectExec(insertAPIKeyQuery).
		WithArgs(
			sqlmock.AnyArg(),
			"Reporting Key",
			nil,
			sqlmock.AnyArg(),
			nil,
			nil,
			true,
			120,
			`["read"]`,
		).
		WillReturnResult(sqlmock.NewResult(4, 1))

	if err := keyController.Create(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"api_key":"dpn_`) {
		t.Fatalf("expected raw key in response, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"name":"Reporting Key"`) {
		t.Fatalf("expected key info in response, got %s", rec.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetKey_InvalidID(t *testing.T) {
	keyController, _, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodGet, "/admin/keys/abc", nil)
	e := echo.New()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("abc")

	if err := keyController.Get(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetKey_NotFound(t *testing.T) {
	keyController, mock, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodGet, "/admin/keys/42", nil)
	e := echo.New()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("42")

	mock.ExpectQuery(findAPIKeyByID).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(apiKeyColumns))

	if err := keyController.Get(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListKeys_Success(t *testing.T) {
	keyController, mock, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodGet, "/admin/keys", nil)
	e := echo.New()
	ctx := e.NewContext(req, rec)

	now := time.Now()
	mock.ExpectQuery(findAllAPIKeys).
		WillReturnRows(sqlmock.NewRows(apiKeyColumns).
			AddRow(int64(2), "hash-2", "key-2", nil, now, nil, nil, true, 60, `[]`).
			AddRow(int64(1), "hash-1", "key-1", nil, now, nil, nil, false, 60, `["read"]`))

	if err := keyController.List(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"name":"key-2"`) {
		t.Fatalf("expected keys in response, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "hash-") {
		t.Fatalf("expected hashes to be withheld, got %s", rec.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateKey_NoFields(t *testing.T) {
	keyController, _, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodPut, "/admin/keys/1", map[string]any{})
	e := echo.New()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("1")

	if err := keyController.Update(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestDeleteKey_Success(t *testing.T) {
	keyController, mock, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodDelete, "/admin/keys/9", nil)
	e := echo.New()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("9")

	mock.ExpectExec(deleteAPIKeyQuery).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := keyController.Delete(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("expected success in response, got %s", rec.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteKey_NotFound(t *testing.T) {
	keyController, mock, cleanup := newKeyControllerWithMock(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodDelete, "/admin/keys/10", nil)
	e := echo.New()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("10")

	mock.ExpectExec(deleteAPIKeyQuery).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := keyController.Delete(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
