package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/core/domain"
)

func renderError(t *testing.T, err error) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(err, c)

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, body.Error
}

func TestErrorHandler_DomainKinds(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrInvalidEmailFormat, http.StatusBadRequest, domain.ErrInvalidEmailFormat.Message},
		{domain.ErrInvalidPasswordFormat, http.StatusBadRequest, domain.ErrInvalidPasswordFormat.Message},
		{domain.ErrUsernameTaken, http.StatusConflict, "Username already exists"},
		{domain.ErrEmailTaken, http.StatusConflict, "Email is already in use"},
		{domain.ErrStaleUser, http.StatusConflict, "User was modified by another request, retry"},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
		{domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{domain.ErrTokenExpired, http.StatusUnauthorized, domain.ErrTokenExpired.Message},
		{fmt.Errorf("update: %w", domain.ErrEmailTaken), http.StatusConflict, "Email is already in use"},
	}
	for _, tc := range cases {
		code, msg := renderError(t, tc.err)
		if code != tc.code || msg != tc.msg {
			t.Fatalf("%v: got %d %q, want %d %q", tc.err, code, msg, tc.code, tc.msg)
		}
	}
}

func TestErrorHandler_StoreErrorIsOpaque(t *testing.T) {
	err := fmt.Errorf("save user: %w: %w", domain.ErrStore, errors.New("connection refused"))

	code, msg := renderError(t, err)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg != "internal server error" {
		t.Fatalf("store detail leaked: %q", msg)
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	code, msg := renderError(t, echo.NewHTTPError(http.StatusBadRequest, "invalid payload"))
	if code != http.StatusBadRequest || msg != "invalid payload" {
		t.Fatalf("got %d %q", code, msg)
	}
}
