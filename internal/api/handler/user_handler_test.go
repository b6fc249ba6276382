package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

type stubUserService struct {
	getFn    func(ctx context.Context, id string) (*domain.User, error)
	listFn   func(ctx context.Context) ([]*domain.User, error)
	updateFn func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error)
	deleteFn func(ctx context.Context, id string) (bool, error)
}

func (s *stubUserService) CreateUser(context.Context, ports.CreateUserInput) (*domain.User, error) {
	panic("not used")
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

func (s *stubUserService) UpdateUser(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubUserService) DeleteUser(ctx context.Context, id string) (bool, error) {
	return s.deleteFn(ctx, id)
}

// authedContext builds a context as the Auth middleware would leave it.
func authedContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, id string) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(IdentityKey, domain.Identity{UserID: "u-1", Username: "alice", Role: domain.RoleUser})
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c
}

func TestUserHandler_RequiresIdentity(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubUserService{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users", nil), httptest.NewRecorder())
	err := h.List(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestUserHandler_List(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubUserService{
		listFn: func(ctx context.Context) ([]*domain.User, error) {
			return []*domain.User{sampleUser()}, nil
		},
	})

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/api/users", nil), rec, "")
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 1 || resp[0].Username != "alice" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubUserService{
		getFn: func(ctx context.Context, id string) (*domain.User, error) {
			if id != "missing" {
				t.Fatalf("unexpected id %q", id)
			}
			return nil, domain.ErrUserNotFound
		},
	})

	c := authedContext(e, httptest.NewRequest(http.MethodGet, "/api/users/missing", nil), httptest.NewRecorder(), "missing")
	if err := h.Get(c); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Put_DecodesPresence(t *testing.T) {
	e := newTestEcho()
	var got ports.UpdateUserInput
	h := NewUserHandler(&stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			got = in
			return sampleUser(), nil
		},
	})

	body := `{"email":null,"active":false,"phones":[{"number":"9","cityCode":"1","countryCode":"57"}]}`
	rec := httptest.NewRecorder()
	c := authedContext(e, jsonRequest(http.MethodPut, "/api/users/u-1", body), rec, "u-1")
	if err := h.Put(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got.Username.IsSet() || got.Email.IsSet() || got.Password.IsSet() {
		t.Fatalf("absent or null strings must be unset: %+v", got)
	}
	if active, ok := got.Active.Get(); !ok || active {
		t.Fatalf("expected active=false to be present")
	}
	phones, ok := got.Phones.Get()
	if !ok || len(phones) != 1 || phones[0].Number != "9" {
		t.Fatalf("expected one replacement phone, got %+v", phones)
	}
}

func TestUserHandler_Put_NullPhonesLeavesThemAlone(t *testing.T) {
	e := newTestEcho()
	var got ports.UpdateUserInput
	h := NewUserHandler(&stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			got = in
			return sampleUser(), nil
		},
	})

	c := authedContext(e, jsonRequest(http.MethodPut, "/api/users/u-1", `{"phones":null}`), httptest.NewRecorder(), "u-1")
	if err := h.Put(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Phones.IsSet() {
		t.Fatalf("null phones must not replace the set")
	}
}

func TestUserHandler_Put_EmptyPhonesClears(t *testing.T) {
	e := newTestEcho()
	var got ports.UpdateUserInput
	h := NewUserHandler(&stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			got = in
			return sampleUser(), nil
		},
	})

	c := authedContext(e, jsonRequest(http.MethodPut, "/api/users/u-1", `{"phones":[]}`), httptest.NewRecorder(), "u-1")
	if err := h.Put(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if phones, ok := got.Phones.Get(); !ok || len(phones) != 0 {
		t.Fatalf("expected present empty phone set, got %v %v", phones, ok)
	}
}

func TestUserHandler_Patch_IgnoresPhones(t *testing.T) {
	e := newTestEcho()
	var got ports.UpdateUserInput
	h := NewUserHandler(&stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			got = in
			return sampleUser(), nil
		},
	})

	body := `{"username":"alice2","phones":[{"number":"9","cityCode":"1","countryCode":"57"}]}`
	c := authedContext(e, jsonRequest(http.MethodPatch, "/api/users/u-1", body), httptest.NewRecorder(), "u-1")
	if err := h.Patch(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Phones.IsSet() {
		t.Fatalf("patch must not touch phones")
	}
	if v, ok := got.Username.Get(); !ok || v != "alice2" {
		t.Fatalf("expected username alice2, got %q", v)
	}
}

func TestUserHandler_Put_Conflict(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubUserService{
		updateFn: func(ctx context.Context, id string, in ports.UpdateUserInput) (*domain.User, error) {
			return nil, domain.ErrEmailTaken
		},
	})

	c := authedContext(e, jsonRequest(http.MethodPut, "/api/users/u-1", `{"email":"x@y.z"}`), httptest.NewRecorder(), "u-1")
	if err := h.Put(c); err != domain.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserHandler_Delete(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubUserService{
		deleteFn: func(ctx context.Context, id string) (bool, error) {
			return id == "u-1", nil
		},
	})

	rec := httptest.NewRecorder()
	c := authedContext(e, httptest.NewRequest(http.MethodDelete, "/api/users/u-1", nil), rec, "u-1")
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	c = authedContext(e, httptest.NewRequest(http.MethodDelete, "/api/users/nope", nil), httptest.NewRecorder(), "nope")
	if err := h.Delete(c); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestProbeHandler(t *testing.T) {
	e := newTestEcho()
	h := NewProbeHandler()

	rec := httptest.NewRecorder()
	if err := h.Public(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/public", nil), rec)); err != nil {
		t.Fatalf("public: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	err := h.Protected(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/protected", nil), httptest.NewRecorder()))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %v", err)
	}

	rec = httptest.NewRecorder()
	if err := h.Protected(authedContext(e, httptest.NewRequest(http.MethodGet, "/api/protected", nil), rec, "")); err != nil {
		t.Fatalf("protected: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
