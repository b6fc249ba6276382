package handler

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

// phoneRequest fields must be present and non-null; empty strings are
// accepted, the values carry no format rules.
type phoneRequest struct {
	Number      *string `json:"number"      validate:"required"`
	CityCode    *string `json:"cityCode"    validate:"required"`
	CountryCode *string `json:"countryCode" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string         `json:"username" validate:"required"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Phones   []phoneRequest `json:"phones"   validate:"dive"`
}

// optional records whether a JSON field was present. A present null leaves
// Value nil, which callers treat the same as an absent field.
type optional[T any] struct {
	Value *T
	Set   bool
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o optional[T]) toDomain() domain.Optional[T] {
	if !o.Set || o.Value == nil {
		return domain.None[T]()
	}
	return domain.Some(*o.Value)
}

type updateUserRequest struct {
	Username optional[string]         `json:"username"`
	Email    optional[string]         `json:"email"`
	Password optional[string]         `json:"password"`
	Active   optional[bool]           `json:"active"`
	Phones   optional[[]phoneRequest] `json:"phones"`
}

// phones returns the supplied phone list for validation; nil when absent.
func (r updateUserRequest) phones() []phoneRequest {
	if r.Phones.Value == nil {
		return nil
	}
	return *r.Phones.Value
}

// phoneListRequest lets the validator dive into a bare phone list.
type phoneListRequest struct {
	Phones []phoneRequest `json:"phones" validate:"dive"`
}

// --- Response types ---

type phoneResponse struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	CityCode    string `json:"cityCode"`
	CountryCode string `json:"countryCode"`
}

// userResponse is the user projection. The password hash has no field here
// by construction.
type userResponse struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	LastLogin *time.Time      `json:"lastLogin"`
	Active    bool            `json:"active"`
	Phones    []phoneResponse `json:"phones"`
}

// sessionResponse is the user projection plus the bearer token.
type sessionResponse struct {
	userResponse
	Token string `json:"token"`
}

// --- Request → Service input ---

func toPhoneInputs(in []phoneRequest) []ports.PhoneInput {
	out := make([]ports.PhoneInput, len(in))
	for i, p := range in {
		out[i] = ports.PhoneInput{
			Number:      *p.Number,
			CityCode:    *p.CityCode,
			CountryCode: *p.CountryCode,
		}
	}
	return out
}

func toCreateInput(r registerRequest) ports.CreateUserInput {
	return ports.CreateUserInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Phones:   toPhoneInputs(r.Phones),
	}
}

// toUpdateInput maps the request. withPhones is false for partial updates,
// which never touch the phone set.
func toUpdateInput(r updateUserRequest, withPhones bool) ports.UpdateUserInput {
	in := ports.UpdateUserInput{
		Username: r.Username.toDomain(),
		Email:    r.Email.toDomain(),
		Password: r.Password.toDomain(),
		Active:   r.Active.toDomain(),
	}
	if withPhones && r.Phones.Value != nil {
		in.Phones = domain.Some(toPhoneInputs(*r.Phones.Value))
	}
	return in
}

// --- Service result → HTTP response ---

func toUserResponse(u *domain.User) userResponse {
	phones := make([]phoneResponse, len(u.Phones))
	for i, p := range u.Phones {
		phones[i] = phoneResponse{
			ID:          p.ID,
			Number:      p.Number,
			CityCode:    p.CityCode,
			CountryCode: p.CountryCode,
		}
	}
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC(),
		UpdatedAt: u.UpdatedAt.UTC(),
		Active:    u.Active,
		Phones:    phones,
	}
	if u.LastLogin != nil {
		ll := u.LastLogin.UTC()
		resp.LastLogin = &ll
	}
	return resp
}

func toSessionResponse(r *ports.SessionResult) sessionResponse {
	return sessionResponse{userResponse: toUserResponse(r.User), Token: r.Token}
}
