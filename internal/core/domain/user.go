package domain

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Phone is a contact number owned by exactly one User. It carries no
// reference back to its owner; ownership is expressed by containment.
type Phone struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	CityCode    string `json:"cityCode"`
	CountryCode string `json:"countryCode"`
}

// User models a registered identity together with its contact numbers.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin"`
	Phones       []Phone    `json:"phones"`
}

// Clone returns a deep copy so callers can mutate the result without
// touching a stored record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.LastLogin != nil {
		ll := *u.LastLogin
		c.LastLogin = &ll
	}
	if u.Phones != nil {
		c.Phones = make([]Phone, len(u.Phones))
		copy(c.Phones, u.Phones)
	}
	return &c
}

// Identity is the verified subject a bearer token is issued for.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

// IdentityOf derives the token identity of a user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
