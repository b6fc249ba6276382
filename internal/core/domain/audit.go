package domain

import "time"

// AuthEventType names an authentication or lifecycle outcome.
type AuthEventType string

const (
	EventLoginSucceeded AuthEventType = "login_succeeded"
	EventLoginFailed    AuthEventType = "login_failed"
	EventUserRegistered AuthEventType = "user_registered"
	EventUserUpdated    AuthEventType = "user_updated"
	EventUserDeleted    AuthEventType = "user_deleted"
)

// AuthEvent is an audit record. Username is the attempted name for failed
// logins, so it may not resolve to any user.
type AuthEvent struct {
	Type      AuthEventType
	UserID    string // empty when no user was resolved
	Username  string
	Timestamp time.Time
}
