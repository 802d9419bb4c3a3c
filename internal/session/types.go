package session

import "time"

// Role is a user's capability level. Roles are totally ordered:
// admin includes operator, operator includes viewer.
type Role string

// Role constants.
const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether r grants at least the capabilities of min.
// Unknown roles satisfy nothing.
func (r Role) Satisfies(min Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	need, ok := roleRank[min]
	if !ok {
		return false
	}
	return have >= need
}

// Status is the account state of a user.
type Status string

// Status constants.
const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// User is the identity returned by the backend.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Status    Status `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Session is the credential pair. It is authenticated only when both
// halves are present.
type Session struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// IsAuthenticated reports whether both token and user are present.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// IsZero reports whether the session is completely empty.
func (s Session) IsZero() bool {
	return s.Token == "" && s.User == nil
}

// clone returns a deep copy so callers never alias the store's user.
func (s Session) clone() Session {
	if s.User == nil {
		return Session{Token: s.Token}
	}
	u := *s.User
	return Session{Token: s.Token, User: &u}
}

// Slot is the persisted form of a session.
type Slot struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the slot is past its expiry at now.
func (s Slot) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Reason explains why a session changed.
type Reason string

// Change reasons.
const (
	ReasonSet         Reason = "set"
	ReasonUserUpdated Reason = "user_updated"
	ReasonCleared     Reason = "cleared"
	ReasonInvalidated Reason = "invalidated"
	ReasonRestored    Reason = "restored"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Session Session
	Epoch   uint64
	Reason  Reason
}
