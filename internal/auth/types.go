package auth

import (
	"encoding/json"
	"fmt"

	"github.com/yenshow/ba-frontend/internal/session"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend's answer to POST /users/login.
type LoginResponse struct {
	Message string       `json:"message"`
	User    session.User `json:"user"`
	Token   string       `json:"token"`
}

// RegisterRequest creates a user account.
type RegisterRequest struct {
	Username string       `json:"username" validate:"required,max=64"`
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=6"`
	Role     session.Role `json:"role,omitempty" validate:"omitempty,oneof=admin operator viewer"`
}

// UpdateUserRequest changes selected fields of a user. Nil fields are
// omitted from the body and left unchanged by the backend.
type UpdateUserRequest struct {
	Username *string         `json:"username,omitempty" validate:"omitempty,min=1,max=64"`
	Email    *string         `json:"email,omitempty" validate:"omitempty,email"`
	Password *string         `json:"password,omitempty" validate:"omitempty,min=6"`
	Role     *session.Role   `json:"role,omitempty" validate:"omitempty,oneof=admin operator viewer"`
	Status   *session.Status `json:"status,omitempty" validate:"omitempty,oneof=active inactive suspended"`
}

// UserFilter narrows GET /users. Zero values are not sent.
type UserFilter struct {
	Role    session.Role
	Status  session.Status
	Limit   *int
	Offset  *int
	OrderBy string
	Order   string
}

// decodeUser accepts either {"user": {...}} or a bare user object.
func decodeUser(raw json.RawMessage) (*session.User, error) {
	var envelope struct {
		User *session.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	if envelope.User != nil {
		return envelope.User, nil
	}
	var u session.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	if u.ID == 0 && u.Username == "" {
		return nil, fmt.Errorf("decoding user: empty object")
	}
	return &u, nil
}
