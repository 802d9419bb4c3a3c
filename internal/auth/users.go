package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yenshow/ba-frontend/internal/apiclient"
	"github.com/yenshow/ba-frontend/internal/session"
)

const pathUsers = "/users"

// UserClient manages user accounts. Most operations require an admin
// session on the backend.
type UserClient struct {
	client *apiclient.Client
}

// NewUserClient creates a UserClient.
func NewUserClient(client *apiclient.Client) *UserClient {
	return &UserClient{client: client}
}

// List returns one page of users.
func (c *UserClient) List(ctx context.Context, f UserFilter) (*apiclient.Page[session.User], error) {
	q := apiclient.Values{}
	q.Set("role", string(f.Role)).
		Set("status", string(f.Status)).
		Set("limit", f.Limit).
		Set("offset", f.Offset).
		Set("orderBy", f.OrderBy).
		Set("order", f.Order)

	var page apiclient.Page[session.User]
	if err := c.client.Get(ctx, pathUsers, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one user.
func (c *UserClient) Get(ctx context.Context, id int64) (*session.User, error) {
	path := userPath(id)
	var raw json.RawMessage
	if err := c.client.Get(ctx, path, apiclient.Values{}, &raw); err != nil {
		return nil, err
	}
	return decodeUserResult(raw, http.MethodGet, path)
}

// Update applies the non-nil fields of req.
func (c *UserClient) Update(ctx context.Context, id int64, req UpdateUserRequest) (*session.User, error) {
	if err := apiclient.Validate(req); err != nil {
		return nil, err
	}
	path := userPath(id)
	var raw json.RawMessage
	if err := c.client.Put(ctx, path, req, &raw); err != nil {
		return nil, err
	}
	return decodeUserResult(raw, http.MethodPut, path)
}

// Delete removes a user.
func (c *UserClient) Delete(ctx context.Context, id int64) error {
	return c.client.Delete(ctx, userPath(id), nil)
}

func userPath(id int64) string {
	return fmt.Sprintf("%s/%d", pathUsers, id)
}
