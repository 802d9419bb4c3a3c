package apiclient

import (
	"context"
	"net/url"
	"strings"
)

type originKey struct{}

// WithOrigin records the UI path a call was made on behalf of. If the call
// invalidates the session, this path is handed to OnUnauthorized so the
// user can return to it after logging in again.
func WithOrigin(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, originKey{}, path)
}

// OriginFrom returns the path recorded by WithOrigin, or "/".
func OriginFrom(ctx context.Context) string {
	if p, ok := ctx.Value(originKey{}).(string); ok && p != "" {
		return p
	}
	return "/"
}

// LoginRedirect builds the login URL that returns to path afterwards.
func LoginRedirect(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		path = "/"
	}
	return "/login?redirect=" + url.QueryEscape(path)
}
