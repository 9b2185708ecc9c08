// Package tenant carries the TenantContext on every call that touches
// tenant data, per spec §3 and §4.1.
package tenant

import "context"

// Role mirrors the database role enforced by row-level security.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Context is the tenant scope injected into storage as session variables.
type Context struct {
	TeamID   string
	UserRole Role
	UserID   string // optional; empty for system/background actors
}

type ctxKey struct{}

// WithContext attaches a tenant.Context to ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext retrieves the tenant.Context previously attached, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// MustFromContext panics if no tenant.Context is present. Only safe to call
// from code reachable exclusively through tenant-scoped middleware.
func MustFromContext(ctx context.Context) Context {
	tc, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no TenantContext in context")
	}
	return tc
}
