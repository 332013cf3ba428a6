package auth

import (
	"context"
	"slices"
	"strings"
)

type contextKey struct{}

// Identity is the caller of a request. Instances limits the rule instances
// the caller may address; empty means every instance.
type Identity struct {
	Subject   string
	Role      Role
	Instances []string
}

// CanAccess reports whether the identity may address the named instance.
func (i Identity) CanAccess(instance string) bool {
	return len(i.Instances) == 0 || slices.Contains(i.Instances, instance)
}

// Scope renders the instance scope for logs and audit entries.
func (i Identity) Scope() string {
	if len(i.Instances) == 0 {
		return "*"
	}
	return strings.Join(i.Instances, ",")
}

// WithIdentity stores the caller identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the caller identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	identity, _ := IdentityFromContext(ctx)
	return identity.Role
}

// SubjectFromContext extracts subject from context.
func SubjectFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.Subject
}

// CanAccessInstance reports whether the request caller may address instance.
// Requests without an identity, such as in-process calls, are not restricted.
func CanAccessInstance(ctx context.Context, instance string) bool {
	identity, ok := IdentityFromContext(ctx)
	return !ok || identity.CanAccess(instance)
}
