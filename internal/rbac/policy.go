package rbac

import (
	"context"
	"strings"
)

// Policy maps a role to permission patterns: an exact permission, a prefix
// ending in "*" such as "grade:*", or "*" for everything.
type Policy map[string][]string

func (p Policy) Allows(role, perm string) bool {
	for _, pattern := range p[role] {
		if matchPerm(pattern, perm) {
			return true
		}
	}
	return false
}

func (p Policy) AllowsAny(role string, perms ...string) bool {
	for _, perm := range perms {
		if p.Allows(role, perm) {
			return true
		}
	}
	return false
}

func (p Policy) AllowsAll(role string, perms ...string) bool {
	for _, perm := range perms {
		if !p.Allows(role, perm) {
			return false
		}
	}
	return true
}

// Roles lists the roles granted perm.
func (p Policy) Roles(perm string) []string {
	var out []string
	for role := range p {
		if p.Allows(role, perm) {
			out = append(out, role)
		}
	}
	return out
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- role in context ----

type ctxKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
