package rbac

import "net/http"

// Require enforces a single permission under the default policy.
func Require(perm string) func(http.Handler) http.Handler { return Default.Require(perm) }

func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return Default.RequireAny(perms...)
}

func RequireAll(perms ...string) func(http.Handler) http.Handler {
	return Default.RequireAll(perms...)
}

func (p Policy) Require(perm string) func(http.Handler) http.Handler {
	return p.guard(func(role string) bool { return p.Allows(role, perm) })
}

// RequireAny enforces that the role has at least one of the permissions.
func (p Policy) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return p.guard(func(role string) bool { return p.AllowsAny(role, perms...) })
}

// RequireAll enforces that the role has all of the permissions.
func (p Policy) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return p.guard(func(role string) bool { return p.AllowsAll(role, perms...) })
}

func (p Policy) guard(allowed func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !allowed(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
