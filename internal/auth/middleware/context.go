package auth

import (
	"context"

	"github.com/mind-engage/mindengage-grader/internal/rbac"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the token subject set by JWTMiddleware.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// withClaims stores the identity of a verified token.
func withClaims(ctx context.Context, c *Claims) context.Context {
	return rbac.WithRole(WithSubject(ctx, c.Sub), c.Role)
}
