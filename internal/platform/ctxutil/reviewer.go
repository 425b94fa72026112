package ctxutil

import (
	"context"
	"strings"
)

type reviewerKey struct{}

// WithReviewer records the authenticated reviewer id on the request context.
func WithReviewer(ctx context.Context, reviewerID string) context.Context {
	return context.WithValue(ctx, reviewerKey{}, strings.TrimSpace(reviewerID))
}

func Reviewer(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(reviewerKey{}).(string)
	return v
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
