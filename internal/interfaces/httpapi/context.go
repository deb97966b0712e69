package httpapi

import (
	"context"

	"github.com/riskibarqy/fantasy-draft/internal/domain/user"
)

type contextKey string

const (
	principalContextKey   contextKey = "auth_principal"
	requestMetaContextKey contextKey = "request_meta"
)

// requestMeta is created by RequestLogging and filled in by inner handlers,
// which see the matched mux pattern and the verified caller.
type requestMeta struct {
	route  string
	userID string
}

func withRequestMeta(ctx context.Context) (context.Context, *requestMeta) {
	meta := &requestMeta{}
	return context.WithValue(ctx, requestMetaContextKey, meta), meta
}

func requestMetaFromContext(ctx context.Context) *requestMeta {
	meta, _ := ctx.Value(requestMetaContextKey).(*requestMeta)
	return meta
}

func noteRoute(ctx context.Context, pattern string) {
	if meta := requestMetaFromContext(ctx); meta != nil && pattern != "" {
		meta.route = pattern
	}
}

func withPrincipal(ctx context.Context, p user.Principal) context.Context {
	if meta := requestMetaFromContext(ctx); meta != nil {
		meta.userID = p.UserID
	}
	return context.WithValue(ctx, principalContextKey, p)
}

func principalFromContext(ctx context.Context) (user.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(user.Principal)
	return p, ok
}
