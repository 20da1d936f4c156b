package api

import (
	"context"

	"campuswatch/core"
)

type contextKey string

const identityKey contextKey = "identity"

// identityFrom returns the authenticated identity attached by
// authMiddleware. The second return is false on unauthenticated requests.
func identityFrom(ctx context.Context) (core.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(core.Identity)
	return identity, ok
}

func withIdentity(ctx context.Context, identity core.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
