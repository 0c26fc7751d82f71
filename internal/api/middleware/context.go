package middleware

import (
	"context"
	"net/http"

	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/domain/events"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	ownerKey    contextKey = "resource_owner"
)

func contextWithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromRequest returns the authenticated caller, if any. The second
// return is false on requests that never passed TokenAuth.
func IdentityFromRequest(r *http.Request) (auth.Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(auth.Identity)
	return identity, ok
}

func contextWithOwner(ctx context.Context, owner *events.Owner) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromRequest returns the resource owner resolved by the ownership
// gate, so handlers do not look it up twice.
func OwnerFromRequest(r *http.Request) *events.Owner {
	if owner, ok := r.Context().Value(ownerKey).(*events.Owner); ok {
		return owner
	}
	return nil
}
