package middleware

import (
	"context"
	"net/http"

	"github.com/ovenworks/bakehouse-backend/api/responses"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

const deviceIDHeader = "X-Device-ID"

type contextKey string

const ctxIdentity contextKey = "identity"

type identityResolver interface {
	Resolve(ctx context.Context, authHeader, deviceID string) (identity.Identity, error)
}

// Identity resolves the caller to a user or guest identity and stores it in
// the request context. Requests without a device id are rejected; a bad or
// expired token degrades to guest rather than failing the request.
func Identity(resolver identityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ident, err := resolver.Resolve(ctx, r.Header.Get("Authorization"), r.Header.Get(deviceIDHeader))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			if logg != nil {
				ctx = logg.WithDeviceID(ctx, ident.DeviceID)
				if ident.IsUser() {
					ctx = logg.WithUserID(ctx, ident.UserID.String())
				} else {
					ctx = logg.WithGuestSession(ctx, ident.GuestSessionID)
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, ident)))
		})
	}
}

// WithIdentity injects a resolved identity into the context.
func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, ident)
}

// IdentityFromContext returns the identity stored by the Identity middleware.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	if ctx == nil {
		return identity.Identity{}, false
	}
	ident, ok := ctx.Value(ctxIdentity).(identity.Identity)
	return ident, ok
}
