package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ovenworks/bakehouse-backend/pkg/config"
	pkgerrors "github.com/ovenworks/bakehouse-backend/pkg/errors"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

const guestSessionPrefix = "g_"

// sessionStore is the slice of the redis client the resolver needs.
type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	GuestSessionKey(deviceID string) string
}

// Resolver maps request credentials to an Identity. A missing or invalid
// bearer token is never fatal; the request proceeds as a guest.
type Resolver struct {
	jwtCfg   config.JWTConfig
	sessions sessionStore
	ttl      time.Duration
	logg     *logger.Logger
}

func NewResolver(jwtCfg config.JWTConfig, sessions sessionStore, ttl time.Duration, logg *logger.Logger) (*Resolver, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &Resolver{
		jwtCfg:   jwtCfg,
		sessions: sessions,
		ttl:      ttl,
		logg:     logg,
	}, nil
}

// Resolve returns the actor for a request. authHeader is the raw
// Authorization header value; deviceID comes from the X-Device-ID header
// and is required so guests keep a stable session across requests.
func (r *Resolver) Resolve(ctx context.Context, authHeader, deviceID string) (Identity, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "missing device id")
	}

	if token := bearerToken(authHeader); token != "" {
		claims, err := ParseAccessToken(r.jwtCfg, token)
		if err == nil {
			userID := claims.UserID
			return Identity{
				Kind:     KindUser,
				UserID:   &userID,
				DeviceID: deviceID,
			}, nil
		}
		// expired or malformed tokens degrade to guest rather than 401:
		// browsing and carting never require an account
		if r.logg != nil {
			r.logg.Warn(r.logg.WithDeviceID(ctx, deviceID), "bearer token rejected, continuing as guest")
		}
	}

	sessionID, err := r.guestSession(ctx, deviceID)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Kind:           KindGuest,
		GuestSessionID: sessionID,
		DeviceID:       deviceID,
	}, nil
}

// guestSession returns the device's guest session id, allocating one on
// first sight. SetNX makes concurrent first requests agree on a single id.
func (r *Resolver) guestSession(ctx context.Context, deviceID string) (string, error) {
	key := r.sessions.GuestSessionKey(deviceID)

	existing, err := r.sessions.Get(ctx, key)
	if err == nil && existing != "" {
		_ = r.sessions.Expire(ctx, key, r.ttl)
		return existing, nil
	}
	if err != nil && !errors.Is(err, goredis.Nil) {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading guest session")
	}

	candidate := guestSessionPrefix + uuid.NewString()
	won, err := r.sessions.SetNX(ctx, key, candidate, r.ttl)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating guest session")
	}
	if won {
		return candidate, nil
	}

	// lost the race; read what the winner stored
	existing, err = r.sessions.Get(ctx, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading guest session")
	}
	return existing, nil
}

func bearerToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
