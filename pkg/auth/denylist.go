package auth

import (
	"context"
	"time"

	"github.com/LetterVault/lettervault-core/pkg/clients/redis"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// Denylist
// ---------------------------------------------------------------------------

// Denylist records revoked token IDs so that logout can be enforced
// server-side. Entries carry a TTL equal to the token's remaining life;
// once the token would have expired anyway, the entry is free to lapse.
//
// The denylist is an optional addition to the otherwise stateless token
// design. A [TokenService] without one validates purely by signature and
// expiry.
type Denylist interface {
	// Revoke records a token ID as revoked for the given duration.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether the token ID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// denylistKeyPrefix namespaces revocation entries in Redis.
const denylistKeyPrefix = "auth:revoked:"

// RedisDenylist is a [Denylist] backed by Redis. Entries are plain keys
// with a TTL, so Redis expires them without any sweeping on our side.
// Because revocation state lives in Redis, it is shared across
// horizontally-scaled instances.
type RedisDenylist struct {
	client *redis.Client
}

// Compile-time assertion that RedisDenylist implements Denylist.
var _ Denylist = (*RedisDenylist)(nil)

// NewRedisDenylist creates a Denylist backed by the given Redis client.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

// Revoke records the token ID with the given TTL. Non-positive TTLs are
// ignored: the token is already past its expiry and needs no entry.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return lverr.New(lverr.CodeValidation, "auth: token ID must not be empty")
	}
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistKeyPrefix+tokenID, "1", ttl)
}

// IsRevoked reports whether the token ID has an unexpired revocation entry.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, denylistKeyPrefix+tokenID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
