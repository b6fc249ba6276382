package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultClaimTTL = 10 * time.Second

// releaseScript deletes the key only while it still holds this holder's
// token, so an expired claim taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ClaimLocker implements ports.ClaimLocker with SET NX PX.
// Key format: claim:<field>:<value>
type ClaimLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClaimLocker creates a ClaimLocker. Claims expire after ttl even if
// never released; a non-positive ttl selects defaultClaimTTL.
func NewClaimLocker(client *redis.Client, ttl time.Duration) *ClaimLocker {
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &ClaimLocker{client: client, ttl: ttl}
}

// Acquire takes the claim on key if nobody holds it.
func (l *ClaimLocker) Acquire(ctx context.Context, key string) (func(), bool, error) {
	k := l.key(key)
	holder := uuid.NewString()

	ok, err := l.client.SetNX(ctx, k, holder, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim %s: %w", k, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{k}, holder).Err()
	}
	return release, true, nil
}

func (l *ClaimLocker) key(key string) string {
	return "claim:" + key
}
