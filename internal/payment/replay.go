package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	replayPrefix  = "payproof:"
	pendingMarker = "pending"
	settledMarker = "settled"
	pendingTTL    = 10 * time.Minute
	settledTTL    = 24 * time.Hour
)

// ReplayGuard makes each payment proof single-use. A proof is marked
// pending before the paid operation runs; the marker is released when the
// operation or settlement fails and flipped to settled on success.
type ReplayGuard struct {
	Rdb *redis.Client
}

// ProofKey derives the replay key from the raw header value.
func ProofKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return replayPrefix + hex.EncodeToString(sum[:])
}

// Acquire claims the proof. Returns false when the proof was already
// claimed or settled.
func (g *ReplayGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.Rdb.SetNX(ctx, key, pendingMarker, pendingTTL).Result()
}

// Release frees a claimed proof so the caller can retry with it.
func (g *ReplayGuard) Release(ctx context.Context, key string) error {
	return g.Rdb.Del(ctx, key).Err()
}

// MarkSettled pins the proof as consumed.
func (g *ReplayGuard) MarkSettled(ctx context.Context, key string) error {
	return g.Rdb.Set(ctx, key, settledMarker, settledTTL).Err()
}
