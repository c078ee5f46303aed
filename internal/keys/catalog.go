package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
)

// ErrGenerationExhausted is returned when a unique code could not be found
// within the collision-retry budget. Operator-visible; never shown to users.
var ErrGenerationExhausted = errors.New("key generation exhausted collision retries")

// maxCollisionRetries bounds how many times a colliding code is regenerated
// before the batch is abandoned.
const maxCollisionRetries = 100

// Target is one (tier, quota) category of the key catalog with its desired
// total count.
type Target struct {
	Tier  models.KeyTier
	Quota *int
	Count int
}

// DefaultCatalog mirrors the standard issuance plan: 5 unlimited keys plus
// 20 each of 100, 50, and 20 analyses.
func DefaultCatalog() []Target {
	return []Target{
		{Tier: models.TierUnlimited, Count: 5},
		{Tier: models.TierLimited, Quota: intPtr(100), Count: 20},
		{Tier: models.TierLimited, Quota: intPtr(50), Count: 20},
		{Tier: models.TierLimited, Quota: intPtr(20), Count: 20},
	}
}

// Catalog performs idempotent batch issuance against the store.
type Catalog struct {
	store store.Store
}

// NewCatalog creates a Catalog backed by the given store.
func NewCatalog(s store.Store) *Catalog {
	return &Catalog{store: s}
}

// Ensure tops each target category up to its desired count. Existing keys,
// activated or not, are never touched; re-running Ensure against a complete
// catalog adds nothing. Returns the number of keys added.
func (c *Catalog) Ensure(ctx context.Context, targets []Target) (int, error) {
	added := 0
	for _, t := range targets {
		current, err := c.store.CountAccessKeys(ctx, t.Tier, t.Quota)
		if err != nil {
			return added, fmt.Errorf("count %s keys: %w", t.Tier, err)
		}

		need := t.Count - current
		if need <= 0 {
			slog.Info("key category complete",
				"tier", t.Tier, "quota", quotaLabel(t.Quota), "have", current, "want", t.Count)
			continue
		}

		slog.Info("issuing keys",
			"tier", t.Tier, "quota", quotaLabel(t.Quota), "adding", need)
		for i := 0; i < need; i++ {
			if err := c.issueOne(ctx, t); err != nil {
				return added, err
			}
			added++
		}
	}
	return added, nil
}

// issueOne inserts a single new key, regenerating on code collision. The
// unique index on access_keys.code is the collision check, so concurrent
// generator runs stay safe.
func (c *Catalog) issueOne(ctx context.Context, t Target) error {
	for attempt := 0; attempt < maxCollisionRetries; attempt++ {
		code, err := NewCode(t.Tier, t.Quota)
		if err != nil {
			return err
		}

		key := &models.AccessKey{
			ID:        uuid.New(),
			Code:      code,
			Tier:      t.Tier,
			Quota:     t.Quota,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		err = c.store.CreateAccessKey(ctx, key)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return fmt.Errorf("insert access key: %w", err)
		}
		return nil
	}
	return ErrGenerationExhausted
}

func quotaLabel(quota *int) string {
	if quota == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *quota)
}

func intPtr(v int) *int { return &v }
