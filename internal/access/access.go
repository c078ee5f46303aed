// Package access implements the access-key entitlement engine: activation,
// evaluation, usage recording, and the durable sliding-window rate limiter.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ailab-bots/caloriebot/internal/keys"
	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
)

// Status is the tri-state entitlement of a user. Presence of a key and
// exhaustion of its quota are distinct states everywhere in the system.
type Status string

const (
	StatusUnbound   Status = "unbound"
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
)

// State is the always-fresh entitlement of a user at a point in time. It is
// recomputed from the store on every call, never cached.
type State struct {
	Status    Status         `json:"status"`
	Tier      models.KeyTier `json:"tier,omitempty"`
	KeyID     uuid.UUID      `json:"-"`
	Quota     *int           `json:"quota,omitempty"`
	Used      int            `json:"used"`
	Remaining *int           `json:"remaining,omitempty"` // nil for unlimited keys
	Message   string         `json:"message"`
}

// HasAccess reports whether a metered action may proceed.
func (s *State) HasAccess() bool {
	return s.Status == StatusActive
}

// Service coordinates the key store, usage ledger, and request log.
type Service struct {
	store       store.Store
	window      time.Duration
	maxRequests int
}

// NewService creates a Service with the given rate-limit window and ceiling.
func NewService(s store.Store, window time.Duration, maxRequests int) *Service {
	return &Service{store: s, window: window, maxRequests: maxRequests}
}

// Activate normalizes the raw entered code and binds the matching key to the
// user. Each failure mode is a distinct, user-visible reason. Success is
// terminal: later attempts by the same user always fail with "already bound".
func (s *Service) Activate(ctx context.Context, rawCode string, userID int64) (*models.ActivationResult, error) {
	code := keys.Normalize(rawCode)
	if code == "" {
		return nil, ErrEmptyCode
	}

	key, err := s.store.ActivateAccessKey(ctx, code, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, err
	case errors.Is(err, store.ErrKeyAlreadyActivated):
		return nil, err
	case errors.Is(err, store.ErrUserAlreadyBound):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("activate key: %w", err)
	}

	return &models.ActivationResult{
		Success: true,
		Tier:    key.Tier,
		Quota:   key.Quota,
		Message: activationMessage(key),
	}, nil
}

// Evaluate computes the user's current entitlement by joining the key store
// and the usage ledger. Remaining is floored at zero and nil for unlimited
// keys.
func (s *Service) Evaluate(ctx context.Context, userID int64) (*State, error) {
	key, err := s.store.GetAccessKeyByOwner(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &State{
			Status:  StatusUnbound,
			Message: "Access not activated. Use /activate with your key.",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up owner key: %w", err)
	}

	used, err := s.store.CountUsage(ctx, userID, key.ID, models.UsageKindImage)
	if err != nil {
		return nil, fmt.Errorf("count usage: %w", err)
	}

	if key.Tier == models.TierUnlimited {
		return &State{
			Status:  StatusActive,
			Tier:    models.TierUnlimited,
			KeyID:   key.ID,
			Used:    used,
			Message: "Unlimited access",
		}, nil
	}

	quota := 0
	if key.Quota != nil {
		quota = *key.Quota
	}
	remaining := quota - used
	if remaining < 0 {
		remaining = 0
	}

	st := &State{
		Tier:      models.TierLimited,
		KeyID:     key.ID,
		Quota:     key.Quota,
		Used:      used,
		Remaining: &remaining,
	}
	if remaining == 0 {
		st.Status = StatusExhausted
		st.Message = fmt.Sprintf("Analysis limit reached (%d/%d)", used, quota)
	} else {
		st.Status = StatusActive
		st.Message = fmt.Sprintf("Access active (%d/%d used)", used, quota)
	}
	return st, nil
}

// Admit applies the sliding-window rate limit for one request attempt. An
// admitted attempt is always logged, before the downstream action runs and
// regardless of whether it later succeeds: the limiter throttles attempts,
// not successes.
func (s *Service) Admit(ctx context.Context, userID int64, kind string) error {
	since := time.Now().UTC().Add(-s.window)
	count, err := s.store.CountRequestsSince(ctx, userID, since)
	if err != nil {
		return fmt.Errorf("count requests: %w", err)
	}
	if count >= s.maxRequests {
		return ErrRateLimited
	}

	entry := &models.RequestLogEntry{
		ID:     uuid.New(),
		UserID: userID,
		Kind:   kind,
		MadeAt: time.Now().UTC(),
	}
	if err := s.store.LogRequest(ctx, entry); err != nil {
		return fmt.Errorf("log request: %w", err)
	}
	return nil
}

// RecordImageUse appends one metered usage event against the user's key.
// Callers must invoke this only after the analysis confirmed success.
func (s *Service) RecordImageUse(ctx context.Context, userID int64, keyID uuid.UUID) error {
	event := &models.UsageEvent{
		ID:     uuid.New(),
		UserID: userID,
		KeyID:  keyID,
		Kind:   models.UsageKindImage,
		UsedAt: time.Now().UTC(),
	}
	if err := s.store.RecordUsage(ctx, event); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func activationMessage(key *models.AccessKey) string {
	if key.Tier == models.TierUnlimited {
		return "Key activated: unlimited access"
	}
	quota := 0
	if key.Quota != nil {
		quota = *key.Quota
	}
	return fmt.Sprintf("Key activated: %d image analyses", quota)
}
