package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by unit tests and local development.
// It enforces the same invariants as the Postgres schema: unique codes, one
// activation per key, one activated key per user.
type MemoryStore struct {
	mu sync.Mutex

	users    map[int64]*models.User
	keys     map[uuid.UUID]*models.AccessKey
	byCode   map[string]uuid.UUID
	usage    []*models.UsageEvent
	requests []*models.RequestLogEntry
	meals    []*models.Meal
	apiUsage []*models.APIUsage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]*models.User),
		keys:   make(map[uuid.UUID]*models.AccessKey),
		byCode: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// --- Users ---

func (s *MemoryStore) UpsertUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[user.ID]; ok {
		if user.Username != "" {
			existing.Username = user.Username
		}
		if user.FirstName != "" {
			existing.FirstName = user.FirstName
		}
		user.DailyCalorieTarget = existing.DailyCalorieTarget
		user.CreatedAt = existing.CreatedAt
		return nil
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) SetDailyCalorieTarget(_ context.Context, id int64, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.DailyCalorieTarget = target
	return nil
}

// --- Access Keys ---

func (s *MemoryStore) CreateAccessKey(_ context.Context, key *models.AccessKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byCode[key.Code]; dup {
		return ErrDuplicateCode
	}
	cp := *key
	s.keys[key.ID] = &cp
	s.byCode[key.Code] = key.ID
	return nil
}

func (s *MemoryStore) GetAccessKeyByCode(_ context.Context, code string) (*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.keys[id]
	return &cp, nil
}

func (s *MemoryStore) GetAccessKeyByOwner(_ context.Context, userID int64) (*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.Active && k.ActivatedBy != nil && *k.ActivatedBy == userID {
			cp := *k
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ActivateAccessKey(_ context.Context, code string, userID int64) (*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	key := s.keys[id]
	if key.ActivatedBy != nil {
		return nil, ErrKeyAlreadyActivated
	}
	for _, k := range s.keys {
		if k.ActivatedBy != nil && *k.ActivatedBy == userID {
			return nil, ErrUserAlreadyBound
		}
	}

	now := time.Now().UTC()
	key.ActivatedBy = &userID
	key.ActivatedAt = &now
	cp := *key
	return &cp, nil
}

func (s *MemoryStore) ListAccessKeys(_ context.Context) ([]*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AccessKey, 0, len(s.keys))
	for _, k := range s.keys {
		cp := *k
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) CountAccessKeys(_ context.Context, tier models.KeyTier, quota *int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, k := range s.keys {
		if k.Tier != tier {
			continue
		}
		if (k.Quota == nil) != (quota == nil) {
			continue
		}
		if quota != nil && *k.Quota != *quota {
			continue
		}
		count++
	}
	return count, nil
}

// --- Usage Ledger ---

func (s *MemoryStore) RecordUsage(_ context.Context, event *models.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.usage = append(s.usage, &cp)
	return nil
}

func (s *MemoryStore) CountUsage(_ context.Context, userID int64, keyID uuid.UUID, kind string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.usage {
		if e.UserID == userID && e.KeyID == keyID && e.Kind == kind {
			count++
		}
	}
	return count, nil
}

// --- Request Log ---

func (s *MemoryStore) LogRequest(_ context.Context, entry *models.RequestLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.requests = append(s.requests, &cp)
	return nil
}

func (s *MemoryStore) CountRequestsSince(_ context.Context, userID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.requests {
		if e.UserID == userID && !e.MadeAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) PruneRequestLog(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.requests[:0]
	var pruned int64
	for _, e := range s.requests {
		if e.MadeAt.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	s.requests = kept
	return pruned, nil
}

// --- Meals ---

func (s *MemoryStore) AddMeal(_ context.Context, meal *models.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *meal
	s.meals = append(s.meals, &cp)
	return nil
}

func (s *MemoryStore) GetDailySummary(_ context.Context, userID int64, day time.Time) (*models.DailySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end := dayBounds(day)
	sum := &models.DailySummary{Date: start.Format("2006-01-02")}
	for _, m := range s.meals {
		if m.UserID != userID || m.EatenAt.Before(start) || !m.EatenAt.Before(end) {
			continue
		}
		sum.TotalCalories += m.Calories
		sum.TotalProtein += m.Protein
		sum.TotalFat += m.Fat
		sum.TotalCarbs += m.Carbs
		sum.MealCount++
	}
	return sum, nil
}

func (s *MemoryStore) ListMealsForDay(_ context.Context, userID int64, day time.Time) ([]*models.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end := dayBounds(day)
	var out []*models.Meal
	for _, m := range s.meals {
		if m.UserID == userID && !m.EatenAt.Before(start) && m.EatenAt.Before(end) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EatenAt.After(out[j].EatenAt) })
	return out, nil
}

func (s *MemoryStore) DeleteMealsForDay(_ context.Context, userID int64, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end := dayBounds(day)
	kept := s.meals[:0]
	var deleted int64
	for _, m := range s.meals {
		if m.UserID == userID && !m.EatenAt.Before(start) && m.EatenAt.Before(end) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.meals = kept
	return deleted, nil
}

// --- AI Cost Accounting ---

func (s *MemoryStore) RecordAPIUsage(_ context.Context, usage *models.APIUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *usage
	s.apiUsage = append(s.apiUsage, &cp)
	return nil
}

func (s *MemoryStore) GetAPIUsageTotals(_ context.Context) (*models.APIUsageTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &models.APIUsageTotals{}
	for _, u := range s.apiUsage {
		t.Requests++
		t.TotalTokens += u.PromptTokens + u.CompletionTokens
		t.TotalCostUSD += u.CostUSD
	}
	return t, nil
}

var _ Store = (*MemoryStore)(nil)
