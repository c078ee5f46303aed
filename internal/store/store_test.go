package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ailab-bots/caloriebot/internal/store"
	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("caloriebot_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newKey(tier models.KeyTier, quota *int) *models.AccessKey {
	return &models.AccessKey{
		ID:        uuid.New(),
		Code:      "CALTEST" + uuid.NewString()[:8],
		Tier:      tier,
		Quota:     quota,
		Active:    true,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// --- User Tests ---

func TestUser_UpsertAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	user := &models.User{ID: 1001, Username: "alice", FirstName: "Alice"}
	require.NoError(t, s.UpsertUser(ctx, user))

	got, err := s.GetUser(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, models.DefaultDailyCalorieTarget, got.DailyCalorieTarget)
}

func TestUser_UpsertKeepsExistingNames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 1002, Username: "bob", FirstName: "Bob"}))
	// Re-upsert with empty names must not clobber what we have.
	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 1002}))

	got, err := s.GetUser(ctx, 1002)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "Bob", got.FirstName)
}

func TestUser_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetUser(context.Background(), 999999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUser_SetDailyCalorieTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 1003, Username: "carol"}))
	require.NoError(t, s.SetDailyCalorieTarget(ctx, 1003, 1800))

	got, err := s.GetUser(ctx, 1003)
	require.NoError(t, err)
	assert.Equal(t, 1800, got.DailyCalorieTarget)

	err = s.SetDailyCalorieTarget(ctx, 888888, 1800)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// --- Access Key Tests ---

func TestAccessKey_CreateAndGetByCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	key := newKey(models.TierLimited, intPtr(100))
	require.NoError(t, s.CreateAccessKey(ctx, key))

	got, err := s.GetAccessKeyByCode(ctx, key.Code)
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, models.TierLimited, got.Tier)
	require.NotNil(t, got.Quota)
	assert.Equal(t, 100, *got.Quota)
	assert.Nil(t, got.ActivatedBy)
}

func TestAccessKey_DuplicateCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	key := newKey(models.TierUnlimited, nil)
	require.NoError(t, s.CreateAccessKey(ctx, key))

	dup := newKey(models.TierUnlimited, nil)
	dup.Code = key.Code
	err := s.CreateAccessKey(ctx, dup)
	assert.ErrorIs(t, err, store.ErrDuplicateCode)
}

func TestAccessKey_GetByCodeNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	_, err := s.GetAccessKeyByCode(context.Background(), "CALNOPE11112222")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccessKey_CountByCategory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateAccessKey(ctx, newKey(models.TierLimited, intPtr(50))))
	}
	require.NoError(t, s.CreateAccessKey(ctx, newKey(models.TierLimited, intPtr(20))))
	require.NoError(t, s.CreateAccessKey(ctx, newKey(models.TierUnlimited, nil)))

	count, err := s.CountAccessKeys(ctx, models.TierLimited, intPtr(50))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = s.CountAccessKeys(ctx, models.TierUnlimited, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// --- Activation Tests ---

func TestActivate_Success(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 2001, Username: "dave"}))
	key := newKey(models.TierLimited, intPtr(20))
	require.NoError(t, s.CreateAccessKey(ctx, key))

	got, err := s.ActivateAccessKey(ctx, key.Code, 2001)
	require.NoError(t, err)
	require.NotNil(t, got.ActivatedBy)
	assert.Equal(t, int64(2001), *got.ActivatedBy)
	assert.NotNil(t, got.ActivatedAt)

	owned, err := s.GetAccessKeyByOwner(ctx, 2001)
	require.NoError(t, err)
	assert.Equal(t, key.ID, owned.ID)
}

func TestActivate_UnknownCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 2002}))
	_, err := s.ActivateAccessKey(ctx, "CALNOPE22223333", 2002)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestActivate_KeyAlreadyActivated(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 2003}))
	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 2004}))
	key := newKey(models.TierLimited, intPtr(20))
	require.NoError(t, s.CreateAccessKey(ctx, key))

	_, err := s.ActivateAccessKey(ctx, key.Code, 2003)
	require.NoError(t, err)

	_, err = s.ActivateAccessKey(ctx, key.Code, 2004)
	assert.ErrorIs(t, err, store.ErrKeyAlreadyActivated)
}

func TestActivate_UserAlreadyBound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 2005}))
	first := newKey(models.TierLimited, intPtr(20))
	second := newKey(models.TierLimited, intPtr(50))
	require.NoError(t, s.CreateAccessKey(ctx, first))
	require.NoError(t, s.CreateAccessKey(ctx, second))

	_, err := s.ActivateAccessKey(ctx, first.Code, 2005)
	require.NoError(t, err)

	_, err = s.ActivateAccessKey(ctx, second.Code, 2005)
	assert.ErrorIs(t, err, store.ErrUserAlreadyBound)

	// The second key stays available for someone else.
	got, err := s.GetAccessKeyByCode(ctx, second.Code)
	require.NoError(t, err)
	assert.Nil(t, got.ActivatedBy)
}

func TestActivate_ConcurrentSameKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	const racers = 8
	for i := 0; i < racers; i++ {
		require.NoError(t, s.UpsertUser(ctx, &models.User{ID: int64(3000 + i)}))
	}
	key := newKey(models.TierLimited, intPtr(100))
	require.NoError(t, s.CreateAccessKey(ctx, key))

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.ActivateAccessKey(ctx, key.Code, int64(3000+i))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, store.ErrKeyAlreadyActivated)
		}
	}
	assert.Equal(t, 1, winners)
}

// --- Usage Ledger Tests ---

func TestUsage_RecordAndCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 4001}))
	key := newKey(models.TierLimited, intPtr(20))
	require.NoError(t, s.CreateAccessKey(ctx, key))
	_, err := s.ActivateAccessKey(ctx, key.Code, 4001)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordUsage(ctx, &models.UsageEvent{
			ID: uuid.New(), UserID: 4001, KeyID: key.ID,
			Kind: models.UsageKindImage, UsedAt: time.Now().UTC(),
		}))
	}

	count, err := s.CountUsage(ctx, 4001, key.ID, models.UsageKindImage)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = s.CountUsage(ctx, 4001, key.ID, "other")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// --- Request Log Tests ---

func TestRequestLog_CountAndPrune(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 4002}))
	now := time.Now().UTC()

	for _, age := range []time.Duration{0, 30 * time.Second, 5 * time.Minute} {
		require.NoError(t, s.LogRequest(ctx, &models.RequestLogEntry{
			ID: uuid.New(), UserID: 4002,
			Kind: models.RequestKindImage, MadeAt: now.Add(-age),
		}))
	}

	count, err := s.CountRequestsSince(ctx, 4002, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pruned, err := s.PruneRequestLog(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	count, err = s.CountRequestsSince(ctx, 4002, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// --- Meal Tests ---

func TestMeals_DailySummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 5001}))
	now := time.Now().UTC()

	meals := []*models.Meal{
		{ID: uuid.New(), UserID: 5001, ProductName: "oatmeal", WeightGrams: floatPtr(250),
			Calories: 380, Protein: 12, Fat: 7, Carbs: 65, FromPhoto: true, EatenAt: now},
		{ID: uuid.New(), UserID: 5001, ProductName: "apple", WeightGrams: floatPtr(180),
			Calories: 95, Protein: 0.5, Fat: 0.3, Carbs: 25, FromPhoto: false, EatenAt: now},
		// Yesterday's meal must not count toward today.
		{ID: uuid.New(), UserID: 5001, ProductName: "pizza", WeightGrams: floatPtr(300),
			Calories: 800, Protein: 30, Fat: 35, Carbs: 90, FromPhoto: true,
			EatenAt: now.Add(-26 * time.Hour)},
	}
	for _, m := range meals {
		require.NoError(t, s.AddMeal(ctx, m))
	}

	sum, err := s.GetDailySummary(ctx, 5001, now)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.MealCount)
	assert.InDelta(t, 475, sum.TotalCalories, 0.01)
	assert.InDelta(t, 12.5, sum.TotalProtein, 0.01)

	list, err := s.ListMealsForDay(ctx, 5001, now)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMeals_DeleteForDay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 5002}))
	now := time.Now().UTC()

	require.NoError(t, s.AddMeal(ctx, &models.Meal{
		ID: uuid.New(), UserID: 5002, ProductName: "soup", WeightGrams: floatPtr(350),
		Calories: 220, Protein: 8, Fat: 9, Carbs: 24, EatenAt: now,
	}))
	require.NoError(t, s.AddMeal(ctx, &models.Meal{
		ID: uuid.New(), UserID: 5002, ProductName: "old soup", WeightGrams: floatPtr(350),
		Calories: 220, Protein: 8, Fat: 9, Carbs: 24, EatenAt: now.Add(-30 * time.Hour),
	}))

	deleted, err := s.DeleteMealsForDay(ctx, 5002, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	sum, err := s.GetDailySummary(ctx, 5002, now)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.MealCount)
}

// --- API Usage Tests ---

func TestAPIUsage_RecordAndTotals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, &models.User{ID: 6001}))

	require.NoError(t, s.RecordAPIUsage(ctx, &models.APIUsage{
		ID: uuid.New(), UserID: 6001, Provider: "openai", Model: "gpt-4o",
		PromptTokens: 1000, CompletionTokens: 200, CostUSD: 0.008,
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.RecordAPIUsage(ctx, &models.APIUsage{
		ID: uuid.New(), UserID: 6001, Provider: "openai", Model: "gpt-4o",
		PromptTokens: 500, CompletionTokens: 100, CostUSD: 0.004,
		CreatedAt: time.Now().UTC(),
	}))

	totals, err := s.GetAPIUsageTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Requests)
	assert.Equal(t, 1800, totals.TotalTokens)
	assert.InDelta(t, 0.012, totals.TotalCostUSD, 0.0001)
}

// --- Ping Test ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)

	err := s.Ping(context.Background())
	assert.NoError(t, err)
}
