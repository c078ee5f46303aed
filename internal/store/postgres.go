package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, first_name, daily_calorie_target, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
		   first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name)
		 RETURNING daily_calorie_target, created_at`,
		user.ID, user.Username, user.FirstName, user.DailyCalorieTarget, user.CreatedAt,
	).Scan(&user.DailyCalorieTarget, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, first_name, daily_calorie_target, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.DailyCalorieTarget, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) SetDailyCalorieTarget(ctx context.Context, id int64, target int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET daily_calorie_target = $2 WHERE id = $1`, id, target)
	if err != nil {
		return fmt.Errorf("set daily calorie target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Access Keys ---

const accessKeyColumns = `id, code, tier, quota, active, activated_by, activated_at, created_at`

func scanAccessKey(row pgx.Row) (*models.AccessKey, error) {
	var k models.AccessKey
	err := row.Scan(&k.ID, &k.Code, &k.Tier, &k.Quota, &k.Active,
		&k.ActivatedBy, &k.ActivatedAt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PostgresStore) CreateAccessKey(ctx context.Context, key *models.AccessKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_keys (id, code, tier, quota, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Code, key.Tier, key.Quota, key.Active, key.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create access key: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccessKeyByCode(ctx context.Context, code string) (*models.AccessKey, error) {
	k, err := scanAccessKey(s.pool.QueryRow(ctx,
		`SELECT `+accessKeyColumns+` FROM access_keys WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access key by code: %w", err)
	}
	return k, nil
}

func (s *PostgresStore) GetAccessKeyByOwner(ctx context.Context, userID int64) (*models.AccessKey, error) {
	k, err := scanAccessKey(s.pool.QueryRow(ctx,
		`SELECT `+accessKeyColumns+` FROM access_keys
		 WHERE activated_by = $1 AND active`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access key by owner: %w", err)
	}
	return k, nil
}

// ActivateAccessKey binds a key to a user. Row-level locking on the key plus
// the partial unique index on activated_by guarantee exactly one winner when
// two users race for the same key or one user races for two keys.
func (s *PostgresStore) ActivateAccessKey(ctx context.Context, code string, userID int64) (*models.AccessKey, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin activation: %w", err)
	}
	defer tx.Rollback(ctx)

	k, err := scanAccessKey(tx.QueryRow(ctx,
		`SELECT `+accessKeyColumns+` FROM access_keys WHERE code = $1 FOR UPDATE`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock access key: %w", err)
	}

	if k.Activated() {
		return nil, ErrKeyAlreadyActivated
	}

	var bound bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM access_keys WHERE activated_by = $1)`, userID,
	).Scan(&bound); err != nil {
		return nil, fmt.Errorf("check existing binding: %w", err)
	}
	if bound {
		return nil, ErrUserAlreadyBound
	}

	var activatedAt time.Time
	err = tx.QueryRow(ctx,
		`UPDATE access_keys SET activated_by = $1, activated_at = NOW()
		 WHERE id = $2 RETURNING activated_at`, userID, k.ID,
	).Scan(&activatedAt)
	if err != nil {
		// The partial unique index on activated_by catches a user racing to
		// activate two different keys at once.
		if isUniqueViolation(err) {
			return nil, ErrUserAlreadyBound
		}
		return nil, fmt.Errorf("activate access key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit activation: %w", err)
	}

	k.ActivatedBy = &userID
	k.ActivatedAt = &activatedAt
	return k, nil
}

func (s *PostgresStore) ListAccessKeys(ctx context.Context) ([]*models.AccessKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accessKeyColumns+` FROM access_keys
		 ORDER BY tier, quota DESC NULLS FIRST, created_at, code`)
	if err != nil {
		return nil, fmt.Errorf("list access keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.AccessKey
	for rows.Next() {
		k, err := scanAccessKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) CountAccessKeys(ctx context.Context, tier models.KeyTier, quota *int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM access_keys
		 WHERE tier = $1 AND quota IS NOT DISTINCT FROM $2`, tier, quota,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count access keys: %w", err)
	}
	return count, nil
}

// --- Usage Ledger ---

func (s *PostgresStore) RecordUsage(ctx context.Context, event *models.UsageEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage_events (id, user_id, key_id, kind, used_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.UserID, event.KeyID, event.Kind, event.UsedAt)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountUsage(ctx context.Context, userID int64, keyID uuid.UUID, kind string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM usage_events
		 WHERE user_id = $1 AND key_id = $2 AND kind = $3`, userID, keyID, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return count, nil
}

// --- Request Log ---

func (s *PostgresStore) LogRequest(ctx context.Context, entry *models.RequestLogEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO request_log (id, user_id, kind, made_at)
		 VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.UserID, entry.Kind, entry.MadeAt)
	if err != nil {
		return fmt.Errorf("log request: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountRequestsSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM request_log
		 WHERE user_id = $1 AND made_at >= $2`, userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PruneRequestLog(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM request_log WHERE made_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune request log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Meals ---

func (s *PostgresStore) AddMeal(ctx context.Context, meal *models.Meal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO meals (id, user_id, product_name, weight_grams, calories, protein, fat, carbs, from_photo, eaten_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		meal.ID, meal.UserID, meal.ProductName, meal.WeightGrams, meal.Calories,
		meal.Protein, meal.Fat, meal.Carbs, meal.FromPhoto, meal.EatenAt)
	if err != nil {
		return fmt.Errorf("add meal: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDailySummary(ctx context.Context, userID int64, day time.Time) (*models.DailySummary, error) {
	start, end := dayBounds(day)
	sum := models.DailySummary{Date: start.Format("2006-01-02")}
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(calories), 0), COALESCE(SUM(protein), 0),
		        COALESCE(SUM(fat), 0), COALESCE(SUM(carbs), 0), COUNT(*)
		 FROM meals WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at < $3`,
		userID, start, end,
	).Scan(&sum.TotalCalories, &sum.TotalProtein, &sum.TotalFat, &sum.TotalCarbs, &sum.MealCount)
	if err != nil {
		return nil, fmt.Errorf("get daily summary: %w", err)
	}
	return &sum, nil
}

func (s *PostgresStore) ListMealsForDay(ctx context.Context, userID int64, day time.Time) ([]*models.Meal, error) {
	start, end := dayBounds(day)
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, product_name, weight_grams, calories, protein, fat, carbs, from_photo, eaten_at
		 FROM meals WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at < $3
		 ORDER BY eaten_at DESC`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	var meals []*models.Meal
	for rows.Next() {
		var m models.Meal
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProductName, &m.WeightGrams,
			&m.Calories, &m.Protein, &m.Fat, &m.Carbs, &m.FromPhoto, &m.EatenAt); err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		meals = append(meals, &m)
	}
	return meals, rows.Err()
}

func (s *PostgresStore) DeleteMealsForDay(ctx context.Context, userID int64, day time.Time) (int64, error) {
	start, end := dayBounds(day)
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM meals WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at < $3`,
		userID, start, end)
	if err != nil {
		return 0, fmt.Errorf("delete meals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- AI Cost Accounting ---

func (s *PostgresStore) RecordAPIUsage(ctx context.Context, usage *models.APIUsage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_usage (id, user_id, provider, model, prompt_tokens, completion_tokens, cost_usd, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usage.ID, usage.UserID, usage.Provider, usage.Model,
		usage.PromptTokens, usage.CompletionTokens, usage.CostUSD, usage.CreatedAt)
	if err != nil {
		return fmt.Errorf("record api usage: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAPIUsageTotals(ctx context.Context) (*models.APIUsageTotals, error) {
	var t models.APIUsageTotals
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(prompt_tokens + completion_tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM api_usage`,
	).Scan(&t.Requests, &t.TotalTokens, &t.TotalCostUSD)
	if err != nil {
		return nil, fmt.Errorf("get api usage totals: %w", err)
	}
	return &t, nil
}

// dayBounds returns the UTC [start, end) interval of the calendar day
// containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// isUniqueViolation checks if a pgx error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
