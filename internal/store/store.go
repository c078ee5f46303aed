package store

import (
	"context"
	"errors"
	"time"

	"github.com/ailab-bots/caloriebot/pkg/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrDuplicateCode       = errors.New("access key code already exists")
	ErrKeyAlreadyActivated = errors.New("access key already activated")
	ErrUserAlreadyBound    = errors.New("user already has an activated key")
)

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Users
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SetDailyCalorieTarget(ctx context.Context, id int64, target int) error

	// Access keys
	CreateAccessKey(ctx context.Context, key *models.AccessKey) error
	GetAccessKeyByCode(ctx context.Context, code string) (*models.AccessKey, error)
	GetAccessKeyByOwner(ctx context.Context, userID int64) (*models.AccessKey, error)
	// ActivateAccessKey binds an unactivated key to a user in a single
	// transaction. Exactly one of two racing activations on the same key, or
	// by the same user on different keys, can succeed.
	ActivateAccessKey(ctx context.Context, code string, userID int64) (*models.AccessKey, error)
	ListAccessKeys(ctx context.Context) ([]*models.AccessKey, error)
	CountAccessKeys(ctx context.Context, tier models.KeyTier, quota *int) (int, error)

	// Usage ledger (append-only; counts are always derived by query)
	RecordUsage(ctx context.Context, event *models.UsageEvent) error
	CountUsage(ctx context.Context, userID int64, keyID uuid.UUID, kind string) (int, error)

	// Request log (sliding-window rate limiting)
	LogRequest(ctx context.Context, entry *models.RequestLogEntry) error
	CountRequestsSince(ctx context.Context, userID int64, since time.Time) (int, error)
	PruneRequestLog(ctx context.Context, before time.Time) (int64, error)

	// Meals
	AddMeal(ctx context.Context, meal *models.Meal) error
	GetDailySummary(ctx context.Context, userID int64, day time.Time) (*models.DailySummary, error)
	ListMealsForDay(ctx context.Context, userID int64, day time.Time) ([]*models.Meal, error)
	DeleteMealsForDay(ctx context.Context, userID int64, day time.Time) (int64, error)

	// AI cost accounting
	RecordAPIUsage(ctx context.Context, usage *models.APIUsage) error
	GetAPIUsageTotals(ctx context.Context) (*models.APIUsageTotals, error)
}
