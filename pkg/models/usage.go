package models

import (
	"time"

	"github.com/google/uuid"
)

// Usage and request kinds. Only image analysis counts against key quotas;
// text analysis is logged for rate limiting but never metered.
const (
	UsageKindImage = "image"

	RequestKindImage = "image"
	RequestKindText  = "text"
)

// UsageEvent is one metered action charged against an access key. Events are
// append-only; quota consumption is always derived by counting them, never
// cached.
type UsageEvent struct {
	ID     uuid.UUID `db:"id"      json:"id"`
	UserID int64     `db:"user_id" json:"user_id"`
	KeyID  uuid.UUID `db:"key_id"  json:"key_id"`
	Kind   string    `db:"kind"    json:"kind"`
	UsedAt time.Time `db:"used_at" json:"used_at"`
}

// RequestLogEntry records one admitted request attempt for sliding-window
// rate limiting. Rows older than the window may be pruned freely.
type RequestLogEntry struct {
	ID     uuid.UUID `db:"id"      json:"id"`
	UserID int64     `db:"user_id" json:"user_id"`
	Kind   string    `db:"kind"    json:"kind"`
	MadeAt time.Time `db:"made_at" json:"made_at"`
}

// APIUsage records token consumption and estimated cost of one upstream AI
// call. Persisted so accounting survives restarts.
type APIUsage struct {
	ID               uuid.UUID `db:"id"                json:"id"`
	UserID           int64     `db:"user_id"           json:"user_id"`
	Provider         string    `db:"provider"          json:"provider"`
	Model            string    `db:"model"             json:"model"`
	PromptTokens     int       `db:"prompt_tokens"     json:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens"`
	CostUSD          float64   `db:"cost_usd"          json:"cost_usd"`
	CreatedAt        time.Time `db:"created_at"        json:"created_at"`
}

// APIUsageTotals is the aggregate view served to operators.
type APIUsageTotals struct {
	Requests     int     `json:"requests"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}
