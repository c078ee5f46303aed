package models

import (
	"time"

	"github.com/google/uuid"
)

// KeyTier is the entitlement class of an access key.
type KeyTier string

const (
	TierUnlimited KeyTier = "unlimited"
	TierLimited   KeyTier = "limited"
)

// AccessKey is a pre-shared credential that grants a user access to metered
// image analysis. Codes are stored in canonical form (uppercase, no
// separators) and are immutable once generated. A key is activated at most
// once; ActivatedBy and ActivatedAt are set together and never cleared.
type AccessKey struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	Code        string     `db:"code"         json:"code"`
	Tier        KeyTier    `db:"tier"         json:"tier"`
	Quota       *int       `db:"quota"        json:"quota,omitempty"` // nil for unlimited keys
	Active      bool       `db:"active"       json:"active"`
	ActivatedBy *int64     `db:"activated_by" json:"activated_by,omitempty"`
	ActivatedAt *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// Activated reports whether the key has been bound to a user.
func (k *AccessKey) Activated() bool {
	return k.ActivatedBy != nil
}

// ActivationResult is returned to the front-end after an activation attempt.
type ActivationResult struct {
	Success bool    `json:"success"`
	Tier    KeyTier `json:"tier,omitempty"`
	Quota   *int    `json:"quota,omitempty"`
	Message string  `json:"message"`
}
