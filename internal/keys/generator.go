// Package keys implements access-key generation, catalog issuance, and export.
package keys

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/ailab-bots/caloriebot/pkg/models"
)

// codeAlphabet excludes glyphs that are easy to confuse when a key is typed
// by hand (O/0, I/1).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	segmentLen   = 4
	segmentCount = 3
)

// brandPrefix leads every issued code so users can recognize a key at a glance.
const brandPrefix = "CAL"

// CategoryPrefix returns the code prefix for a (tier, quota) category, e.g.
// CALUNLIM or CALPRO100.
func CategoryPrefix(tier models.KeyTier, quota *int) string {
	if tier == models.TierUnlimited || quota == nil {
		return brandPrefix + "UNLIM"
	}
	switch {
	case *quota >= 100:
		return fmt.Sprintf("%sPRO%d", brandPrefix, *quota)
	case *quota >= 50:
		return fmt.Sprintf("%sPLUS%d", brandPrefix, *quota)
	default:
		return fmt.Sprintf("%sBASE%d", brandPrefix, *quota)
	}
}

// NewCode generates a fresh canonical code for the given category. Canonical
// codes are uppercase alphanumeric with no separators; uniqueness against the
// store is the caller's responsibility.
func NewCode(tier models.KeyTier, quota *int) (string, error) {
	var b strings.Builder
	b.WriteString(CategoryPrefix(tier, quota))
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < segmentLen*segmentCount; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Normalize converts raw user input into canonical code form: separators and
// any other non-alphanumeric characters are stripped, letters uppercased.
// Keys are displayed with dashes for readability but matched canonically.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Display formats a key's canonical code for humans: the category prefix
// followed by dash-separated segments, e.g. CALPRO100-ABCD-EFGH-JKLM.
func Display(key *models.AccessKey) string {
	prefix := CategoryPrefix(key.Tier, key.Quota)
	rest := strings.TrimPrefix(key.Code, prefix)

	parts := []string{prefix}
	for len(rest) > segmentLen {
		parts = append(parts, rest[:segmentLen])
		rest = rest[segmentLen:]
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return strings.Join(parts, "-")
}
