package cache

import "fmt"

// RateLimitKey is the per-user counter for the fast-path request limiter.
func RateLimitKey(userID int64) string {
	return fmt.Sprintf("ratelimit:user:%d", userID)
}
