package access

import "errors"

var (
	// ErrEmptyCode means the entered key was empty after normalization.
	// Recovered locally by re-prompting the user.
	ErrEmptyCode = errors.New("access key code is empty")

	// ErrNotActivated means the user has never activated a key.
	ErrNotActivated = errors.New("no activated access key")

	// ErrQuotaExhausted means the user's limited key has no analyses left.
	// Terminal for that key; a new key is the only way forward.
	ErrQuotaExhausted = errors.New("access key quota exhausted")

	// ErrRateLimited means the sliding-window request limit was hit.
	// Transient; safe to retry after the window.
	ErrRateLimited = errors.New("too many requests")
)
