// Package cache abstracts the one-time login-code store behind a small
// byte-oriented interface with memory and redis backends.
package cache

import "time"

// Cache is the minimal contract the login-code flow needs.
type Cache interface {
	// Get returns the value and whether it exists.
	Get(key string) ([]byte, bool)

	// Set stores value under key for ttl.
	Set(key string, value []byte, ttl time.Duration)

	// Delete removes the key; no-op when absent.
	Delete(key string)
}
