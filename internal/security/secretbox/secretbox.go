// Package secretbox encrypts provider client secrets at rest with
// NaCl secretbox (XSalsa20-Poly1305) under a master key from the
// SECRETBOX_MASTER_KEY env var.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	envVar    = "SECRETBOX_MASTER_KEY"
	keyLength = 32
	nonceLen  = 24
	sep       = "|" // base64(nonce)|base64(ciphertext)
)

var (
	masterKey     [keyLength]byte
	masterKeyOnce sync.Once
	loadErr       error
	loaded        bool
	mu            sync.RWMutex
)

// ensureLoaded reads the master key from the environment exactly once.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(envVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s not set; generate one with: openssl rand -base64 32", envVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", envVar, err)
			return
		}
		if len(k) != keyLength {
			loadErr = fmt.Errorf("%s must decode to %d bytes, got %d", envVar, keyLength, len(k))
			return
		}
		mu.Lock()
		copy(masterKey[:], k)
		loaded = true
		mu.Unlock()
	})
	return loadErr
}

// Ready reports whether the master key is loaded; used by healthchecks.
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return loaded
}

// Encrypt seals plainText and returns base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	mu.RLock()
	sealed := secretbox.Seal(nil, []byte(plainText), &nonce, &masterKey)
	mu.RUnlock()

	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(enc string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	parts := strings.SplitN(enc, sep, 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed ciphertext")
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nb) != nonceLen {
		return "", fmt.Errorf("malformed nonce")
	}
	cb, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext")
	}

	var nonce [nonceLen]byte
	copy(nonce[:], nb)

	mu.RLock()
	plain, ok := secretbox.Open(nil, cb, &nonce, &masterKey)
	mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("decrypt failed")
	}
	return string(plain), nil
}
