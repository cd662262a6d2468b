package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	// CodeTTL is how long a one-time code stays valid. Pending signups are
	// retained for the same window.
	CodeTTL = 10 * time.Minute

	codeMin = 100000
	codeMax = 999999
)

var codeSpan = big.NewInt(codeMax - codeMin + 1)

// Code is a freshly generated one-time code.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// GenerateCode returns a uniformly random six digit code (never with a
// leading zero) that expires CodeTTL after now.
func GenerateCode(now time.Time) (Code, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return Code{}, fmt.Errorf("generate code: %w", err)
	}
	return Code{
		Value:     fmt.Sprintf("%06d", n.Int64()+codeMin),
		ExpiresAt: now.Add(CodeTTL),
	}, nil
}

// hashCode fingerprints a code for storage.
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// codeMatches reports whether code hashes to storedHash and now is strictly
// before expiresAt. An absent code or hash never matches.
func codeMatches(storedHash string, expiresAt time.Time, code string, now time.Time) bool {
	if code == "" || storedHash == "" {
		return false
	}
	if !now.Before(expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(storedHash)) == 1
}
