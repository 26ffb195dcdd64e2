// Package verify holds one-shot contact verification codes with a bounded
// lifetime. A code is consumed exactly once: a successful Consume removes
// it, a wrong guess leaves it in place until it expires.
package verify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	DefaultTTL = 10 * time.Minute
	codeDigits = 6
)

var ErrCodeInvalid = errors.New("verification code invalid or expired")

type Store interface {
	// Put records a code for the address, replacing any previous one.
	Put(ctx context.Context, address, code string, ttl time.Duration) error

	// Consume checks the code and, on match, removes it. ErrCodeInvalid on
	// mismatch, expiry, or unknown address.
	Consume(ctx context.Context, address, code string) error

	// Invalidate drops any code held for the address.
	Invalidate(ctx context.Context, address string) error
}

// NewCode returns a random 6-digit code.
func NewCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
