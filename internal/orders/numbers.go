package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	base36Alphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLength      = 5
	pickupCodeLength  = 6
)

// GenerateOrderNumber returns a human-readable unique order number:
//
//	ORD-<unix millis>-<5 random base36 chars>
//
// The timestamp orders numbers roughly by creation; the random suffix
// disambiguates orders placed in the same millisecond.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix, err := randomBase36(suffixLength)
	if err != nil {
		return "", fmt.Errorf("generating order number: %w", err)
	}
	return fmt.Sprintf("%s-%d-%s", orderNumberPrefix, now.UnixMilli(), suffix), nil
}

// GeneratePickupCode returns the 6 digit code a shopper reads out at the
// counter. Leading zeros are kept.
func GeneratePickupCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < pickupCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generating pickup code: %w", err)
	}
	return fmt.Sprintf("%0*d", pickupCodeLength, n), nil
}

func randomBase36(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36Alphabet[n.Int64()])
	}
	return sb.String(), nil
}
