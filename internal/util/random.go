// Package util provides utility functions for the supbridge application.
package util

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2 for non-cryptographic identifier purposes.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.Intn(16)])
	}

	return builder.String()
}

// GenerateOptimisticID generates a client message identifier for outbound sends.
// The Sup service treats it as an idempotency hint, not a primary key, so a
// millisecond timestamp plus a random hex suffix is unique enough per session.
func GenerateOptimisticID() string {
	return fmt.Sprintf("sup-%d-%s", time.Now().UnixMilli(), GenerateRandomHex(8))
}
