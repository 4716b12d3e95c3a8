// Package id generates the prefixed identifiers used across the reading
// tracker. Every record carries a type prefix so an ID is self-describing
// in logs and API payloads.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each record type.
const (
	PrefixBook     = "book"
	PrefixSession  = "sess"
	PrefixProgress = "prog"
	PrefixStreak   = "streak"
)

// Generate creates a prefixed unique ID, e.g. "book-V1StGXR8_Z5jdHi6B-myT".
// The random part is a 21-character NanoID: URL-safe, and more compact than
// a UUID for the same entropy.
//
// Returns an error if the system has insufficient entropy for secure random
// generation.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + suffix, nil
}
