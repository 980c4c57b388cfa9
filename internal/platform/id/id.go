// Package id generates opaque identifiers for journal records.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random (v4) UUID as lowercase, unpadded base32: 26
// characters, safe in URLs and file names.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}

// Validate checks that value has the shape NewID produces.
func Validate(value string) error {
	if len(value) != 26 || value != strings.ToLower(value) {
		return fmt.Errorf("id %q: want 26 lowercase base32 characters", value)
	}
	raw, err := encoding.DecodeString(strings.ToUpper(value))
	if err != nil {
		return fmt.Errorf("id %q: %w", value, err)
	}
	if _, err := uuid.FromBytes(raw); err != nil {
		return fmt.Errorf("id %q: %w", value, err)
	}
	return nil
}
