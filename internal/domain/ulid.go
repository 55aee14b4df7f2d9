package domain

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// ParseULID decodes identifiers stored as text, typically database columns
// and JWT subject claims
func ParseULID(id string) (ulid.ULID, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("invalid ULID: %w", err)
	}
	return parsed, nil
}
