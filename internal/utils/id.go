package utils

import "github.com/google/uuid"

// NewID returns a connection identity. Time-based UUIDs are unique per
// host and never reused, which is what connection identities need.
func NewID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
