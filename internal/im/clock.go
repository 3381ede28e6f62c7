package im

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so stored timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the current UTC time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator produces opaque unique identifiers (workspace store identity).
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
