package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no override exists for a flag.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores runtime overrides. A flag without an override resolves
// to the service defaults, which carry the configured values.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlags stores overrides in one step; readers never see half a batch.
	SetFlags(ctx context.Context, flags []*Flag) error
}
