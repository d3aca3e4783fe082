package registry

import (
	"context"
	"time"
)

// commitmentAge must exceed the server's REGISTRY_MIN_COMMITMENT_AGE.
const commitmentAge = 2 * time.Second

func waitCommitmentAge(ctx context.Context) error {
	select {
	case <-time.After(commitmentAge):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
