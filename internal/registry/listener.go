package registry

import "context"

// DomainListener observes committed registry changes. Callbacks run after the
// registry transaction commits; a failing listener never rolls the registry back.
type DomainListener interface {
	DomainRegistered(ctx context.Context, event DomainEvent) error
	DomainTransferred(ctx context.Context, event TransferEvent) error
	// DomainRenewed fires after a renewal, manual or from escrow.
	DomainRenewed(ctx context.Context, event DomainEvent) error
	DomainReleased(ctx context.Context, event DomainEvent) error
}
