package service

import (
	"context"
	"fmt"

	"clubdomains/internal/registry"
	"clubdomains/pkg/platform/audit"
)

func (s *Service) snapshotListeners() []registry.DomainListener {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return append([]registry.DomainListener(nil), s.listeners...)
}

func (s *Service) notifyRegistered(ctx context.Context, event registry.DomainEvent) {
	for _, l := range s.snapshotListeners() {
		s.safeNotify(ctx, "domain_registered", string(event.Name), func() error {
			return l.DomainRegistered(ctx, event)
		})
	}
}

func (s *Service) notifyTransferred(ctx context.Context, event registry.TransferEvent) {
	for _, l := range s.snapshotListeners() {
		s.safeNotify(ctx, "domain_transferred", string(event.Name), func() error {
			return l.DomainTransferred(ctx, event)
		})
	}
}

func (s *Service) notifyRenewed(ctx context.Context, event registry.DomainEvent) {
	for _, l := range s.snapshotListeners() {
		s.safeNotify(ctx, "domain_renewed", string(event.Name), func() error {
			return l.DomainRenewed(ctx, event)
		})
	}
}

func (s *Service) notifyReleased(ctx context.Context, event registry.DomainEvent) {
	for _, l := range s.snapshotListeners() {
		s.safeNotify(ctx, "domain_released", string(event.Name), func() error {
			return l.DomainReleased(ctx, event)
		})
	}
}

// safeNotify isolates a listener: errors and panics are logged and counted,
// and the remaining listeners still run.
func (s *Service) safeNotify(ctx context.Context, callback, name string, fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener panic: %v", r)
			}
		}()
		err = fn()
	}()
	if err == nil {
		return
	}
	s.metrics.IncListenerFailure(callback)
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "domain listener failed",
			"callback", callback,
			"name", name,
			"error", err,
		)
	}
	s.logAudit(ctx, audit.EventListenerFailed, "name", name, "reason", err.Error(), "callback", callback)
}
