package service

import (
	"context"
	"errors"
	"time"

	"clubdomains/internal/registry"
	"clubdomains/pkg/requestcontext"
)

const keeperBatchSize = 500

// RunAutoRenewals renews every due domain whose escrow covers a year. Domains
// that are not due, not renewable or underfunded are skipped. The due list is
// paged by (expiry, name) until exhausted.
func (s *Service) RunAutoRenewals(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	cutoff := now.Add(s.cfg.AutoRenewLeadTime)
	renewed := 0
	var cursor *registry.ExpiryCursor
	for {
		due, err := s.ListExpiring(ctx, cutoff, cursor, s.keeperBatch)
		if err != nil {
			return renewed, err
		}
		for _, d := range due {
			if s.autoRenew(ctx, d, now) {
				renewed++
			}
		}
		if len(due) < s.keeperBatch {
			return renewed, nil
		}
		cursor = registry.CursorAfter(due[len(due)-1])
	}
}

func (s *Service) autoRenew(ctx context.Context, d *registry.Domain, now time.Time) bool {
	if !d.IsLive(now, s.cfg.GracePeriod) {
		return false
	}
	_, err := s.ExecuteAutoRenewal(ctx, string(d.Name))
	switch {
	case err == nil:
		return true
	case errors.Is(err, registry.ErrInsufficientEscrow),
		errors.Is(err, registry.ErrAutoRenewalNotDue),
		errors.Is(err, registry.ErrNotRenewable):
	default:
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "auto-renewal failed", "name", string(d.Name), "error", err)
		}
	}
	return false
}

// StartAutoRenewals runs RunAutoRenewals every interval until ctx is cancelled.
func (s *Service) StartAutoRenewals(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.RunAutoRenewals(requestcontext.WithTime(ctx, time.Now()))
			if err != nil {
				return err
			}
			if n > 0 && s.logger != nil {
				s.logger.InfoContext(ctx, "domains auto-renewed", "count", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
