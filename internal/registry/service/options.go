package service

import (
	"log/slog"

	"clubdomains/internal/registry"
	"clubdomains/internal/registry/metrics"
	"clubdomains/pkg/platform/audit"
)

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithListener subscribes l to committed registry changes.
func WithListener(l registry.DomainListener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, l)
	}
}

// WithKeeperBatchSize sets how many due domains the keeper loads per page.
func WithKeeperBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.keeperBatch = n
		}
	}
}
