package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/twmb/franz-go/pkg/kgo"

	id "clubdomains/pkg/domain"
	"clubdomains/pkg/names"
)

// Submitter receives verified balances. The cross-chain source implements it.
type Submitter interface {
	SubmitVerification(ctx context.Context, oracle, user id.Address, name names.Name, chainID uint64, tokenAddress string, balance *big.Int) (bool, error)
}

// Fulfiller consumes VerificationResult messages and writes them back as the
// configured oracle identity. Every message is committed once handled;
// undecodable or rejected results are logged and dropped.
type Fulfiller struct {
	client    *kgo.Client
	submitter Submitter
	oracle    id.Address
	logger    *slog.Logger
	metrics   *Metrics
}

type FulfillerOption func(*Fulfiller)

func WithFulfillerLogger(logger *slog.Logger) FulfillerOption {
	return func(f *Fulfiller) { f.logger = logger }
}

func WithFulfillerMetrics(m *Metrics) FulfillerOption {
	return func(f *Fulfiller) { f.metrics = m }
}

func NewFulfiller(client *kgo.Client, submitter Submitter, oracle id.Address, opts ...FulfillerOption) (*Fulfiller, error) {
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if oracle.IsZero() {
		return nil, fmt.Errorf("oracle address is required")
	}
	f := &Fulfiller{client: client, submitter: submitter, oracle: oracle, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Run polls until ctx is done or the client is closed.
func (f *Fulfiller) Run(ctx context.Context) error {
	if f.client == nil {
		return fmt.Errorf("kafka client is required")
	}
	for {
		fetches := f.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			f.logger.ErrorContext(ctx, "oracle result fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			f.Handle(ctx, r.Key, r.Value)
		})
		if err := f.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			f.logger.ErrorContext(ctx, "oracle result commit failed", "error", err)
		}
	}
}

// Handle applies one encoded result and reports the outcome label.
func (f *Fulfiller) Handle(ctx context.Context, key, value []byte) string {
	var result VerificationResult
	if err := json.Unmarshal(value, &result); err != nil {
		f.logger.WarnContext(ctx, "failed to unmarshal verification result",
			"key", string(key),
			"error", err,
		)
		f.metrics.IncFulfilled("skipped")
		return "skipped"
	}
	if err := result.Validate(); err != nil {
		f.logger.WarnContext(ctx, "invalid verification result",
			"request_id", result.RequestID.String(),
			"error", err,
		)
		f.metrics.IncFulfilled("skipped")
		return "skipped"
	}

	stored, err := f.submitter.SubmitVerification(ctx, f.oracle, result.User, result.Name,
		result.ChainID, result.TokenAddress, result.Balance)
	if err != nil {
		f.logger.ErrorContext(ctx, "verification write-back failed",
			"request_id", result.RequestID.String(),
			"name", string(result.Name),
			"error", err,
		)
		f.metrics.IncFulfilled("error")
		return "error"
	}
	outcome := "revoked"
	if stored {
		outcome = "stored"
	}
	f.metrics.IncFulfilled(outcome)
	return outcome
}
