// Package crosschain grants membership from oracle-reported balances of tokens
// on other chains. Reports are trusted as submitted by an allow-listed oracle;
// the latest report per chain wins.
package crosschain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"clubdomains/internal/membership/metrics"
	"clubdomains/internal/membership/source"
	"clubdomains/internal/membership/tokengate"
	"clubdomains/internal/oracle"
	"clubdomains/internal/platform/observability"
	"clubdomains/internal/platform/pause"
	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/audit"
	"clubdomains/pkg/platform/sentinel"
	"clubdomains/pkg/requestcontext"
)

// GateReader supplies the cross-chain gates configured for a club.
type GateReader interface {
	CrossChainGates(ctx context.Context, name names.Name) ([]tokengate.Gate, error)
}

type Service struct {
	store     Store
	gates     GateReader
	publisher oracle.Publisher
	pause     *pause.Switch
	fee       *big.Int
	seeds     []id.Address

	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithOracles seeds the allow-list when the service is built.
func WithOracles(oracles ...id.Address) Option {
	return func(s *Service) {
		for _, o := range oracles {
			if !o.IsZero() {
				s.seeds = append(s.seeds, o)
			}
		}
	}
}

func New(store Store, gates GateReader, publisher oracle.Publisher, sw *pause.Switch, verificationFee *big.Int, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("verification store is required")
	}
	if gates == nil {
		return nil, errors.New("gate reader is required")
	}
	if publisher == nil {
		return nil, errors.New("request publisher is required")
	}
	if sw == nil {
		return nil, errors.New("pause switch is required")
	}
	if verificationFee == nil || verificationFee.Sign() < 0 {
		return nil, errors.New("verification fee must be non-negative")
	}
	s := &Service{
		store:     store,
		gates:     gates,
		publisher: publisher,
		pause:     sw,
		fee:       id.Copy(verificationFee),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, o := range s.seeds {
		if err := store.AllowOracle(context.Background(), o); err != nil {
			return nil, fmt.Errorf("seed oracle allow-list: %w", err)
		}
	}
	return s, nil
}

func (s *Service) Kind() source.Kind { return source.KindCrossChain }

func (s *Service) VerificationFee() *big.Int { return id.Copy(s.fee) }

// AllowOracle adds oracle to the allow-list. Owner only.
func (s *Service) AllowOracle(ctx context.Context, caller, oracleAddr id.Address) error {
	if err := s.pause.RequireOwner(caller); err != nil {
		return err
	}
	if oracleAddr.IsZero() {
		return source.ErrZeroAddress
	}
	if err := s.store.AllowOracle(ctx, oracleAddr); err != nil {
		return storeErr(err)
	}
	s.logAudit(ctx, audit.EventOracleAllowed, "actor", caller.String(), "target", oracleAddr.String())
	return nil
}

// RevokeOracle removes oracle from the allow-list. Owner only. Existing
// records stay until overwritten.
func (s *Service) RevokeOracle(ctx context.Context, caller, oracleAddr id.Address) error {
	if err := s.pause.RequireOwner(caller); err != nil {
		return err
	}
	ok, err := s.store.RevokeOracle(ctx, oracleAddr)
	if err != nil {
		return storeErr(err)
	}
	if !ok {
		return ErrOracleNotAllowed
	}
	s.logAudit(ctx, audit.EventOracleRevoked, "actor", caller.String(), "target", oracleAddr.String())
	return nil
}

func (s *Service) IsOracle(ctx context.Context, oracleAddr id.Address) (bool, error) {
	ok, err := s.store.IsOracle(ctx, oracleAddr)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

// SubmitVerification records an oracle report. A report that matches a gate
// and meets its threshold is stored; any other report deletes the previous
// record for the chain. stored reports which of the two happened.
func (s *Service) SubmitVerification(ctx context.Context, oracleAddr, user id.Address, name names.Name, chainID uint64, tokenAddress string, balance *big.Int) (bool, error) {
	if err := s.pause.Ensure(); err != nil {
		return false, err
	}
	allowed, err := s.IsOracle(ctx, oracleAddr)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.metrics.IncVerification("forbidden")
		return false, ErrNotOracle
	}
	if user.IsZero() {
		return false, source.ErrZeroAddress
	}
	if chainID == 0 {
		return false, ErrInvalidChain
	}
	tokenAddress = strings.TrimSpace(tokenAddress)
	if tokenAddress == "" {
		return false, ErrInvalidToken
	}
	if balance == nil || balance.Sign() < 0 {
		return false, ErrNegativeBalance
	}

	gates, err := s.gates.CrossChainGates(ctx, name)
	if err != nil {
		return false, err
	}
	gate, matched := matchGate(gates, chainID, tokenAddress)
	if !matched || !id.GTE(balance, gate.Threshold) {
		if err := s.store.Delete(ctx, name, user, chainID); err != nil {
			return false, storeErr(err)
		}
		s.metrics.IncVerification("revoked")
		s.logAudit(ctx, audit.EventVerificationRevoked,
			"name", string(name),
			"actor", oracleAddr.String(),
			"target", user.String(),
			"chain_id", chainID,
			"reason", revokeReason(matched),
		)
		return false, nil
	}

	rec := &Record{
		Name:         name,
		User:         user,
		ChainID:      chainID,
		TokenAddress: tokenAddress,
		Balance:      id.Copy(balance),
		Active:       true,
		Oracle:       oracleAddr,
		VerifiedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return false, storeErr(err)
	}
	s.metrics.IncVerification("stored")
	s.logAudit(ctx, audit.EventVerificationSubmitted,
		"name", string(name),
		"actor", oracleAddr.String(),
		"target", user.String(),
		"chain_id", chainID,
		"balance", balance.String(),
	)
	return true, nil
}

func revokeReason(matched bool) string {
	if matched {
		return "below_threshold"
	}
	return "no_matching_gate"
}

// RequestVerification publishes a request for an oracle to report caller's
// balance. The fee is kept only once the request is published.
func (s *Service) RequestVerification(ctx context.Context, caller id.Address, name names.Name, chainID uint64, tokenAddress string, fee *big.Int) (oracle.VerificationRequest, error) {
	if err := s.pause.Ensure(); err != nil {
		return oracle.VerificationRequest{}, err
	}
	if caller.IsZero() {
		return oracle.VerificationRequest{}, source.ErrZeroAddress
	}
	if chainID == 0 {
		return oracle.VerificationRequest{}, ErrInvalidChain
	}
	tokenAddress = strings.TrimSpace(tokenAddress)
	if tokenAddress == "" {
		return oracle.VerificationRequest{}, ErrInvalidToken
	}
	if !id.GTE(fee, s.fee) {
		return oracle.VerificationRequest{}, ErrInsufficientFee
	}
	gates, err := s.gates.CrossChainGates(ctx, name)
	if err != nil {
		return oracle.VerificationRequest{}, err
	}
	if _, ok := matchGate(gates, chainID, tokenAddress); !ok {
		return oracle.VerificationRequest{}, ErrNoMatchingGate
	}

	req, err := s.publisher.Publish(ctx, oracle.VerificationRequest{
		ID:           uuid.New(),
		Name:         name,
		User:         caller,
		ChainID:      chainID,
		TokenAddress: tokenAddress,
		Fee:          id.Copy(fee),
		RequestedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		var de *dErrors.Error
		if !errors.As(err, &de) {
			err = dErrors.Wrap(err, dErrors.CodeDependency, "publish verification request")
		}
		return oracle.VerificationRequest{}, err
	}

	if err := s.store.AddFees(ctx, fee); err != nil {
		return oracle.VerificationRequest{}, storeErr(err)
	}
	s.logAudit(ctx, audit.EventVerificationRequested,
		"name", string(name),
		"actor", caller.String(),
		"verification_id", req.ID.String(),
		"sequence", req.Sequence,
	)
	return req, nil
}

// CollectedFees returns the verification fees not yet withdrawn.
func (s *Service) CollectedFees(ctx context.Context) (*big.Int, error) {
	fees, err := s.store.Fees(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return fees, nil
}

// WithdrawFees pays out collected verification fees. Owner only.
func (s *Service) WithdrawFees(ctx context.Context, caller id.Address) (*big.Int, error) {
	if err := s.pause.Ensure(); err != nil {
		return nil, err
	}
	if err := s.pause.RequireOwner(caller); err != nil {
		return nil, err
	}
	amount, err := s.store.TakeFees(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	if amount.Sign() == 0 {
		return nil, source.ErrNothingToWithdraw
	}
	s.logAudit(ctx, audit.EventFeesWithdrawn, "actor", caller.String(), "amount", amount.String())
	return amount, nil
}

// Records lists the stored reports for user in club name.
func (s *Service) Records(ctx context.Context, name names.Name, user id.Address) ([]*Record, error) {
	recs, err := s.store.List(ctx, name, user)
	if err != nil {
		return nil, storeErr(err)
	}
	return recs, nil
}

// HasMembership reports whether any report is on record for user.
func (s *Service) HasMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	recs, err := s.Records(ctx, name, user)
	if err != nil {
		return false, err
	}
	return len(recs) > 0, nil
}

// HasActiveMembership requires a stored report that still satisfies one of
// the club's current cross-chain gates.
func (s *Service) HasActiveMembership(ctx context.Context, name names.Name, user id.Address) (bool, error) {
	gates, err := s.gates.CrossChainGates(ctx, name)
	if err != nil {
		return false, err
	}
	var errs []error
	for _, g := range gates {
		rec, err := s.store.Get(ctx, name, user, g.ChainID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, storeErr(err))
			continue
		}
		if rec.Satisfies(g) {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

func storeErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "verification store failure")
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	observability.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
}
