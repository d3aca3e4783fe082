package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/circuit"
	"clubdomains/pkg/testutil"
)

type flakyPublisher struct {
	err   error
	calls int
}

func (p *flakyPublisher) Publish(_ context.Context, req VerificationRequest) (VerificationRequest, error) {
	p.calls++
	if p.err != nil {
		return VerificationRequest{}, p.err
	}
	req.Sequence = 1000 + uint64(p.calls)
	return req, nil
}

type submission struct {
	oracle, user id.Address
	name         names.Name
	chainID      uint64
	token        string
	balance      *big.Int
}

type recordingSubmitter struct {
	calls  []submission
	stored bool
	err    error
}

func (s *recordingSubmitter) SubmitVerification(_ context.Context, oracle, user id.Address, name names.Name, chainID uint64, token string, balance *big.Int) (bool, error) {
	s.calls = append(s.calls, submission{oracle, user, name, chainID, token, balance})
	return s.stored, s.err
}

func request(name names.Name) VerificationRequest {
	return VerificationRequest{ID: uuid.New(), Name: name, User: testutil.Addr(0x0A), ChainID: 1, TokenAddress: "0x1", Fee: big.NewInt(10)}
}

func TestLog(t *testing.T) {
	ctx := context.Background()
	log := NewLog()
	for _, name := range []names.Name{"a", "b", "c"} {
		_, err := log.Publish(ctx, request(name))
		require.NoError(t, err)
	}

	t.Run("sequence is the log position", func(t *testing.T) {
		all := log.Since(0, 0)
		require.Len(t, all, 3)
		for i, req := range all {
			assert.Equal(t, uint64(i+1), req.Sequence)
		}
	})

	t.Run("since skips seen requests and honours limit", func(t *testing.T) {
		got := log.Since(1, 1)
		require.Len(t, got, 1)
		assert.Equal(t, names.Name("b"), got[0].Name)
		assert.Empty(t, log.Since(3, 10))
	})
}

func TestFallbackPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy primary is used", func(t *testing.T) {
		primary := &flakyPublisher{}
		fallback := NewLog()
		p, err := NewFallbackPublisher(primary, fallback, circuit.New("bus", circuit.WithFailureThreshold(2)))
		require.NoError(t, err)

		req, err := p.Publish(ctx, request("a"))
		require.NoError(t, err)
		assert.Equal(t, uint64(1001), req.Sequence)
		assert.Zero(t, fallback.Len())
	})

	t.Run("failures below threshold surface as dependency errors", func(t *testing.T) {
		primary := &flakyPublisher{err: errors.New("broker down")}
		p, err := NewFallbackPublisher(primary, NewLog(), circuit.New("bus", circuit.WithFailureThreshold(2)))
		require.NoError(t, err)

		_, err = p.Publish(ctx, request("a"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDependency))
	})

	t.Run("open circuit diverts to the fallback log and recovers", func(t *testing.T) {
		primary := &flakyPublisher{err: errors.New("broker down")}
		fallback := NewLog()
		breaker := circuit.New("bus", circuit.WithFailureThreshold(2))
		p, err := NewFallbackPublisher(primary, fallback, breaker)
		require.NoError(t, err)

		_, _ = p.Publish(ctx, request("a"))
		req, err := p.Publish(ctx, request("b"))
		require.NoError(t, err)
		assert.Equal(t, circuit.StateOpen, breaker.State())
		assert.Equal(t, uint64(1), req.Sequence)
		assert.Equal(t, 1, fallback.Len())

		primary.err = nil
		_, err = p.Publish(ctx, request("c"))
		require.NoError(t, err)
		assert.Equal(t, circuit.StateClosed, breaker.State())
		assert.Equal(t, 1, fallback.Len())
	})
}

func TestFulfillerHandle(t *testing.T) {
	ctx := context.Background()
	oracleAddr := testutil.Addr(0x0C)
	user := testutil.Addr(0x0A)

	encode := func(r VerificationResult) []byte {
		data, err := json.Marshal(r)
		require.NoError(t, err)
		return data
	}
	valid := VerificationResult{RequestID: uuid.New(), Name: "alice", User: user, ChainID: 1, TokenAddress: "0x1", Balance: big.NewInt(5)}

	t.Run("valid result is submitted as the oracle", func(t *testing.T) {
		sub := &recordingSubmitter{stored: true}
		f, err := NewFulfiller(nil, sub, oracleAddr)
		require.NoError(t, err)

		assert.Equal(t, "stored", f.Handle(ctx, nil, encode(valid)))
		require.Len(t, sub.calls, 1)
		assert.Equal(t, oracleAddr, sub.calls[0].oracle)
		assert.Equal(t, user, sub.calls[0].user)
		assert.Equal(t, int64(5), sub.calls[0].balance.Int64())
	})

	t.Run("bad messages are skipped", func(t *testing.T) {
		sub := &recordingSubmitter{}
		f, err := NewFulfiller(nil, sub, oracleAddr)
		require.NoError(t, err)

		assert.Equal(t, "skipped", f.Handle(ctx, []byte("k"), []byte("{not json")))
		missing := valid
		missing.Balance = nil
		assert.Equal(t, "skipped", f.Handle(ctx, nil, encode(missing)))
		assert.Empty(t, sub.calls)
	})

	t.Run("rejected write-back is reported", func(t *testing.T) {
		sub := &recordingSubmitter{err: errors.New("not an oracle")}
		f, err := NewFulfiller(nil, sub, oracleAddr)
		require.NoError(t, err)
		assert.Equal(t, "error", f.Handle(ctx, nil, encode(valid)))
	})

	t.Run("zero oracle identity is refused", func(t *testing.T) {
		_, err := NewFulfiller(nil, &recordingSubmitter{}, id.ZeroAddress)
		assert.Error(t, err)
	})
}
