package crosschain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	id "clubdomains/pkg/domain"
	dErrors "clubdomains/pkg/domain-errors"
	"clubdomains/pkg/names"
	"clubdomains/pkg/platform/sentinel"
)

const (
	keyPrefix  = "clubdomains:crosschain:"
	oraclesKey = keyPrefix + "oracles"
	feesKey    = keyPrefix + "fees"

	feeRetries = 16
)

// RedisStore keeps one hash per (club, user) with a field per chain id. The
// oracle allow-list is a set and collected fees a decimal string.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func recordsKey(name names.Name, user id.Address) string {
	return keyPrefix + string(name) + ":" + user.String()
}

func chainField(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}

func (s *RedisStore) Get(ctx context.Context, name names.Name, user id.Address, chainID uint64) (*Record, error) {
	data, err := s.client.HGet(ctx, recordsKey(name, user), chainField(chainID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return decodeRecord(data)
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.HSet(ctx, recordsKey(rec.Name, rec.User), chainField(rec.ChainID), data).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, name names.Name, user id.Address, chainID uint64) error {
	if err := s.client.HDel(ctx, recordsKey(name, user), chainField(chainID)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, name names.Name, user id.Address) ([]*Record, error) {
	fields, err := s.client.HGetAll(ctx, recordsKey(name, user)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]*Record, 0, len(fields))
	for _, raw := range fields {
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out, nil
}

func (s *RedisStore) AllowOracle(ctx context.Context, oracle id.Address) error {
	if err := s.client.SAdd(ctx, oraclesKey, oracle.String()).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) RevokeOracle(ctx context.Context, oracle id.Address) (bool, error) {
	n, err := s.client.SRem(ctx, oraclesKey, oracle.String()).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (s *RedisStore) IsOracle(ctx context.Context, oracle id.Address) (bool, error) {
	ok, err := s.client.SIsMember(ctx, oraclesKey, oracle.String()).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

// AddFees adds amount under WATCH since the total can exceed INCRBY's range.
func (s *RedisStore) AddFees(ctx context.Context, amount *big.Int) error {
	add := func(tx *redis.Tx) error {
		current, err := readAmount(tx.Get(ctx, feesKey))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, feesKey, id.Add(current, amount).String(), 0)
			return nil
		})
		return err
	}
	for range feeRetries {
		err := s.client.Watch(ctx, add, feesKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return unavailable(err)
		}
		return nil
	}
	return unavailable(redis.TxFailedErr)
}

func (s *RedisStore) Fees(ctx context.Context) (*big.Int, error) {
	out, err := readAmount(s.client.Get(ctx, feesKey))
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func (s *RedisStore) TakeFees(ctx context.Context) (*big.Int, error) {
	out, err := readAmount(s.client.GetDel(ctx, feesKey))
	if err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func readAmount(cmd *redis.StringCmd) (*big.Int, error) {
	raw, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return id.Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("decode fees %q", raw)
	}
	return v, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func unavailable(err error) error {
	return dErrors.Wrap(err, dErrors.CodeDependency, "verification cache unavailable")
}
