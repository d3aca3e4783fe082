//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clubdomains/internal/ratelimit"
	"clubdomains/pkg/testutil/containers"
)

type RedisBucketSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	bucket *ratelimit.RedisBucket
}

func TestRedisBucketSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketSuite))
}

func (s *RedisBucketSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.bucket = ratelimit.NewRedisBucket(s.redis.Client)
}

func (s *RedisBucketSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketSuite) TestLimitWithinWindow() {
	ctx := context.Background()
	for i := range 3 {
		res, err := s.bucket.Allow(ctx, "ip:write:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.bucket.Allow(ctx, "ip:write:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.GreaterOrEqual(res.RetryAfter, 1)

	res, err = s.bucket.Allow(ctx, "ip:write:10.0.0.2", 3, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisBucketSuite) TestWindowExpires() {
	ctx := context.Background()
	res, err := s.bucket.Allow(ctx, "caller:write:x", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.bucket.Allow(ctx, "caller:write:x", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.False(res.Allowed)

	time.Sleep(300 * time.Millisecond)
	res, err = s.bucket.Allow(ctx, "caller:write:x", 1, 200*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
