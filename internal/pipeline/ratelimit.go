package pipeline

import (
	"context"

	"github.com/cockroachdb/tokenbucket"
)

// TokenBucketLimiter adapts cockroachdb/tokenbucket.TokenBucket to the
// pipeline.RateLimiter interface, so ImportOptions.WriteRateLimit can
// throttle import: each block-builder worker waits on the limiter for its
// batch's record count before building the block.
type TokenBucketLimiter struct {
	tb tokenbucket.TokenBucket
}

// NewTokenBucketLimiter returns a limiter permitting up to
// recordsPerSecond records of throughput, with a burst allowance of
// burstRecords.
func NewTokenBucketLimiter(recordsPerSecond, burstRecords float64) *TokenBucketLimiter {
	l := &TokenBucketLimiter{}
	l.tb.Init(tokenbucket.TokensPerSecond(recordsPerSecond), tokenbucket.Tokens(burstRecords))
	return l
}

// Wait blocks until recordCount tokens are available or ctx is done.
func (l *TokenBucketLimiter) Wait(ctx context.Context, recordCount int) error {
	return l.tb.Wait(ctx, tokenbucket.Tokens(recordCount))
}
