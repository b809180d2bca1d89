package purge

import (
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

const (
	DefaultBaseDelay  = 500 * time.Millisecond
	DefaultMaxDelay   = 8 * time.Second
	DefaultMaxRetries = 5
)

// Policy decides which delete errors are transient rate limits worth
// retrying and how long to pause between attempts. Only rate limits are
// retried; auth failures, missing versions and network errors cannot
// succeed on retry and fail fast instead.
type Policy struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int

	// jitter returns a value in [0.0, 1.0); replaceable in tests
	jitter func() float64
}

func NewPolicy() *Policy {
	return &Policy{
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxRetries: DefaultMaxRetries,
		jitter:     rand.Float64,
	}
}

// Provider codes that mean "slow down". B2 reports too_many_requests,
// AWS-style endpoints report TooManyRequests or SlowDown.
var rateLimitCodes = map[string]struct{}{
	"too_many_requests":   {},
	"toomanyrequests":     {},
	"rate_limit_exceeded": {},
	"ratelimitexceeded":   {},
	"slowdown":            {},
}

// IsRateLimited classifies err as a transient rate-limit response.
// Checks, in order: the HTTP status code, the provider error code, and as
// a last resort a substring match on the error text.
func (p *Policy) IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusTooManyRequests {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := rateLimitCodes[strings.ToLower(apiErr.ErrorCode())]; ok {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429")
}

// Backoff returns the pause before retry number attempt (zero-indexed):
// exponential growth capped at MaxDelay, multiplied by a random factor in
// [0.8, 1.2] so concurrent workers do not retry in lockstep.
func (p *Policy) Backoff(attempt int) time.Duration {
	delay := p.MaxDelay
	// Guard the shift: beyond 30 doublings the cap applies anyway.
	if attempt < 31 {
		if d := p.BaseDelay << uint(attempt); d > 0 && d < p.MaxDelay {
			delay = d
		}
	}

	factor := 0.8 + 0.4*p.jitter()
	return time.Duration(float64(delay) * factor)
}
