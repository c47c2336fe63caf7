package flow

import "time"

// RetryPolicy controls how a node's Exec phase is retried when it returns
// an error. MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// Wait is the delay before each retry. It is not applied before the first
// attempt. If zero, retries happen immediately.
type RetryPolicy struct {
	MaxAttempts int
	Wait        time.Duration
}

// normalized returns the policy with MaxAttempts clamped to at least 1
// and negative waits zeroed.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	return p
}

// RetryBuilder provides a fluent way to construct RetryPolicy values.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry creates a RetryBuilder with the given maxAttempts.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) RetryBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryBuilder{
		policy: RetryPolicy{MaxAttempts: maxAttempts},
	}
}

// WithConstantBackoff configures a fixed delay between retries.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	p := r.policy
	p.Wait = delay
	return RetryBuilder{policy: p}
}

// Immediate disables any sleep between retries.
// Retries still respect MaxAttempts.
func (r RetryBuilder) Immediate() RetryBuilder {
	p := r.policy
	p.Wait = 0
	return RetryBuilder{policy: p}
}

// Policy returns the underlying RetryPolicy.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}
