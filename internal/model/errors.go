package model

import (
	"fmt"
	"time"
)

// TransportError wraps a network or HTTP-layer failure so backoff logic can
// inspect the status code and any Retry-After hint.
type TransportError struct {
	StatusCode int           // zero for pure network failures
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("transport: HTTP %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("transport: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AdapterError reports a response whose shape the adapter does not recognize.
// Per-record malformation is skipped and counted instead.
type AdapterError struct {
	Source string
	Reason string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s: %s", e.Source, e.Reason)
}

// RateLimitError is returned on the manual fetch path when a request would
// violate the source's rate limit. RetryAfter tells the caller how long to
// wait; it is meant to surface in a user-visible message.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Source, e.RetryAfter.Round(time.Millisecond))
}

// PublishError wraps a notification sink failure. It never rolls back an
// admission: a posting once admitted stays admitted.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish: %v", e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
