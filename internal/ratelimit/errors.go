package ratelimit

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrDisabled         = errors.New("scheduler disabled")
	ErrRetriesExhausted = errors.New("rate limit retries exhausted")
)

// Class tells the scheduler what to do with a failed call.
type Class int

const (
	// ClassFatal errors propagate without retry.
	ClassFatal Class = iota
	// ClassRateLimited errors are retried with backoff.
	ClassRateLimited
	// ClassUsageCap errors disable the scheduler for the rest of the process.
	ClassUsageCap
)

func (c Class) String() string {
	switch c {
	case ClassFatal:
		return "fatal"
	case ClassRateLimited:
		return "rate_limited"
	case ClassUsageCap:
		return "usage_cap"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Classifier maps a call error to a Class and, when the provider supplied
// one, the instant its limit resets.
type Classifier func(err error) (Class, time.Time)

// APIError is returned by provider clients for non-2xx responses.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	ResetAt    time.Time
	UsageCap   bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// DefaultClassifier recognises APIError status codes and the usual
// "rate limit" / "usage cap" wording in plain errors.
func DefaultClassifier(err error) (Class, time.Time) {
	if err == nil {
		return ClassFatal, time.Time{}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.UsageCap {
			return ClassUsageCap, apiErr.ResetAt
		}
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return ClassRateLimited, apiErr.ResetAt
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "usage cap"), strings.Contains(msg, "usagecapexceeded"):
		return ClassUsageCap, time.Time{}
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return ClassRateLimited, time.Time{}
	}

	return ClassFatal, time.Time{}
}
