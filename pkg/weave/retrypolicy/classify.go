package retrypolicy

import (
	"context"
	"errors"
	"strings"
)

// Category describes how a failure should be handled.
type Category int

const (
	// CategoryTransient indicates a retry will likely help.
	// Examples: rate limits, timeouts, overloaded backends.
	CategoryTransient Category = iota

	// CategoryPermanent indicates a retry won't help.
	// Examples: authentication failures, malformed prompts, cancellation.
	CategoryPermanent
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// transientMarkers are substrings that identify transient failures in
// agent process output. Matching is case-insensitive.
var transientMarkers = []string{
	"rate limit",
	"timeout",
	"timed out",
	"overloaded",
	"connection refused",
	"connection reset",
	"temporarily unavailable",
	"503",
	"529",
}

// Classify categorizes an error for retry handling.
func Classify(err error) Category {
	if err == nil {
		return CategoryPermanent
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryPermanent
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return CategoryTransient
		}
	}
	return CategoryPermanent
}

// Retryable reports whether another attempt is worthwhile for err.
// It is the default RetryableFunc for a Policy.
func Retryable(err error) bool {
	return Classify(err) == CategoryTransient
}
