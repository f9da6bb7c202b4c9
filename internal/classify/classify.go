// Package classify sorts an embedding-provider error into Transient,
// Permanent, or Cancelled so the batch processor and embedding service know
// whether a retry is worth attempting.
package classify

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the outcome of classifying an error.
type Kind int

const (
	// Permanent errors will not succeed on retry.
	Permanent Kind = iota
	// Transient errors may succeed if retried, possibly after a delay.
	Transient
	// Cancelled means the caller's own context ended the call.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Cancelled:
		return "cancelled"
	default:
		return "permanent"
	}
}

// transientPhrases are substrings whose presence in an error message marks
// it transient regardless of status code, case-insensitive.
var transientPhrases = []string{
	"timeout",
	"timed out",
	"rate limit",
	"throttle",
	"service unavailable",
	"connection",
}

var statusCodeRe = regexp.MustCompile(`\b([1-5]\d{2})\b`)

// Classify sorts err into a Kind. It checks context cancellation first,
// then the error's own message, then recurses once into its wrapped cause
// via errors.Unwrap before defaulting to Permanent.
func Classify(ctx context.Context, err error) Kind {
	if err == nil {
		return Permanent
	}
	if ctx != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return Cancelled
	}
	if errors.Is(err, context.Canceled) {
		return Cancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}

	if k, ok := classifyMessage(err.Error()); ok {
		return k
	}

	if inner := errors.Unwrap(err); inner != nil {
		if k, ok := classifyMessage(inner.Error()); ok {
			return k
		}
	}

	return Permanent
}

// classifyMessage inspects a single error message for status codes and
// known transient phrases. ok is false when the message carries no signal
// either way, so the caller can fall through to the next classification
// attempt.
func classifyMessage(msg string) (Kind, bool) {
	lower := strings.ToLower(msg)

	for _, phrase := range transientPhrases {
		if strings.Contains(lower, phrase) {
			return Transient, true
		}
	}

	if code, ok := extractStatusCode(msg); ok {
		switch {
		case code == 429:
			return Transient, true
		case code >= 500 && code < 600:
			return Transient, true
		case code >= 400 && code < 500:
			return Permanent, true
		}
	}

	return Permanent, false
}

func extractStatusCode(msg string) (int, bool) {
	m := statusCodeRe.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}
