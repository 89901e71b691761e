package circuitbreaker

import (
	"context"
	"errors"
	"net"
	"os"
)

// Error weights recorded in the sliding window. A slow store hurts callers more
// than one that fails fast, so timeouts count extra.
const (
	WeightNone    = 0.0
	WeightFailure = 1.0
	WeightTimeout = 1.5
)

// ClassifyError returns the window weight of a store call outcome. Neutral
// reports whether the call says nothing about store health (the caller gave up
// or the client was closed); neutral outcomes are neither successes nor failures.
func ClassifyError(err error) (weight float64, neutral bool) {
	switch {
	case err == nil:
		return WeightNone, false
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		return WeightNone, true
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return WeightTimeout, false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return WeightTimeout, false
	}
	return WeightFailure, false
}
