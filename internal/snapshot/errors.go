package snapshot

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a publish cycle was aborted.
type FailureKind string

const (
	AggregationFailure FailureKind = "AggregationFailure"
	ComposerFailure    FailureKind = "ComposerFailure"
	Timeout            FailureKind = "Timeout"
)

// PublishError aborts a single publish cycle. The previously published
// snapshot stays current.
type PublishError struct {
	Kind FailureKind
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" when err is not a PublishError.
func KindOf(err error) FailureKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
