package notarize

import (
	"errors"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

func (a ErrorAction) String() string {
	if a == ActionRetry {
		return "retry"
	}
	return "fatal"
}

// Classify maps an error to the action taken by the retry executor.
// Classification is driven by the typed error hierarchy, never by message
// text. Anything unrecognized is fatal: unexpected conditions should
// surface, not spin in a retry loop.
func Classify(err error) ErrorAction {
	if err == nil {
		return ActionFatal
	}

	var infra *domain.RetryableInfraError
	if errors.As(err, &infra) {
		return ActionRetry
	}

	var timeout *domain.ConfirmationTimeoutError
	if errors.As(err, &timeout) {
		return ActionRetry
	}

	return ActionFatal
}
