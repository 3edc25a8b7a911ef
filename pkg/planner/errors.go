package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/byland-ai/byland/pkg/domain"
)

// ValidationError reports trip parameters rejected at the boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", domain.ErrInvalidTripRequest, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidTripRequest
}

// ProducerError reports the failure of one producer. The plan as a whole fails.
type ProducerError struct {
	Producer string
	Err      error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("%s: %s: %v", domain.ErrProducerFailed, e.Producer, e.Err)
}

// Unwrap exposes both the class sentinel and the cause.
func (e *ProducerError) Unwrap() []error {
	return []error{domain.ErrProducerFailed, e.Err}
}

// Timeout reports whether the producer ran out of time.
func (e *ProducerError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// errContract marks producer output that breaks its call contract.
var errContract = errors.New("output violates producer contract")
