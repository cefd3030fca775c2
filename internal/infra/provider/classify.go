// Package provider wraps interchangeable AI generation backends behind a
// gateway that classifies failures and falls back only when it is safe to.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/listinggopher/listinggopher/internal/domain"
)

// Error is a classified provider failure. Classification is carried as a
// value on the error itself so the gateway never has to parse message text.
type Error struct {
	Provider string
	Status   int // HTTP status, 0 for transport-level failures
	Class    domain.FailureClass
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP status to a failure class.
// Rate limits (429) and server errors (5xx) are infrastructure; every other
// non-2xx status stems from the request itself.
func classifyStatus(status int) domain.FailureClass {
	if status == 429 || status >= 500 {
		return domain.FailureInfrastructure
	}
	return domain.FailureContent
}

// Classify resolves the failure class for any provider error.
//
// Applied in order: an explicit *Error carries its own class; cancellation,
// deadline and transport errors are infrastructure; everything else —
// unparseable output, empty output, validation failures — is content.
func Classify(err error) domain.FailureClass {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.FailureInfrastructure
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.FailureInfrastructure
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.FailureInfrastructure
	}

	return domain.FailureContent
}
