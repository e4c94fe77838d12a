// Package mail defines the outbound email transport boundary. The delivery
// worker treats the transport as a black box; the only contract beyond
// send-or-fail is the transient/permanent classification on errors, which
// drives the bounded retry policy.
package mail

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a send failure for retry eligibility.
type ErrorKind string

const (
	// ErrorKindTransient covers timeouts, rate limits, and connection
	// failures. Eligible for bounded retry.
	ErrorKindTransient ErrorKind = "TRANSIENT"
	// ErrorKindPermanent covers invalid addresses and rejected content.
	// Never retried.
	ErrorKindPermanent ErrorKind = "PERMANENT"
)

// TransportError wraps a send failure with its retry classification.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport (%s): %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	return &TransportError{Kind: ErrorKindTransient, Err: err}
}

// NewPermanentError wraps err as non-retryable.
func NewPermanentError(err error) error {
	return &TransportError{Kind: ErrorKindPermanent, Err: err}
}

// IsTransient reports whether err is a retryable transport failure.
// Unclassified errors count as permanent: retrying an unknown failure
// forever is worse than dropping one send.
func IsTransient(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr) && terr.Kind == ErrorKindTransient
}

// Message is one rendered email ready for dispatch.
type Message struct {
	To       string
	From     string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Transport sends rendered emails.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
