package model

import (
	"errors"
	"fmt"
)

// ErrInFlight is returned when a comparison is triggered while another
// one has not settled yet.
var ErrInFlight = errors.New("a comparison is already running")

// PreconditionError reports a comparison the current selection or filters
// cannot satisfy. It is always raised before any request is sent.
type PreconditionError struct {
	Mode   string // comparison mode, e.g. "pairwise"
	Need   string // human readable requirement
	Have   int    // selection size observed
	Reason string // optional detail for filter violations
}

func (e *PreconditionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Mode, e.Reason)
	}
	return fmt.Sprintf("%s needs %s, %d selected", e.Mode, e.Need, e.Have)
}

// TransportError is a network or service-level failure. Status is the HTTP
// status when a response arrived, 0 otherwise.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: service returned %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError means a response violated the documented contract.
type MalformedResponseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
