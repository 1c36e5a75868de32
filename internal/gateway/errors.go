package gateway

import "fmt"

// Failure reasons carried by Error. Callers use these to distinguish
// "cannot determine" (timeout, remote fault) from "determined invalid".
const (
	ReasonTimeout   = "timeout"
	ReasonAuth      = "auth"
	ReasonNotFound  = "not_found"
	ReasonMalformed = "malformed"
	ReasonRemote    = "remote"
)

// Error describes a failed call to the payment gateway.
type Error struct {
	Reason string
	Status int
	Op     string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("gateway: %s: %s (status %d)", e.Op, e.Reason, e.Status)
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
