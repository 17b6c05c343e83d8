// Package aep holds the vendor-side types shared by every extension port:
// the SDK's error value and the mapping from it to bridge errors.
package aep

import (
	"errors"
	"fmt"

	"github.com/roach88/aepbridge/internal/call"
)

// Error is a failure reported by the vendor SDK.
type Error struct {
	Code int
	Name string
}

func (e *Error) Error() string {
	return e.Name
}

// Well-known vendor errors.
var (
	ErrUnexpected              = &Error{Code: 0, Name: "general.unexpected"}
	ErrCallbackTimeout         = &Error{Code: 1, Name: "general.callback.timeout"}
	ErrCallbackNull            = &Error{Code: 2, Name: "general.callback.null"}
	ErrExtensionNotInitialized = &Error{Code: 11, Name: "general.extension.not.initialized"}
	ErrServerError             = &Error{Code: 21, Name: "general.server.error"}
	ErrNetworkError            = &Error{Code: 22, Name: "general.network.error"}
	ErrInvalidRequest          = &Error{Code: 23, Name: "general.invalid.request"}
	ErrInvalidResponse         = &Error{Code: 24, Name: "general.invalid.response"}
)

var byName = map[string]*Error{}

func init() {
	for _, e := range []*Error{
		ErrUnexpected, ErrCallbackTimeout, ErrCallbackNull, ErrExtensionNotInitialized,
		ErrServerError, ErrNetworkError, ErrInvalidRequest, ErrInvalidResponse,
	} {
		byName[e.Name] = e
	}
}

// ErrorByName returns the well-known error called name, or an error with
// that name and the unexpected code.
func ErrorByName(name string) *Error {
	if e, ok := byName[name]; ok {
		return e
	}
	return &Error{Code: ErrUnexpected.Code, Name: name}
}

// Fail converts a vendor failure into a bridge vendor error for op. The
// vendor's error name becomes the code.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *call.Error
	if errors.As(err, &ce) {
		return err
	}
	var ae *Error
	if errors.As(err, &ae) {
		return call.Vendor(op, ae.Name, fmt.Sprintf("%s returned an unexpected error: %s", op, ae.Name))
	}
	return call.Classify(op, err)
}
