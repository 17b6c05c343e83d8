package call

import (
	"errors"
	"fmt"

	"github.com/roach88/aepbridge/internal/codec"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Kind classifies bridge failures.
type Kind string

const (
	// KindDecode: a required field was missing or mistyped. Raised before
	// any vendor call is made.
	KindDecode Kind = "DECODE"

	// KindVendor: the vendor SDK reported a failure. Propagated verbatim,
	// never retried.
	KindVendor Kind = "VENDOR"

	// KindLookupMiss: an id did not resolve in a registry. Call sites treat
	// this as a no-op; it only surfaces in logs and journal entries.
	KindLookupMiss Kind = "LOOKUP_MISS"

	// KindProgramming: malformed arguments from the caller (wrong arity,
	// wrong type, unknown method).
	KindProgramming Kind = "PROGRAMMING"

	// KindCanceled: a pending result was dropped by teardown or context
	// cancellation.
	KindCanceled Kind = "CANCELED"
)

// Fixed codes for failures that do not come from the vendor.
const (
	CodeDecodeFailed    = "DECODE_FAILED"
	CodeLookupMiss      = "NOT_FOUND"
	CodeBadArguments    = "BAD_ARGUMENTS"
	CodeUnknownMethod   = "UNKNOWN_METHOD"
	CodeCanceled        = "CANCELED"
	CodeUnexpectedError = "UNEXPECTED_ERROR"
)

// Error is a classified bridge failure.
type Error struct {
	Kind Kind

	// Code is the vendor's error name for KindVendor, otherwise one of the
	// fixed Code* constants.
	Code string

	Message string

	// Operation is "Module.method" of the boundary call that failed.
	Operation string

	// Details carries structured vendor payload (for example an optimize
	// error body). Optional.
	Details dyn.Map

	Err error
}

func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s %s: %s (%s)", e.Kind, e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Encode renders the error as a boundary value:
// {kind, code, message, operation?, details?}.
func (e *Error) Encode() dyn.Map {
	m := dyn.Map{
		"kind":    dyn.String(e.Kind),
		"code":    dyn.String(e.Code),
		"message": dyn.String(e.Message),
	}
	if e.Operation != "" {
		m["operation"] = dyn.String(e.Operation)
	}
	if len(e.Details) > 0 {
		m["details"] = e.Details
	}
	return m
}

// Decode wraps a decoder failure.
func Decode(op string, err error) *Error {
	return &Error{Kind: KindDecode, Code: CodeDecodeFailed, Message: err.Error(), Operation: op, Err: err}
}

// Vendor wraps a vendor-reported failure.
func Vendor(op, code, message string) *Error {
	return &Error{Kind: KindVendor, Code: code, Message: message, Operation: op}
}

// VendorDetails is Vendor with a structured payload.
func VendorDetails(op, code, message string, details dyn.Map) *Error {
	return &Error{Kind: KindVendor, Code: code, Message: message, Operation: op, Details: details}
}

// LookupMiss reports that id did not resolve.
func LookupMiss(op, id string) *Error {
	return &Error{Kind: KindLookupMiss, Code: CodeLookupMiss, Message: fmt.Sprintf("no object registered for id %q", id), Operation: op}
}

// Programming reports malformed caller input.
func Programming(op, format string, args ...any) *Error {
	return &Error{Kind: KindProgramming, Code: CodeBadArguments, Message: fmt.Sprintf(format, args...), Operation: op}
}

// Canceled reports a dropped pending result.
func Canceled(op string, cause error) *Error {
	msg := "pending call canceled"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindCanceled, Code: CodeCanceled, Message: msg, Operation: op, Err: cause}
}

// Classify converts any error into an *Error. Decode errors keep their
// kind; unknown errors become vendor failures with CodeUnexpectedError.
// The operation is filled in when the error does not carry one.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		if ce.Operation != "" || op == "" {
			return ce
		}
		out := *ce
		out.Operation = op
		return &out
	}
	if codec.IsDecodeError(err) {
		return Decode(op, err)
	}
	return &Error{
		Kind:      KindVendor,
		Code:      CodeUnexpectedError,
		Message:   fmt.Sprintf("%s returned an unexpected error: %s", op, err),
		Operation: op,
		Err:       err,
	}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if codec.IsDecodeError(err) {
		return KindDecode
	}
	return ""
}

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool { return KindOf(err) == KindDecode }

// IsVendor reports whether err is a vendor failure.
func IsVendor(err error) bool { return KindOf(err) == KindVendor }

// IsLookupMiss reports whether err is a registry miss.
func IsLookupMiss(err error) bool { return KindOf(err) == KindLookupMiss }

// IsProgramming reports whether err is a caller error.
func IsProgramming(err error) bool { return KindOf(err) == KindProgramming }

// IsCanceled reports whether err is a dropped pending call.
func IsCanceled(err error) bool { return KindOf(err) == KindCanceled }
