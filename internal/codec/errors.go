package codec

import (
	"errors"
	"fmt"
	"strings"
)

// DecodeError reports why a dynamic value could not be turned into a
// domain object. Path is the dotted location of the offending field
// ("items[2].id"); it is empty when the value itself has the wrong shape.
type DecodeError struct {
	Type   string
	Path   string
	Reason string
}

// Common reasons.
const (
	ReasonMissing  = "missing required field"
	ReasonNotMap   = "expected map"
	ReasonNotList  = "expected list"
	ReasonNotInt   = "expected integral number"
	ReasonBadValue = "invalid value"
)

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("decode %s: %s: %s", e.Type, e.Path, e.Reason)
}

// IsDecodeError reports whether err is, or wraps, a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Errorf builds a DecodeError for typ at path.
func Errorf(typ, path, format string, args ...any) *DecodeError {
	return &DecodeError{Type: typ, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// WithPath prefixes the path of a nested DecodeError with segment. Other
// errors are wrapped into a DecodeError at segment.
func WithPath(typ, segment string, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		return &DecodeError{Type: typ, Path: segment, Reason: err.Error()}
	}
	out := *de
	out.Type = typ
	out.Path = joinPath(segment, de.Path)
	return &out
}

func joinPath(prefix, rest string) string {
	switch {
	case prefix == "":
		return rest
	case rest == "":
		return prefix
	case strings.HasPrefix(rest, "["):
		return prefix + rest
	default:
		return prefix + "." + rest
	}
}
