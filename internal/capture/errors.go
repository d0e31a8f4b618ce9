package capture

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a capture did not produce an image
type FailureKind int

const (
	// KindNoActiveSurface means the requested view is not open or resolvable
	KindNoActiveSurface FailureKind = iota + 1
	// KindInvalidSurfaceSize means the resolved surface has no area
	KindInvalidSurfaceSize
	// KindNativeAPIUnavailable means the platform capture primitive is absent
	KindNativeAPIUnavailable
	// KindNativeAPIFailed means the primitive ran but produced nothing
	KindNativeAPIFailed
	// KindEncodingFailed means the PNG codec rejected the buffer
	KindEncodingFailed
	// KindInvalidBounds means the caller's size limits are out of range
	KindInvalidBounds
)

func (k FailureKind) String() string {
	switch k {
	case KindNoActiveSurface:
		return "NoActiveSurface"
	case KindInvalidSurfaceSize:
		return "InvalidSurfaceSize"
	case KindNativeAPIUnavailable:
		return "NativeApiUnavailable"
	case KindNativeAPIFailed:
		return "NativeApiFailed"
	case KindEncodingFailed:
		return "EncodingFailed"
	case KindInvalidBounds:
		return "InvalidBounds"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure is the structured error returned by the capture pipeline
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches any Failure of the same kind, so callers can use the sentinels below
func (f *Failure) Is(target error) bool {
	var other *Failure
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == f.Kind
}

// Sentinels for errors.Is
var (
	ErrNoActiveSurface      = &Failure{Kind: KindNoActiveSurface, Message: "no active surface"}
	ErrInvalidSurfaceSize   = &Failure{Kind: KindInvalidSurfaceSize, Message: "invalid surface size"}
	ErrNativeAPIUnavailable = &Failure{Kind: KindNativeAPIUnavailable, Message: "native capture unavailable"}
	ErrNativeAPIFailed      = &Failure{Kind: KindNativeAPIFailed, Message: "native capture failed"}
	ErrEncodingFailed       = &Failure{Kind: KindEncodingFailed, Message: "encoding failed"}
	ErrInvalidBounds        = &Failure{Kind: KindInvalidBounds, Message: "invalid bounds"}
)

func newFailure(kind FailureKind, err error, format string, args ...interface{}) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the failure kind carried by err, or 0 if err is not a Failure
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
