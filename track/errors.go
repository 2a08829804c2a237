package track

import (
	"errors"
	"fmt"
)

// Kind categorizes a parse failure. The string value is a stable code that
// callers can log or map to HTTP responses.
type Kind string

const (
	KindInsufficientTrackPoints  Kind = "INSUFFICIENT_TRACK_POINTS"
	KindCorruptFile              Kind = "CORRUPT_FILE"
	KindUnsupportedFormatVersion Kind = "UNSUPPORTED_FORMAT_VERSION"
	KindUnsupportedFormat        Kind = "UNSUPPORTED_FORMAT"
	KindInvalidTimeOrdering      Kind = "INVALID_TIME_ORDERING"
	KindInputTooLarge            Kind = "INPUT_TOO_LARGE"
)

// ParseError is returned by every decoder and by the metrics engine. None of
// these failures are retryable: the same input always fails the same way.
type ParseError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches any *ParseError of the same kind, so the package sentinels work
// with errors.Is regardless of message or cause.
func (e *ParseError) Is(target error) bool {
	var other *ParseError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// UserMessage is a short explanation suitable for the person who uploaded
// the file.
func (e *ParseError) UserMessage() string {
	switch e.Kind {
	case KindInsufficientTrackPoints:
		return "file has insufficient data"
	case KindCorruptFile:
		return "file is damaged or incomplete; please re-export the file"
	case KindUnsupportedFormatVersion:
		return "file format version is not supported; please export a newer format"
	case KindUnsupportedFormat:
		return "file type is not supported; upload a GPX or FIT file"
	case KindInvalidTimeOrdering:
		return "file timestamps are out of order"
	case KindInputTooLarge:
		return "file is too large"
	default:
		return "file could not be processed"
	}
}

// Sentinels for errors.Is.
var (
	ErrInsufficientTrackPoints  = &ParseError{Kind: KindInsufficientTrackPoints, Message: "insufficient track points"}
	ErrCorruptFile              = &ParseError{Kind: KindCorruptFile, Message: "corrupt file"}
	ErrUnsupportedFormatVersion = &ParseError{Kind: KindUnsupportedFormatVersion, Message: "unsupported format version"}
	ErrUnsupportedFormat        = &ParseError{Kind: KindUnsupportedFormat, Message: "unsupported format"}
	ErrInvalidTimeOrdering      = &ParseError{Kind: KindInvalidTimeOrdering, Message: "invalid time ordering"}
	ErrInputTooLarge            = &ParseError{Kind: KindInputTooLarge, Message: "input too large"}
)

// Errorf builds a ParseError of the given kind.
func Errorf(kind Kind, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a ParseError of the given kind around cause.
func Wrap(cause error, kind Kind, message string) *ParseError {
	return &ParseError{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of the first ParseError in err's chain, or "".
func KindOf(err error) Kind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
