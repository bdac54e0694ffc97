package fragment

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds. Match them with errors.Is:
//
//	if errors.Is(err, fragment.ErrNotFound) {
//	    // the library has no such workflow or job
//	}
var (
	// ErrNotFound marks a fragment that does not exist in the backend.
	ErrNotFound = errors.New("fragment not found")

	// ErrDecode marks a payload that could not be turned into UTF-8 text.
	ErrDecode = errors.New("fragment could not be decoded")

	// ErrTransport marks a network or filesystem failure reaching the backend.
	ErrTransport = errors.New("fragment backend unreachable")

	// ErrTemplate marks a template parse or render failure.
	ErrTemplate = errors.New("template could not be rendered")

	// ErrConfiguration marks malformed or missing backend parameters.
	ErrConfiguration = errors.New("invalid configuration")
)

// Kind classifies an [Error].
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindDecode
	KindTransport
	KindTemplate
	KindConfiguration
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindDecode:
		return "decode"
	case KindTransport:
		return "transport"
	case KindTemplate:
		return "template"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindDecode:
		return ErrDecode
	case KindTransport:
		return ErrTransport
	case KindTemplate:
		return ErrTemplate
	case KindConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}

// Error is the failure reported by sources and the composer.
//
// Every failure, regardless of which backend produced it, surfaces as an
// *Error so callers can render one kind of message. The original cause is
// kept in Err and exposed through Unwrap.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Name is the fragment location that failed, e.g. "workflow.yml",
	// "rust/lint.yml" or a fragment name for template failures.
	Name string

	// Location identifies the backend, e.g. "repository jdno/flowcrafter".
	// Empty for template and configuration failures.
	Location string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("failed to find '%s' in %s", e.Name, e.Location)
	case KindDecode:
		return fmt.Sprintf("failed to decode '%s' from %s: %v", e.Name, e.Location, e.Err)
	case KindTransport:
		return fmt.Sprintf("failed to fetch '%s' from %s: %v", e.Name, e.Location, e.Err)
	case KindTemplate:
		return fmt.Sprintf("failed to render '%s': %v", e.Name, e.Err)
	case KindConfiguration:
		return fmt.Sprintf("failed to parse configuration: %v", e.Err)
	default:
		return fmt.Sprintf("fragment error: %v", e.Err)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NotFound returns a [KindNotFound] error for name in the given backend.
func NotFound(name, location string) *Error {
	return &Error{Kind: KindNotFound, Name: name, Location: location}
}

// DecodeFailure returns a [KindDecode] error.
func DecodeFailure(name, location string, err error) *Error {
	return &Error{Kind: KindDecode, Name: name, Location: location, Err: err}
}

// TransportFailure returns a [KindTransport] error.
func TransportFailure(name, location string, err error) *Error {
	return &Error{Kind: KindTransport, Name: name, Location: location, Err: err}
}

// TemplateFailure returns a [KindTemplate] error for the named fragment.
func TemplateFailure(name string, err error) *Error {
	return &Error{Kind: KindTemplate, Name: name, Err: err}
}

// ConfigurationFailure returns a [KindConfiguration] error with a formatted cause.
func ConfigurationFailure(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first [*Error] in err's chain, or 0 if none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
