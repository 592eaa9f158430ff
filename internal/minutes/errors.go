package minutes

import (
	"errors"
	"fmt"
)

var (
	ErrSectionNotFound   = errors.New("section not found")
	ErrNotEnoughTOPs     = errors.New("not enough TOPs")
	ErrAmbiguousBoundary = errors.New("ambiguous agenda boundary")
	ErrMalformedDate     = errors.New("malformed date")
)

// ErrorKind classifies a ParseError
type ErrorKind int

const (
	KindSectionNotFound ErrorKind = iota
	KindNotEnoughTOPs
	KindAmbiguousBoundary
	KindMalformedDate
)

// String returns a string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindSectionNotFound:
		return "SECTION_NOT_FOUND"
	case KindNotEnoughTOPs:
		return "NOT_ENOUGH_TOPS"
	case KindAmbiguousBoundary:
		return "AMBIGUOUS_BOUNDARY"
	case KindMalformedDate:
		return "MALFORMED_DATE"
	default:
		return "UNKNOWN"
	}
}

// ParseError describes a stage that could not find its target.
// It is always recovered locally and never escapes Build or Parse.
type ParseError struct {
	Kind    ErrorKind
	Section string
	Detail  string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Section, e.Detail)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Section)
}

// Unwrap exposes the sentinel errors matching the kind. An ambiguous
// boundary also counts as "not enough TOPs" for callers of ExtractAgenda.
func (e *ParseError) Unwrap() []error {
	switch e.Kind {
	case KindSectionNotFound:
		return []error{ErrSectionNotFound}
	case KindNotEnoughTOPs:
		return []error{ErrNotEnoughTOPs}
	case KindAmbiguousBoundary:
		return []error{ErrAmbiguousBoundary, ErrNotEnoughTOPs}
	case KindMalformedDate:
		return []error{ErrMalformedDate}
	}
	return nil
}

func sectionNotFound(section, detail string) error {
	return &ParseError{Kind: KindSectionNotFound, Section: section, Detail: detail}
}
