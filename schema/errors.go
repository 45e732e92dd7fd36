package schema

import (
	"errors"
	"fmt"
)

// ErrorKind classifies search failures for callers that need to react
// differently to each of them.
type ErrorKind int

const (
	KindSearch ErrorKind = iota
	KindAPI
	KindConnectionBlocked
)

func (k ErrorKind) String() string {
	switch k {
	case KindAPI:
		return "api_error"
	case KindConnectionBlocked:
		return "connection_blocked"
	default:
		return "search_error"
	}
}

// Sentinels usable with errors.Is against any *SearchError of that kind.
var (
	ErrSearch            = &SearchError{Kind: KindSearch}
	ErrAPI               = &SearchError{Kind: KindAPI}
	ErrConnectionBlocked = &SearchError{Kind: KindConnectionBlocked}
)

type SearchError struct {
	Kind    ErrorKind
	Source  string
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is matches another *SearchError by kind only.
func (e *SearchError) Is(target error) bool {
	t, ok := target.(*SearchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func NewSearchError(source, msg string, err error) *SearchError {
	return &SearchError{Kind: KindSearch, Source: source, Message: msg, Err: err}
}

func NewAPIError(source, msg string, err error) *SearchError {
	return &SearchError{Kind: KindAPI, Source: source, Message: msg, Err: err}
}

func NewConnectionBlockedError(source string, err error) *SearchError {
	return &SearchError{
		Kind:    KindConnectionBlocked,
		Source:  source,
		Message: "connection blocked",
		Err:     err,
	}
}

// KindOf reports the kind of err, KindSearch for anything that is not a
// *SearchError.
func KindOf(err error) ErrorKind {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindSearch
}

// MostSpecific picks the error a user can act on best: connection blocked
// first, then API errors, then the first generic failure.
func MostSpecific(errs []error) error {
	var best error
	bestKind := ErrorKind(-1)
	for _, err := range errs {
		if err == nil {
			continue
		}
		if k := KindOf(err); k > bestKind {
			best, bestKind = err, k
		}
	}
	if best == nil {
		return nil
	}
	var se *SearchError
	if !errors.As(best, &se) {
		return NewSearchError("", "search failed", best)
	}
	return best
}
