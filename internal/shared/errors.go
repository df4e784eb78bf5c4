package shared

import (
	"errors"
	"fmt"
)

// Kind classifies failures crossing component boundaries.
type Kind int

const (
	// KindUnknown marks errors that were never classified.
	KindUnknown Kind = iota
	// KindValidation indicates missing or malformed request input.
	KindValidation
	// KindStorage indicates a relational store failure.
	KindStorage
	// KindExtraction indicates the generative backend call failed.
	KindExtraction
	// KindPublish indicates the spreadsheet backend call failed.
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage"
	case KindExtraction:
		return "extraction"
	case KindPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error whose text is msg.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Err: errors.New(msg)}
}

// Storage wraps err as a KindStorage error.
func Storage(op string, err error) error {
	return wrap(KindStorage, op, err)
}

// Extraction wraps err as a KindExtraction error.
func Extraction(op string, err error) error {
	return wrap(KindExtraction, op, err)
}

// Publish wraps err as a KindPublish error.
func Publish(op string, err error) error {
	return wrap(KindPublish, op, err)
}

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
