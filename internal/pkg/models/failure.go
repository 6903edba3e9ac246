package models

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a book produced no data for a cycle.
type FailureKind string

const (
	FailureNetwork     FailureKind = "NETWORK"
	FailureHTTPStatus  FailureKind = "HTTP_STATUS"
	FailureRateLimited FailureKind = "RATE_LIMITED"
	FailureAuth        FailureKind = "AUTH"
	FailureMalformed   FailureKind = "MALFORMED"
)

// Retryable reports whether another attempt in the same cycle may help.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureRateLimited, FailureAuth:
		return false
	default:
		return true
	}
}

// FetchFailure is the typed error adapters and the orchestrator report per book.
type FetchFailure struct {
	Kind       FailureKind   `json:"kind"`
	Book       string        `json:"book"`
	Detail     string        `json:"detail"`
	StatusCode int           `json:"status_code,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Attempts   int           `json:"attempts"`
	Err        error         `json:"-"`
}

func (f *FetchFailure) Error() string {
	msg := fmt.Sprintf("%s fetch failure for %s", f.Kind, f.Book)
	if f.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", f.StatusCode)
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// NewFetchFailure wraps err with a failure kind.
func NewFetchFailure(kind FailureKind, book, detail string, err error) *FetchFailure {
	return &FetchFailure{Kind: kind, Book: book, Detail: detail, Err: err}
}

// AsFetchFailure returns err as a FetchFailure. Untyped errors count as network failures.
func AsFetchFailure(book string, err error) *FetchFailure {
	if err == nil {
		return nil
	}
	var ff *FetchFailure
	if errors.As(err, &ff) {
		if ff.Book == "" {
			ff.Book = book
		}
		return ff
	}
	return &FetchFailure{Kind: FailureNetwork, Book: book, Err: err}
}
