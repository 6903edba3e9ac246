package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

// ErrStorage matches every *Failure via errors.Is.
var ErrStorage = errors.New("storage failure")

// Failure is returned by emitters and reporters. Callers log it; retrying is the backend's business.
type Failure struct {
	Op   string
	Rows int
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("storage %s (%d rows): %v", f.Op, f.Rows, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{ErrStorage, f.Err}
}

// ComparisonEmitter receives every comparison row of a cycle. Rows are append-only.
type ComparisonEmitter interface {
	Emit(ctx context.Context, rows []models.OddsComparison) error
}

// UnresolvedReporter receives fuzzy accepts, unresolved teams and unknown market labels.
type UnresolvedReporter interface {
	ReportUnresolved(ctx context.Context, events []models.UnresolvedEvent) error
}
