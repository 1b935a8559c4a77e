package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("product not found")

// Finding is one problem the validator found with a record.
type Finding struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// ValidationError aggregates every finding for a single record.
type ValidationError struct {
	Findings []Finding
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		parts = append(parts, f.Field+": "+f.Problem)
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

type StoreOp string

const (
	OpRead  StoreOp = "read"
	OpWrite StoreOp = "write"
)

// StoreError means the backing storage could not be read or written.
// A missing catalog file is not a StoreError.
type StoreError struct {
	Op   StoreOp
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("catalog %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func notFound(id int64) error {
	return fmt.Errorf("product %d: %w", id, ErrNotFound)
}
