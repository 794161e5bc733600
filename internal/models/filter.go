package models

import (
	"errors"
	"fmt"
	"strings"
)

// FilterAll is the query-string value that disables a status or priority filter.
const FilterAll = "all"

var (
	ErrInvalidStatusFilter   = errors.New("invalid status filter")
	ErrInvalidPriorityFilter = errors.New("invalid priority filter")
)

// Match is either Any (no constraint) or Equals(value).
// The zero value is Any.
type Match[T ~string] struct {
	value T
	set   bool
}

// Any returns a Match that places no constraint on the field
func Any[T ~string]() Match[T] {
	return Match[T]{}
}

// Equals returns a Match constraining the field to v
func Equals[T ~string](v T) Match[T] {
	return Match[T]{value: v, set: true}
}

// Value returns the constrained value and whether there is one
func (m Match[T]) Value() (T, bool) {
	return m.value, m.set
}

// IsAny reports whether m places no constraint
func (m Match[T]) IsAny() bool {
	return !m.set
}

// String renders m in its query-string form
func (m Match[T]) String() string {
	if !m.set {
		return FilterAll
	}
	return string(m.value)
}

// TaskFilter narrows a task listing. The zero value matches every task.
type TaskFilter struct {
	Search   string
	Status   Match[TaskStatus]
	Priority Match[TaskPriority]
}

// NormalizedSearch returns the trimmed search term
func (f TaskFilter) NormalizedSearch() string {
	return strings.TrimSpace(f.Search)
}

// ParseStatusFilter converts a query-string value into a status Match.
// Empty and "all" both mean no constraint.
func ParseStatusFilter(raw string) (Match[TaskStatus], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == FilterAll {
		return Any[TaskStatus](), nil
	}
	status := TaskStatus(raw)
	if !status.Valid() {
		return Match[TaskStatus]{}, fmt.Errorf("%w: %q", ErrInvalidStatusFilter, raw)
	}
	return Equals(status), nil
}

// ParsePriorityFilter converts a query-string value into a priority Match.
// Empty and "all" both mean no constraint.
func ParsePriorityFilter(raw string) (Match[TaskPriority], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == FilterAll {
		return Any[TaskPriority](), nil
	}
	priority := TaskPriority(raw)
	if !priority.Valid() {
		return Match[TaskPriority]{}, fmt.Errorf("%w: %q", ErrInvalidPriorityFilter, raw)
	}
	return Equals(priority), nil
}
