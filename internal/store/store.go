// Package store persists simulation task records. Two implementations are
// provided: an in-memory map for single-process deployments and tests, and
// a SQLite-backed store for durability across restarts.
package store

import (
	"context"
	"errors"

	"github.com/industrisk/falloutsim/internal/domain"
)

// ErrTaskNotFound is returned when a task id has no record.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore holds simulation task records keyed by id.
//
// Update applies fn to the current record and persists the returned value
// atomically with respect to other Updates of the same id. fn must not
// retain the passed task beyond the call.
type TaskStore interface {
	Put(ctx context.Context, t domain.Task) error
	Get(ctx context.Context, id string) (domain.Task, error)
	Update(ctx context.Context, id string, fn func(*domain.Task)) (domain.Task, error)

	// List returns tasks newest-first, optionally filtered by status.
	// A limit of 0 means no limit.
	List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.Task, error)

	Ping(ctx context.Context) error
	Close() error
}
