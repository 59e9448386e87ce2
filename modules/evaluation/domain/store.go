package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("entity not found")
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrConflict marks a write rejected by a uniqueness constraint, such as a
	// second score for the same (evaluation, criteria) pair.
	ErrConflict = errors.New("unique constraint violated")
)

// Store is the persistence contract the evaluation core consumes.
type Store interface {
	// FindByID returns ErrNotFound when no row exists.
	FindByID(ctx context.Context, kind Kind, id int64) (Entity, error)
	// Query returns matching rows ordered by id.
	Query(ctx context.Context, kind Kind, where Predicate) ([]Entity, error)
	// SaveAtomic writes every mutation in one unit of work. Entities with id 0 are
	// inserted; the returned slice carries the assigned ids in input order.
	SaveAtomic(ctx context.Context, mutations []Entity) ([]Entity, error)
	// Delete physically removes a row.
	Delete(ctx context.Context, kind Kind, id int64) error
}

// FindAs loads one entity and asserts its concrete type.
func FindAs[T Entity](ctx context.Context, s Store, kind Kind, id int64) (T, error) {
	var zero T
	e, err := s.FindByID(ctx, kind, id)
	if err != nil {
		return zero, err
	}
	t, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("find %s#%d: unexpected type %T", kind, id, e)
	}
	return t, nil
}

// QueryAs runs Query and asserts every row's concrete type.
func QueryAs[T Entity](ctx context.Context, s Store, kind Kind, where Predicate) ([]T, error) {
	rows, err := s.Query(ctx, kind, where)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(rows))
	for _, e := range rows {
		t, ok := e.(T)
		if !ok {
			return nil, fmt.Errorf("query %s: unexpected type %T", kind, e)
		}
		out = append(out, t)
	}
	return out, nil
}

// ActiveOnly is the predicate selecting rows with active = true.
func ActiveOnly() Predicate {
	return Eq("active", true)
}

// IDs collects entity ids.
func IDs[T Entity](rows []T) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.EntityID()
	}
	return out
}
