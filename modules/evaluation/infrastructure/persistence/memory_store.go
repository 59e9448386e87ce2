package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// FailureHook is consulted before each row of a SaveAtomic batch is applied; a
// non-nil error aborts the whole batch. index is the row's position in the batch.
type FailureHook func(index int, e domain.Entity) error

// MemoryStore is an in-process Store used by tests and the memory backend.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[domain.Kind]map[int64]domain.Record
	nextID map[domain.Kind]int64
	hook   FailureHook
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:   map[domain.Kind]map[int64]domain.Record{},
		nextID: map[domain.Kind]int64{},
	}
}

// SetFailureHook installs (or clears, with nil) the batch failure hook.
func (s *MemoryStore) SetFailureHook(hook FailureHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Seed inserts entities without consulting the failure hook.
func (s *MemoryStore) Seed(entities ...domain.Entity) []domain.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Entity, len(entities))
	for i, e := range entities {
		out[i] = s.put(s.rows, s.nextID, e)
	}
	return out
}

func (s *MemoryStore) FindByID(_ context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(domain.ErrUnknownKind, "find %q", kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[kind][id]
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "find %s#%d", kind, id)
	}
	return domain.Hydrate(kind, rec)
}

func (s *MemoryStore) Query(_ context.Context, kind domain.Kind, where domain.Predicate) ([]domain.Entity, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(domain.ErrUnknownKind, "query %q", kind)
	}
	if err := where.Validate(kind); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.rows[kind]))
	for id, rec := range s.rows[kind] {
		if where.Match(rec) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := domain.Hydrate(kind, s.rows[kind][id])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveAtomic applies the batch to a copy of the affected tables and swaps it in
// only when every row succeeded.
func (s *MemoryStore) SaveAtomic(_ context.Context, mutations []domain.Entity) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make(map[domain.Kind]map[int64]domain.Record, len(s.rows))
	for k, v := range s.rows {
		rows[k] = v
	}
	nextID := make(map[domain.Kind]int64, len(s.nextID))
	for k, v := range s.nextID {
		nextID[k] = v
	}
	copied := map[domain.Kind]bool{}

	out := make([]domain.Entity, len(mutations))
	for i, e := range mutations {
		if e == nil || !e.Kind().Valid() {
			return nil, errors.Wrapf(domain.ErrUnknownKind, "save row %d", i)
		}
		if s.hook != nil {
			if err := s.hook(i, e); err != nil {
				return nil, errors.Wrapf(err, "save %s row %d", e.Kind(), i)
			}
		}
		if id := e.EntityID(); id != 0 {
			if _, ok := rows[e.Kind()][id]; !ok {
				return nil, errors.Wrapf(domain.ErrNotFound, "save %s#%d", e.Kind(), id)
			}
		}
		if err := checkUnique(rows, e); err != nil {
			return nil, err
		}
		if !copied[e.Kind()] {
			table := make(map[int64]domain.Record, len(rows[e.Kind()])+1)
			for id, rec := range rows[e.Kind()] {
				table[id] = rec
			}
			rows[e.Kind()] = table
			copied[e.Kind()] = true
		}
		out[i] = s.put(rows, nextID, e)
	}

	s.rows = rows
	s.nextID = nextID
	return out, nil
}

// checkUnique mirrors the unique (evaluation_id, criteria_id) constraint the
// PostgreSQL and MongoDB adapters carry for scores.
func checkUnique(rows map[domain.Kind]map[int64]domain.Record, e domain.Entity) error {
	score, ok := e.(domain.EvaluationScore)
	if !ok {
		return nil
	}
	for id, rec := range rows[domain.KindEvaluationScore] {
		if id == score.ID {
			continue
		}
		evaluationID, _ := rec.Int64("evaluation_id")
		criteriaID, _ := rec.Int64("criteria_id")
		if evaluationID == score.EvaluationID && criteriaID == score.CriteriaID {
			return errors.Wrapf(domain.ErrConflict, "save %s: evaluation %d already has score #%d for criteria %d",
				domain.KindEvaluationScore, score.EvaluationID, id, score.CriteriaID)
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, kind domain.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[kind][id]; !ok {
		return errors.Wrapf(domain.ErrNotFound, "delete %s#%d", kind, id)
	}
	table := make(map[int64]domain.Record, len(s.rows[kind]))
	for k, v := range s.rows[kind] {
		if k != id {
			table[k] = v
		}
	}
	s.rows[kind] = table
	return nil
}

// Count returns the number of rows of kind matching where.
func (s *MemoryStore) Count(kind domain.Kind, where domain.Predicate) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.rows[kind] {
		if where.Match(rec) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) put(rows map[domain.Kind]map[int64]domain.Record, nextID map[domain.Kind]int64, e domain.Entity) domain.Entity {
	kind := e.Kind()
	if rows[kind] == nil {
		rows[kind] = map[int64]domain.Record{}
	}
	if e.EntityID() == 0 {
		nextID[kind]++
		e = e.WithID(nextID[kind])
	} else if e.EntityID() > nextID[kind] {
		nextID[kind] = e.EntityID()
	}
	rows[kind][e.EntityID()] = e.Values()
	return e
}
