package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/composables"
)

// PgStore implements domain.Store on PostgreSQL. Each SaveAtomic runs in one
// transaction; a transaction already stored in ctx is joined instead.
type PgStore struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

func NewPgStore(pool *pgxpool.Pool, logger *logrus.Logger) *PgStore {
	return &PgStore{pool: pool, log: logger.WithField("component", "pg_store")}
}

func (s *PgStore) withPool(ctx context.Context) context.Context {
	if _, err := composables.UsePool(ctx); err == nil {
		return ctx
	}
	return composables.WithPool(ctx, s.pool)
}

func (s *PgStore) FindByID(ctx context.Context, kind domain.Kind, id int64) (domain.Entity, error) {
	rows, err := s.Query(ctx, kind, domain.Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(domain.ErrNotFound, "find %s#%d", kind, id)
	}
	return rows[0], nil
}

func (s *PgStore) Query(ctx context.Context, kind domain.Kind, where domain.Predicate) ([]domain.Entity, error) {
	if !kind.Valid() {
		return nil, errors.Wrapf(domain.ErrUnknownKind, "query %q", kind)
	}
	whereSQL, args, err := compileSQL(kind, where, 0)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY id", columnList(kind), pgx.Identifier{kind.Table()}.Sanitize(), whereSQL)

	ctx = s.withPool(ctx)
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", kind)
	}
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		e, err := scanEntity(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "query %s", kind)
	}
	return out, nil
}

func (s *PgStore) SaveAtomic(ctx context.Context, mutations []domain.Entity) ([]domain.Entity, error) {
	ctx = s.withPool(ctx)
	return composables.InTxResult(ctx, func(txCtx context.Context) ([]domain.Entity, error) {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Entity, len(mutations))
		for i, e := range mutations {
			saved, err := saveRow(txCtx, tx, e)
			if err != nil {
				return nil, errors.Wrapf(err, "save row %d", i)
			}
			out[i] = saved
		}
		s.log.WithContext(txCtx).WithField("rows", len(mutations)).Debug("atomic save committed")
		return out, nil
	})
}

func (s *PgStore) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	if !kind.Valid() {
		return errors.Wrapf(domain.ErrUnknownKind, "delete %q", kind)
	}
	ctx = s.withPool(ctx)
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", pgx.Identifier{kind.Table()}.Sanitize()), id)
	if err != nil {
		return errors.Wrapf(err, "delete %s#%d", kind, id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "delete %s#%d", kind, id)
	}
	return nil
}

func saveRow(ctx context.Context, tx composables.Tx, e domain.Entity) (domain.Entity, error) {
	if e == nil || !e.Kind().Valid() {
		return nil, domain.ErrUnknownKind
	}
	kind := e.Kind()
	table := pgx.Identifier{kind.Table()}.Sanitize()
	values := e.Values()

	var cols []string
	var args []any
	for _, c := range kind.Columns() {
		if c.Name == "id" {
			continue
		}
		cols = append(cols, pgx.Identifier{c.Name}.Sanitize())
		args = append(args, encodeValue(values[c.Name]))
	}

	if e.EntityID() == 0 {
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
		sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
		var id int64
		if err := tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
			return nil, wrapPgError(err, "insert %s", kind)
		}
		return e.WithID(id), nil
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	args = append(args, e.EntityID())
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return nil, wrapPgError(err, "update %s#%d", kind, e.EntityID())
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.Wrapf(domain.ErrNotFound, "update %s#%d", kind, e.EntityID())
	}
	return e, nil
}

// wrapPgError reports unique violations as domain.ErrConflict.
func wrapPgError(err error, format string, args ...any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return errors.Wrapf(domain.ErrConflict, "%s (%s)", fmt.Sprintf(format, args...), pgErr.ConstraintName)
	}
	return errors.Wrapf(err, format, args...)
}

func columnList(kind domain.Kind) string {
	cols := kind.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = pgx.Identifier{c.Name}.Sanitize()
	}
	return strings.Join(names, ", ")
}

func scanEntity(kind domain.Kind, rows pgx.Rows) (domain.Entity, error) {
	cols := kind.Columns()
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch c.Type {
		case domain.ColumnInt:
			dest[i] = new(int64)
		case domain.ColumnString:
			dest[i] = new(string)
		case domain.ColumnBool:
			dest[i] = new(bool)
		case domain.ColumnDecimal:
			dest[i] = new(pgtype.Numeric)
		case domain.ColumnTime:
			dest[i] = new(time.Time)
		case domain.ColumnNullableTime:
			dest[i] = new(pgtype.Timestamptz)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, errors.Wrapf(err, "scan %s", kind)
	}

	rec := make(domain.Record, len(cols))
	for i, c := range cols {
		switch v := dest[i].(type) {
		case *int64:
			rec[c.Name] = *v
		case *string:
			rec[c.Name] = *v
		case *bool:
			rec[c.Name] = *v
		case *pgtype.Numeric:
			rec[c.Name] = numericToDecimal(*v)
		case *time.Time:
			rec[c.Name] = *v
		case *pgtype.Timestamptz:
			if v.Valid {
				rec[c.Name] = v.Time
			} else {
				rec[c.Name] = nil
			}
		}
	}
	return domain.Hydrate(kind, rec)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func encodeValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: t.Coefficient(), Exp: t.Exponent(), Valid: true}
	default:
		return v
	}
}
