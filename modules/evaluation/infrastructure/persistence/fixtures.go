package persistence

import (
	"io"
	"os"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// Fixtures is a YAML document keyed by kind (or its table/resource alias), each
// holding a list of rows keyed by column name.
type Fixtures map[string][]map[string]any

// LoadFixtureFile reads fixtures from path.
func LoadFixtureFile(path string) ([]domain.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open fixtures")
	}
	defer f.Close()
	return LoadFixtures(f)
}

// LoadFixtures decodes fixtures and hydrates them in dependency order.
func LoadFixtures(r io.Reader) ([]domain.Entity, error) {
	var doc Fixtures
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode fixtures")
	}

	byKind := map[domain.Kind][]map[string]any{}
	for key, rows := range doc {
		kind, err := domain.ParseKind(key)
		if err != nil {
			return nil, err
		}
		byKind[kind] = append(byKind[kind], rows...)
	}

	var out []domain.Entity
	for _, kind := range domain.Kinds() {
		for i, row := range byKind[kind] {
			rec, err := fixtureRecord(kind, row)
			if err != nil {
				return nil, errors.Wrapf(err, "%s row %d", kind, i)
			}
			e, err := domain.Hydrate(kind, rec)
			if err != nil {
				return nil, errors.Wrapf(err, "%s row %d", kind, i)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// fixtureRecord rejects unknown columns and parses time columns written as strings.
func fixtureRecord(kind domain.Kind, row map[string]any) (domain.Record, error) {
	rec := make(domain.Record, len(row))
	for name, v := range row {
		col, ok := kind.Column(name)
		if !ok {
			return nil, errors.Errorf("unknown column %q", name)
		}
		if s, isString := v.(string); isString && (col.Type == domain.ColumnTime || col.Type == domain.ColumnNullableTime) {
			t, err := parseFixtureTime(s)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", name)
			}
			v = t
		}
		rec[name] = v
	}
	return rec, nil
}

func parseFixtureTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
