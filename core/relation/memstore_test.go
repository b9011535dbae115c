package relation_test

import (
	"context"
	"errors"
	"fmt"

	"relsync/core/relation"
	"relsync/core/utils"
)

// testKind is an entity kind held by memStore.
type testKind struct {
	name     string
	required []string
}

func (k *testKind) Name() string       { return k.name }
func (k *testKind) PrimaryKey() string { return "id" }

func (k *testKind) New(attrs map[string]any) relation.Entity {
	return &testEntity{kind: k, attrs: clone(attrs), isNew: true}
}

// testEntity is a map-backed entity that collects owner errors.
type testEntity struct {
	kind   *testKind
	attrs  map[string]any
	isNew  bool
	errors map[string][]string
}

func (e *testEntity) Kind() string               { return e.kind.name }
func (e *testEntity) PrimaryKeyField() string    { return "id" }
func (e *testEntity) PrimaryKey() any            { return e.attrs["id"] }
func (e *testEntity) IsNewRecord() bool          { return e.isNew }
func (e *testEntity) Attributes() map[string]any { return clone(e.attrs) }
func (e *testEntity) Get(name string) any        { return e.attrs[name] }
func (e *testEntity) Set(name string, value any) { e.attrs[name] = value }

func (e *testEntity) Validate() relation.FieldErrors {
	errs := relation.FieldErrors{}
	for _, col := range e.kind.required {
		if v := e.attrs[col]; v == nil || v == "" {
			errs[col] = append(errs[col], "cannot be blank.")
		}
	}
	return errs
}

func (e *testEntity) AddError(attribute string, messages ...string) {
	if e.errors == nil {
		e.errors = make(map[string][]string)
	}
	e.errors[attribute] = append(e.errors[attribute], messages...)
}

// memStore is an in-memory relation.Storage and relation.Tx. Rollback
// restores the state captured by begin.
type memStore struct {
	tables     map[string][]map[string]any
	snapshot   map[string][]map[string]any
	nextID     int
	fail       map[string]error
	writes     []string
	rolledBack int
}

func newMemStore() *memStore {
	return &memStore{
		tables: make(map[string][]map[string]any),
		nextID: 1000,
		fail:   make(map[string]error),
	}
}

func (s *memStore) seed(table string, rows ...map[string]any) {
	for _, row := range rows {
		s.tables[table] = append(s.tables[table], clone(row))
	}
}

// begin snapshots the state and clears the write log.
func (s *memStore) begin() {
	s.snapshot = cloneTables(s.tables)
	s.writes = nil
}

func (s *memStore) Rollback() error {
	s.rolledBack++
	s.tables = cloneTables(s.snapshot)
	return nil
}

func (s *memStore) rows(table string) []map[string]any {
	return s.tables[table]
}

func (s *memStore) load(kind *testKind, id any) *testEntity {
	for _, row := range s.tables[kind.name] {
		if utils.LooseEqual(row["id"], id) {
			return &testEntity{kind: kind, attrs: clone(row)}
		}
	}
	return nil
}

func (s *memStore) check(op, name string) error {
	if err, ok := s.fail[op+":"+name]; ok {
		return err
	}
	return nil
}

func (s *memStore) Find(_ context.Context, kind relation.EntityKind, filter relation.Filter) ([]relation.Entity, error) {
	if err := s.check("find", kind.Name()); err != nil {
		return nil, err
	}
	k, ok := kind.(*testKind)
	if !ok {
		return nil, fmt.Errorf("unsupported kind %T", kind)
	}
	var out []relation.Entity
	for _, row := range s.tables[k.name] {
		if matches(row, filter) {
			out = append(out, &testEntity{kind: k, attrs: clone(row)})
		}
	}
	return out, nil
}

func (s *memStore) Count(_ context.Context, kind relation.EntityKind, filter relation.Filter) (int64, error) {
	if err := s.check("count", kind.Name()); err != nil {
		return 0, err
	}
	var n int64
	for _, row := range s.tables[kind.Name()] {
		if matches(row, filter) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Save(_ context.Context, e relation.Entity) error {
	if err := s.check("save", e.Kind()); err != nil {
		return err
	}
	te := e.(*testEntity)
	s.writes = append(s.writes, "save:"+te.Kind())
	if te.isNew {
		s.nextID++
		te.attrs["id"] = s.nextID
		s.tables[te.Kind()] = append(s.tables[te.Kind()], clone(te.attrs))
		te.isNew = false
		return nil
	}
	for i, row := range s.tables[te.Kind()] {
		if utils.LooseEqual(row["id"], te.PrimaryKey()) {
			s.tables[te.Kind()][i] = clone(te.attrs)
			return nil
		}
	}
	return fmt.Errorf("%s %v not found", te.Kind(), te.PrimaryKey())
}

func (s *memStore) Delete(_ context.Context, e relation.Entity) error {
	if err := s.check("delete", e.Kind()); err != nil {
		return err
	}
	s.writes = append(s.writes, "delete:"+e.Kind())
	rows := s.tables[e.Kind()]
	for i, row := range rows {
		if utils.LooseEqual(row["id"], e.PrimaryKey()) {
			s.tables[e.Kind()] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s %v not found", e.Kind(), e.PrimaryKey())
}

func (s *memStore) FindRows(_ context.Context, table string, filter relation.Filter) ([]relation.Row, error) {
	if err := s.check("find", table); err != nil {
		return nil, err
	}
	var out []relation.Row
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			out = append(out, relation.Row(clone(row)))
		}
	}
	return out, nil
}

func (s *memStore) InsertRow(_ context.Context, table string, row relation.Row) error {
	if err := s.check("insert_row", table); err != nil {
		return err
	}
	s.writes = append(s.writes, "insert_row:"+table)
	s.tables[table] = append(s.tables[table], clone(row))
	return nil
}

func (s *memStore) DeleteRows(_ context.Context, table string, filter relation.Filter) error {
	if err := s.check("delete_rows", table); err != nil {
		return err
	}
	if len(filter) == 0 {
		return errors.New("empty filter")
	}
	s.writes = append(s.writes, "delete_rows:"+table)
	var kept []map[string]any
	for _, row := range s.tables[table] {
		if !matches(row, filter) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	return nil
}

func matches(row map[string]any, filter relation.Filter) bool {
	for col, want := range filter {
		if set, ok := want.([]any); ok {
			found := false
			for _, v := range set {
				if utils.LooseEqual(row[col], v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !utils.LooseEqual(row[col], want) {
			return false
		}
	}
	return true
}

func clone(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTables(in map[string][]map[string]any) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(in))
	for table, rows := range in {
		for _, row := range rows {
			out[table] = append(out[table], clone(row))
		}
	}
	return out
}
