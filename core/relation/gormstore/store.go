package gormstore

import (
	"context"
	"errors"
	"fmt"

	"relsync/core/relation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTxDone is returned when the store's transaction was already committed or rolled back.
var ErrTxDone = errors.New("gormstore: transaction already finished")

// Store implements relation.Storage and relation.Tx on a gorm transaction.
type Store struct {
	db   *gorm.DB
	done bool
}

// New wraps an open gorm transaction.
func New(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Begin opens a transaction on db and wraps it.
func Begin(ctx context.Context, db *gorm.DB) (*Store, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return New(tx), nil
}

// DB returns the underlying transaction handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Done reports whether the transaction was committed or rolled back.
func (s *Store) Done() bool { return s.done }

// Commit commits the transaction.
func (s *Store) Commit() error {
	if s.done {
		return ErrTxDone
	}
	s.done = true
	if err := s.db.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback implements relation.Tx.
func (s *Store) Rollback() error {
	if s.done {
		return ErrTxDone
	}
	s.done = true
	if err := s.db.Rollback().Error; err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// FindByKey loads a single record of model by primary key.
func (s *Store) FindByKey(ctx context.Context, m *Model, key any) (*Record, error) {
	found, err := s.find(ctx, m, relation.Filter{m.PrimaryKey(): key})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return found[0], nil
}

// Find implements relation.Storage.
func (s *Store) Find(ctx context.Context, kind relation.EntityKind, filter relation.Filter) ([]relation.Entity, error) {
	m, err := modelOf(kind)
	if err != nil {
		return nil, err
	}
	found, err := s.find(ctx, m, filter)
	if err != nil {
		return nil, err
	}
	out := make([]relation.Entity, 0, len(found))
	for _, r := range found {
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) find(ctx context.Context, m *Model, filter relation.Filter) ([]*Record, error) {
	var rows []map[string]any
	q := s.db.WithContext(ctx).Table(m.Table)
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	if err := q.Order(m.PrimaryKey()).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", m.Table, err)
	}
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.load(row))
	}
	return out, nil
}

// Count implements relation.Storage.
func (s *Store) Count(ctx context.Context, kind relation.EntityKind, filter relation.Filter) (int64, error) {
	var n int64
	q := s.db.WithContext(ctx).Table(kind.Name())
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind.Name(), err)
	}
	return n, nil
}

// Save implements relation.Storage. New records are inserted and get their
// primary key assigned; existing records are updated by primary key.
func (s *Store) Save(ctx context.Context, e relation.Entity) error {
	r, ok := e.(*Record)
	if !ok {
		return fmt.Errorf("gormstore: unsupported entity %T", e)
	}
	m := r.model

	if !r.isNew {
		result := s.db.WithContext(ctx).
			Table(m.Table).
			Where(m.PrimaryKey()+" = ?", r.PrimaryKey()).
			Updates(r.values())
		if result.Error != nil {
			return fmt.Errorf("failed to update %s: %w", m.Table, result.Error)
		}
		return nil
	}

	values := r.values()
	key := r.PrimaryKey()
	if key == nil && m.UUIDKey {
		key = uuid.NewString()
	}
	if key != nil {
		values[m.PrimaryKey()] = key
	}

	if err := s.db.WithContext(ctx).Table(m.Table).Create(values).Error; err != nil {
		return fmt.Errorf("failed to insert into %s: %w", m.Table, err)
	}

	if key == nil {
		id, err := s.lastInsertID(ctx)
		if err != nil {
			return fmt.Errorf("failed to read key of %s: %w", m.Table, err)
		}
		key = id
	}
	r.attrs[m.PrimaryKey()] = key
	r.isNew = false
	return nil
}

// Delete implements relation.Storage.
func (s *Store) Delete(ctx context.Context, e relation.Entity) error {
	if e.IsNewRecord() {
		return fmt.Errorf("gormstore: cannot delete unsaved %s", e.Kind())
	}
	result := s.db.WithContext(ctx).
		Table(e.Kind()).
		Where(e.PrimaryKeyField()+" = ?", e.PrimaryKey()).
		Delete(nil)
	if result.Error != nil {
		return fmt.Errorf("failed to delete from %s: %w", e.Kind(), result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no rows deleted from %s for key %v", e.Kind(), e.PrimaryKey())
	}
	return nil
}

// FindRows implements relation.Storage.
func (s *Store) FindRows(ctx context.Context, table string, filter relation.Filter) ([]relation.Row, error) {
	var rows []map[string]any
	q := s.db.WithContext(ctx).Table(table)
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	out := make([]relation.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, relation.Row(row))
	}
	return out, nil
}

// InsertRow implements relation.Storage.
func (s *Store) InsertRow(ctx context.Context, table string, row relation.Row) error {
	if err := s.db.WithContext(ctx).Table(table).Create(map[string]any(row)).Error; err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// DeleteRows implements relation.Storage. An empty filter is refused.
func (s *Store) DeleteRows(ctx context.Context, table string, filter relation.Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("gormstore: refusing to delete every row of %s", table)
	}
	if err := s.db.WithContext(ctx).Table(table).Where(map[string]any(filter)).Delete(nil).Error; err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// lastInsertID reads the key generated by the last insert on this connection.
func (s *Store) lastInsertID(ctx context.Context) (int64, error) {
	var query string
	switch name := s.db.Dialector.Name(); name {
	case "mysql":
		query = "SELECT LAST_INSERT_ID()"
	case "sqlite":
		query = "SELECT last_insert_rowid()"
	default:
		return 0, fmt.Errorf("auto-increment keys are not supported on %s, use UUIDKey", name)
	}
	var id int64
	if err := s.db.WithContext(ctx).Raw(query).Scan(&id).Error; err != nil {
		return 0, err
	}
	return id, nil
}

func modelOf(kind relation.EntityKind) (*Model, error) {
	m, ok := kind.(*Model)
	if !ok {
		return nil, fmt.Errorf("gormstore: unsupported entity kind %T", kind)
	}
	return m, nil
}
