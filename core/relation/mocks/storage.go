package mocks

import (
	"context"

	"relsync/core/relation"

	"github.com/stretchr/testify/mock"
)

// Storage is a mock implementation of relation.Storage
type Storage struct {
	mock.Mock
}

func (m *Storage) Find(ctx context.Context, kind relation.EntityKind, filter relation.Filter) ([]relation.Entity, error) {
	args := m.Called(ctx, kind, filter)
	if found, ok := args.Get(0).([]relation.Entity); ok {
		return found, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) Count(ctx context.Context, kind relation.EntityKind, filter relation.Filter) (int64, error) {
	args := m.Called(ctx, kind, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Storage) Save(ctx context.Context, e relation.Entity) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *Storage) Delete(ctx context.Context, e relation.Entity) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *Storage) FindRows(ctx context.Context, table string, filter relation.Filter) ([]relation.Row, error) {
	args := m.Called(ctx, table, filter)
	if rows, ok := args.Get(0).([]relation.Row); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Storage) InsertRow(ctx context.Context, table string, row relation.Row) error {
	args := m.Called(ctx, table, row)
	return args.Error(0)
}

func (m *Storage) DeleteRows(ctx context.Context, table string, filter relation.Filter) error {
	args := m.Called(ctx, table, filter)
	return args.Error(0)
}

// Tx is a mock implementation of relation.Tx
type Tx struct {
	mock.Mock
}

func (m *Tx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
