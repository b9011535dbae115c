package article

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"relsync/core/database"
	"relsync/core/relation"
	"relsync/core/relation/gormstore"
	"relsync/core/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when the requested article does not exist.
var ErrNotFound = errors.New("article not found")

// Request is a submitted article with its nested relational data.
// Relations holds one entry per submitted attribute; attributes left out are
// not touched.
type Request struct {
	ID        int            `json:"id,omitempty"`
	Title     *string        `json:"title,omitempty"`
	Body      *string        `json:"body,omitempty"`
	Relations map[string]any `json:"relations,omitempty"`
}

// Result describes the outcome of a save or preview.
type Result struct {
	ID     any                 `json:"id,omitempty"`
	Plans  []*relation.Plan    `json:"plans,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// ErrSchemaMismatch is returned when a table lacks a column the feature writes.
var ErrSchemaMismatch = errors.New("article schema mismatch")

// Service saves and deletes articles together with their relations.
type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	columns *database.ColumnCache
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithColumnCache shares a table schema cache with the service.
func WithColumnCache(c *database.ColumnCache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.columns = c
		}
	}
}

// NewService creates a new article service.
func NewService(db *gorm.DB, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:      db,
		logger:  logger,
		columns: database.NewColumnCache(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the article tables.
func (s *Service) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Schema()...); err != nil {
		return fmt.Errorf("failed to migrate article schema: %w", err)
	}
	for _, m := range Models() {
		s.columns.Invalidate(m.Table)
	}
	return nil
}

// CheckSchema verifies that every table holds the columns the feature writes.
func (s *Service) CheckSchema(ctx context.Context) error {
	var problems []string
	for _, m := range Models() {
		missing, err := m.CheckColumns(ctx, s.columns, s.db)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			s.logger.Warn("Missing columns", zap.String("table", m.Table), zap.Strings("columns", missing))
			problems = append(problems, fmt.Sprintf("%s(%s)", m.Table, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the article and reconciles every submitted relation in one
// transaction. Rejected input is returned as a *relation.ValidationFailure
// together with a Result carrying the per-attribute errors.
func (s *Service) Save(ctx context.Context, req Request) (*Result, error) {
	store, err := gormstore.Begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer rollback(store)

	owner, b, err := s.prepare(ctx, store, req)
	if err != nil {
		return nil, err
	}

	if err := b.Save(ctx, store, store, owner); err != nil {
		if relation.IsFatal(err) {
			s.logger.Error("Article save failed", zap.Error(err))
			return nil, err
		}
		return &Result{ID: owner.PrimaryKey(), Errors: owner.Errors()}, err
	}

	if err := store.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Article saved",
		zap.Any("id", owner.PrimaryKey()),
		zap.Strings("relations", submitted(req)),
	)
	return &Result{ID: owner.PrimaryKey()}, nil
}

// Preview computes the relational changes Save would make, without writing.
func (s *Service) Preview(ctx context.Context, req Request) (*Result, error) {
	store, err := gormstore.Begin(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer rollback(store)

	owner, b, err := s.prepare(ctx, store, req)
	if err != nil {
		return nil, err
	}

	plans, err := b.Plan(ctx, store, store, owner)
	if relation.IsFatal(err) {
		return nil, err
	}
	return &Result{ID: owner.PrimaryKey(), Plans: plans, Errors: owner.Errors()}, err
}

// Delete removes the article and every related record in one transaction.
func (s *Service) Delete(ctx context.Context, id int) error {
	store, err := gormstore.Begin(ctx, s.db)
	if err != nil {
		return err
	}
	defer rollback(store)

	owner, err := s.find(ctx, store, id)
	if err != nil {
		return err
	}
	b, err := s.behavior()
	if err != nil {
		return err
	}
	if err := b.Delete(ctx, store, store, owner); err != nil {
		s.logger.Error("Article delete failed", zap.Int("id", id), zap.Error(err))
		return err
	}
	if err := store.Commit(); err != nil {
		return err
	}

	s.logger.Info("Article deleted", zap.Int("id", id))
	return nil
}

// prepare loads or builds the owner and hands the submitted relations to a
// fresh behavior.
func (s *Service) prepare(ctx context.Context, store *gormstore.Store, req Request) (*gormstore.Record, *relation.Behavior, error) {
	var owner *gormstore.Record
	if req.ID != 0 {
		found, err := s.find(ctx, store, req.ID)
		if err != nil {
			return nil, nil, err
		}
		owner = found
	} else {
		owner = Articles.NewRecord(nil)
	}
	if req.Title != nil {
		owner.Set("title", *req.Title)
	}
	if req.Body != nil {
		owner.Set("body", *req.Body)
	}

	b, err := s.behavior()
	if err != nil {
		return nil, nil, err
	}
	for _, attr := range submitted(req) {
		err := b.SetRelationalValue(attr, normalizeIDs(req.Relations[attr]))
		if relation.IsFatal(err) {
			return nil, nil, err
		}
	}
	return owner, b, nil
}

func (s *Service) behavior() (*relation.Behavior, error) {
	return relation.New(Descriptors(),
		relation.WithLogger(s.logger.Named("relation")),
		relation.WithPreprocessor("images", positionHook),
	)
}

func (s *Service) find(ctx context.Context, store *gormstore.Store, id int) (*gormstore.Record, error) {
	owner, err := store.FindByKey(ctx, Articles, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return owner, err
}

// rollback ends a transaction that was neither committed nor rolled back.
func rollback(store *gormstore.Store) {
	if !store.Done() {
		_ = store.Rollback()
	}
}

// submitted returns the submitted relational attributes, sorted.
func submitted(req Request) []string {
	out := make([]string, 0, len(req.Relations))
	for attr := range req.Relations {
		out = append(out, attr)
	}
	sort.Strings(out)
	return out
}

// normalizeIDs turns whole JSON numbers in a sequence into ints.
func normalizeIDs(raw any) any {
	items, ok := raw.([]any)
	if !ok {
		return raw
	}
	out := make([]any, len(items))
	for i, item := range items {
		if f, ok := item.(float64); ok && f == math.Trunc(f) {
			out[i] = utils.ToInt(f)
			continue
		}
		out[i] = item
	}
	return out
}
