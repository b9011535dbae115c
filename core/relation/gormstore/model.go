package gormstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"relsync/core/database"
	"relsync/core/relation"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

// Model describes a table-backed entity kind.
type Model struct {
	// Table is the table name, also used as the kind name.
	Table string

	// Key is the primary key column. Defaults to "id".
	Key string

	// Columns lists every column of the table. New records carry all of them,
	// unset ones as nil, so that candidates compare structurally with rows
	// read back from storage. Unknown attributes are dropped.
	Columns []string

	// Rules maps a column to validator tags, e.g. "required,max=255".
	Rules map[string]string

	// UUIDKey generates a UUID primary key on insert instead of reading the
	// auto-increment value back.
	UUIDKey bool
}

// Name implements relation.EntityKind.
func (m *Model) Name() string { return m.Table }

// PrimaryKey implements relation.EntityKind.
func (m *Model) PrimaryKey() string {
	if m.Key == "" {
		return "id"
	}
	return m.Key
}

// New implements relation.EntityKind.
func (m *Model) New(attrs map[string]any) relation.Entity {
	return m.NewRecord(attrs)
}

// NewRecord builds a new, unsaved record.
func (m *Model) NewRecord(attrs map[string]any) *Record {
	return &Record{model: m, attrs: m.shape(attrs), isNew: true}
}

// load wraps a row read from storage.
func (m *Model) load(row map[string]any) *Record {
	return &Record{model: m, attrs: m.shape(row)}
}

// shape keeps declared columns only, filling missing ones with nil.
func (m *Model) shape(attrs map[string]any) map[string]any {
	if len(m.Columns) == 0 {
		out := make(map[string]any, len(attrs))
		for k, v := range attrs {
			out[k] = v
		}
		return out
	}
	out := make(map[string]any, len(m.Columns))
	for _, col := range m.Columns {
		out[col] = attrs[col]
	}
	return out
}

// LoadColumns fills Columns, and Key when unset, from the database schema
// when the columns were not declared. cache may be nil.
func (m *Model) LoadColumns(ctx context.Context, cache *database.ColumnCache, db *gorm.DB) error {
	if len(m.Columns) > 0 {
		return nil
	}
	cols, err := m.schema(ctx, cache, db)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("table %s has no columns", m.Table)
	}
	for _, col := range cols {
		m.Columns = append(m.Columns, col.Field)
	}
	if m.Key == "" {
		m.Key = database.PrimaryKey(cols)
	}
	return nil
}

// CheckColumns returns the declared columns missing from the database table.
func (m *Model) CheckColumns(ctx context.Context, cache *database.ColumnCache, db *gorm.DB) ([]string, error) {
	cols, err := m.schema(ctx, cache, db)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		present[col.Field] = struct{}{}
	}
	var missing []string
	for _, col := range m.Columns {
		if _, ok := present[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

func (m *Model) schema(ctx context.Context, cache *database.ColumnCache, db *gorm.DB) ([]database.ColumnInfo, error) {
	if cache != nil {
		return cache.Columns(ctx, db, m.Table)
	}
	return database.GetTableColumns(db.WithContext(ctx), m.Table)
}

// validateAttrs runs the model rules against attrs.
func (m *Model) validateAttrs(attrs map[string]any) relation.FieldErrors {
	cols := make([]string, 0, len(m.Rules))
	for col := range m.Rules {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	errs := make(relation.FieldErrors)
	for _, col := range cols {
		err := validate.Var(attrs[col], m.Rules[col])
		if err == nil {
			continue
		}
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			errs[col] = append(errs[col], err.Error())
			continue
		}
		for _, fe := range verrs {
			msg := fmt.Sprintf("failed on the '%s' rule", fe.Tag())
			if fe.Param() != "" {
				msg = fmt.Sprintf("failed on the '%s' rule, expected '%s'", fe.Tag(), fe.Param())
			}
			errs[col] = append(errs[col], msg)
		}
	}
	return errs
}
