package relation

import "context"

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

// Entity is a persisted or candidate record managed by the relation behavior.
// Implementations are supplied by the storage layer (see gormstore.Record).
type Entity interface {
	// Kind returns the entity kind name, used in error messages.
	Kind() string

	// PrimaryKeyField returns the name of the primary key attribute.
	PrimaryKeyField() string

	// PrimaryKey returns the primary key value, or nil if not assigned yet.
	PrimaryKey() any

	// IsNewRecord reports whether the entity has not been persisted yet.
	IsNewRecord() bool

	// Attributes returns a copy of every attribute, including the primary key.
	Attributes() map[string]any

	// Get returns a single attribute value.
	Get(name string) any

	// Set assigns a single attribute value.
	Set(name string, value any)

	// Validate runs the entity's own rules. An empty result means valid.
	Validate() FieldErrors
}

// EntityKind describes a kind of entity and constructs new candidates of it.
type EntityKind interface {
	// Name returns the kind name (for table-backed kinds, the table name).
	Name() string

	// PrimaryKey returns the primary key column of the kind.
	PrimaryKey() string

	// New builds a new, unsaved entity from the given attributes.
	New(attrs map[string]any) Entity
}

// ErrorCollector is implemented by owners that keep a per-attribute error list.
type ErrorCollector interface {
	AddError(attribute string, messages ...string)
}

// Storage is the persistence collaborator. Every call runs inside the
// transaction the storage handle was opened with.
type Storage interface {
	// Find returns entities of kind matching filter, in storage order.
	Find(ctx context.Context, kind EntityKind, filter Filter) ([]Entity, error)

	// Count returns the number of entities of kind matching filter.
	Count(ctx context.Context, kind EntityKind, filter Filter) (int64, error)

	// Save inserts a new entity or updates an existing one. On insert the
	// entity's primary key must be populated and IsNewRecord must turn false.
	Save(ctx context.Context, e Entity) error

	// Delete removes a persisted entity.
	Delete(ctx context.Context, e Entity) error

	// FindRows returns raw rows of table matching filter.
	FindRows(ctx context.Context, table string, filter Filter) ([]Row, error)

	// InsertRow inserts a raw row into table.
	InsertRow(ctx context.Context, table string, row Row) error

	// DeleteRows deletes every row of table matching filter.
	DeleteRows(ctx context.Context, table string, filter Filter) error
}

// Tx is the externally scoped transaction shared by the owner and its children.
// The behavior never begins or commits it; it only rolls back on failure.
type Tx interface {
	Rollback() error
}

// Mutable is anything a pre-processing hook may modify: entities and rows.
type Mutable interface {
	Get(name string) any
	Set(name string, value any)
}

// Preprocessor is called on every candidate entity or row right after it is
// built, with its position in the submitted payload.
type Preprocessor func(index int, item Mutable)

// Row is a plain column mapping, used for join table rows.
type Row map[string]any

// Get returns the value of column.
func (r Row) Get(name string) any { return r[name] }

// Set assigns the value of column.
func (r Row) Set(name string, value any) { r[name] = value }

// Filter is an equality condition: every column must equal its value.
// A slice value matches any of its elements.
type Filter map[string]any

// merge returns a new filter holding f overlaid with each of others in order.
func (f Filter) merge(others ...map[string]any) Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}
