package gormstore

import (
	"sort"

	"relsync/core/relation"
)

// Record is a table row held as a column map. It implements relation.Entity
// and relation.ErrorCollector.
type Record struct {
	model  *Model
	attrs  map[string]any
	isNew  bool
	errors map[string][]string
}

// Model returns the record's model.
func (r *Record) Model() *Model { return r.model }

// Kind implements relation.Entity.
func (r *Record) Kind() string { return r.model.Table }

// PrimaryKeyField implements relation.Entity.
func (r *Record) PrimaryKeyField() string { return r.model.PrimaryKey() }

// PrimaryKey implements relation.Entity.
func (r *Record) PrimaryKey() any { return r.attrs[r.model.PrimaryKey()] }

// IsNewRecord implements relation.Entity.
func (r *Record) IsNewRecord() bool { return r.isNew }

// Attributes implements relation.Entity.
func (r *Record) Attributes() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// Get implements relation.Entity.
func (r *Record) Get(name string) any { return r.attrs[name] }

// Set implements relation.Entity. Undeclared columns are ignored.
func (r *Record) Set(name string, value any) {
	if len(r.model.Columns) > 0 {
		if _, ok := r.attrs[name]; !ok {
			return
		}
	}
	r.attrs[name] = value
}

// Validate implements relation.Entity.
func (r *Record) Validate() relation.FieldErrors {
	return r.model.validateAttrs(r.attrs)
}

// AddError implements relation.ErrorCollector.
func (r *Record) AddError(attribute string, messages ...string) {
	if r.errors == nil {
		r.errors = make(map[string][]string)
	}
	r.errors[attribute] = append(r.errors[attribute], messages...)
}

// Errors returns the collected errors per attribute.
func (r *Record) Errors() map[string][]string {
	return r.errors
}

// HasErrors reports whether any error was collected.
func (r *Record) HasErrors() bool {
	return len(r.errors) > 0
}

// ErrorAttributes returns the attributes with errors, sorted.
func (r *Record) ErrorAttributes() []string {
	out := make([]string, 0, len(r.errors))
	for k := range r.errors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// values returns the attributes to write, without the primary key.
func (r *Record) values() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		if k == r.model.PrimaryKey() {
			continue
		}
		out[k] = v
	}
	return out
}
