package relation

import (
	"context"
	"fmt"
	"reflect"
)

// Cardinality is the number of children a relation holds.
type Cardinality int

const (
	// Single is a one-to-one relation.
	Single Cardinality = iota
	// Multiple is a one-to-many or many-to-many relation.
	Multiple
)

// Kind is the relation topology, resolved once from a Descriptor.
type Kind int

const (
	// KindSingle is a one-to-one relation.
	KindSingle Kind = iota
	// KindMultiple is a one-to-many relation.
	KindMultiple
	// KindViaEntity is a many-to-many relation through a linking entity.
	KindViaEntity
	// KindViaTable is a many-to-many relation through a raw join table.
	KindViaTable
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindMultiple:
		return "multiple"
	case KindViaEntity:
		return "via_entity"
	case KindViaTable:
		return "via_table"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Link maps a child column to the parent field it equals.
type Link struct {
	Child  string
	Parent string
}

// LinkMap is an ordered list of equality join columns.
type LinkMap []Link

// Links builds a LinkMap from child, parent pairs.
//
//	relation.Links("article_id", "id")
func Links(pairs ...string) LinkMap {
	if len(pairs)%2 != 0 {
		panic("relation: Links requires child, parent pairs")
	}
	out := make(LinkMap, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Link{Child: pairs[i], Parent: pairs[i+1]})
	}
	return out
}

// ChildColumns returns the child side of every link.
func (m LinkMap) ChildColumns() []string {
	out := make([]string, 0, len(m))
	for _, l := range m {
		out = append(out, l.Child)
	}
	return out
}

// ViaRelation declares a many-to-many relation through a linking entity.
// Link maps linking-entity columns to owner fields; its first child column is
// the junction column.
type ViaRelation struct {
	Name   string
	Entity EntityKind
	Link   LinkMap
	// On is the linking relation's static filter; see Descriptor.On.
	On any
}

// ViaJoinTable declares a many-to-many relation through a raw join table.
// Link maps join table columns to owner fields; its first child column is the
// junction column.
type ViaJoinTable struct {
	Table string
	Link  LinkMap
	// On is the join table's static filter; see Descriptor.On.
	On any
}

// Descriptor declares one relational attribute of an owner.
//
// For direct relations Link maps child columns to owner fields. For
// many-to-many relations Link maps the target's key column to the column of
// the linking entity (or join table) that references it.
type Descriptor struct {
	Attribute   string
	Target      EntityKind
	Cardinality Cardinality
	Link        LinkMap

	// On is an optional static filter. It must be a plain column/value mapping
	// (map[string]any or Filter); anything else, such as a raw SQL expression
	// string, is rejected when the relation is loaded.
	On any

	ViaRelation  *ViaRelation
	ViaJoinTable *ViaJoinTable

	kind Kind
}

// Kind returns the resolved relation topology.
func (d *Descriptor) Kind() Kind { return d.kind }

// resolve checks the topology and fixes the relation kind.
func (d *Descriptor) resolve() error {
	if d.Attribute == "" {
		return &ConfigurationError{Reason: "descriptor without attribute name"}
	}
	if d.Target == nil {
		return &ConfigurationError{Attribute: d.Attribute, Reason: "target entity kind is required"}
	}
	if len(d.Link) == 0 {
		return &ConfigurationError{Attribute: d.Attribute, Reason: "link map is required"}
	}
	if d.ViaRelation != nil && d.ViaJoinTable != nil {
		return &ConfigurationError{Attribute: d.Attribute, Reason: "only one of via relation and via join table may be set"}
	}

	hasVia := d.ViaRelation != nil || d.ViaJoinTable != nil
	switch {
	case d.Cardinality == Single && hasVia:
		return &ConfigurationError{Attribute: d.Attribute, Reason: "via is only supported for multiple relations"}
	case d.Cardinality == Single:
		d.kind = KindSingle
	case d.ViaRelation != nil:
		if d.ViaRelation.Entity == nil || len(d.ViaRelation.Link) == 0 {
			return &ConfigurationError{Attribute: d.Attribute, Reason: "via relation needs an entity kind and a link map"}
		}
		d.kind = KindViaEntity
	case d.ViaJoinTable != nil:
		if d.ViaJoinTable.Table == "" || len(d.ViaJoinTable.Link) == 0 {
			return &ConfigurationError{Attribute: d.Attribute, Reason: "via join table needs a table and a link map"}
		}
		d.kind = KindViaTable
	case d.Cardinality == Multiple:
		d.kind = KindMultiple
	default:
		return &ConfigurationError{Attribute: d.Attribute, Reason: fmt.Sprintf("unknown cardinality %d", d.Cardinality)}
	}
	return nil
}

// junction returns the junction and related columns of a many-to-many relation.
func (d *Descriptor) junction() (table, junctionColumn, relatedColumn string) {
	relatedColumn = d.Link[0].Parent
	switch d.kind {
	case KindViaEntity:
		return d.ViaRelation.Entity.Name(), d.ViaRelation.Link[0].Child, relatedColumn
	case KindViaTable:
		return d.ViaJoinTable.Table, d.ViaJoinTable.Link[0].Child, relatedColumn
	}
	return "", "", ""
}

// Query is a relation query: entities of Kind matching Filter.
type Query struct {
	Kind   EntityKind
	Filter Filter
	// Empty marks a query that cannot match anything, such as one keyed on an
	// owner field that has no value yet.
	Empty bool
}

// All runs the query.
func (q Query) All(ctx context.Context, store Storage) ([]Entity, error) {
	if q.Empty {
		return nil, nil
	}
	return store.Find(ctx, q.Kind, q.Filter)
}

// Count counts the query's matches.
func (q Query) Count(ctx context.Context, store Storage) (int64, error) {
	if q.Empty {
		return 0, nil
	}
	return store.Count(ctx, q.Kind, q.Filter)
}

// Query builds the relation query of a direct relation for owner: target
// entities whose link columns equal the owner's fields, narrowed by the
// static filter.
func (d *Descriptor) Query(owner Entity) (Query, error) {
	on, err := staticFilter(d.Attribute, d.On)
	if err != nil {
		return Query{}, err
	}
	q := Query{Kind: d.Target, Filter: on.merge()}
	for _, l := range d.Link {
		v := owner.Get(l.Parent)
		if isEmpty(v) {
			q.Empty = true
		}
		q.Filter[l.Child] = v
	}
	return q, nil
}

// viaQuery builds the query for existing linking entities of owner.
func (d *Descriptor) viaQuery(owner Entity) (Query, error) {
	on, err := staticFilter(d.Attribute, d.ViaRelation.On)
	if err != nil {
		return Query{}, err
	}
	q := Query{Kind: d.ViaRelation.Entity, Filter: on.merge()}
	for _, l := range d.ViaRelation.Link {
		v := owner.Get(l.Parent)
		if isEmpty(v) {
			q.Empty = true
		}
		q.Filter[l.Child] = v
	}
	return q, nil
}

// staticFilter checks that on is a plain column/value mapping.
func staticFilter(attribute string, on any) (Filter, error) {
	switch v := on.(type) {
	case nil:
		return Filter{}, nil
	case Filter:
		return v, nil
	case map[string]any:
		return Filter(v), nil
	case map[string]string:
		out := make(Filter, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	}
	return nil, &ConfigurationError{
		Attribute: attribute,
		Reason:    fmt.Sprintf("ON condition must be a column/value mapping, got %T", on),
	}
}

// isEmpty reports whether v is nil, a nil pointer, an empty string or a
// zero number.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		return rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}
