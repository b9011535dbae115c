package relation

import (
	"context"
	"fmt"
	"reflect"
)

// WorkingSet holds one attribute's state for a single save cycle.
// Exactly one of the entity pair and the row pair is populated.
type WorkingSet struct {
	Attribute  string
	Descriptor *Descriptor

	NewEntities []Entity
	OldEntities []Entity

	NewRows []Row
	OldRows []Row

	// Junction metadata, set for many-to-many relations.
	JunctionTable  string
	JunctionColumn string
	RelatedColumn  string

	payload payload
}

// LinkColumns returns the child columns copied from the owner, whose
// validation errors the caller cannot act on.
func (ws *WorkingSet) LinkColumns() []string {
	switch ws.Descriptor.Kind() {
	case KindViaEntity, KindViaTable:
		return []string{ws.JunctionColumn}
	default:
		return ws.Descriptor.Link.ChildColumns()
	}
}

// payload is a normalized submitted value.
type payload struct {
	single map[string]any
	items  []map[string]any
	ids    []any
}

// normalizePayload checks the raw shape against the relation kind.
// ok is false for values the attribute cannot accept.
func normalizePayload(kind Kind, raw any) (p payload, ok bool) {
	if raw == nil {
		return p, true
	}

	rv := reflect.ValueOf(raw)
	switch kind {
	case KindSingle:
		if m, ok := asMapping(raw); ok {
			p.single = m
			return p, true
		}
		if rv.Kind() == reflect.Slice && rv.Len() == 0 {
			return p, true
		}
		if rv.Kind() == reflect.String && rv.Len() == 0 {
			return p, true
		}
		return p, false

	case KindMultiple:
		if rv.Kind() == reflect.String && rv.Len() == 0 {
			return p, true
		}
		if rv.Kind() != reflect.Slice {
			return p, false
		}
		for i := 0; i < rv.Len(); i++ {
			item, ok := asMapping(rv.Index(i).Interface())
			if !ok {
				return payload{}, false
			}
			p.items = append(p.items, item)
		}
		return p, true

	default:
		if rv.Kind() == reflect.String && rv.Len() == 0 {
			return p, true
		}
		if rv.Kind() != reflect.Slice {
			return p, false
		}
		for i := 0; i < rv.Len(); i++ {
			id := rv.Index(i).Interface()
			if isEmpty(id) {
				return payload{}, false
			}
			switch reflect.ValueOf(id).Kind() {
			case reflect.Map, reflect.Slice, reflect.Struct:
				return payload{}, false
			}
			p.ids = append(p.ids, id)
		}
		return p, true
	}
}

// asMapping returns v as a column map when it is a map with string keys.
func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Row:
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// load builds the desired set from the payload and fetches the existing set.
func (b *Behavior) load(ctx context.Context, store Storage, ws *WorkingSet, owner Entity) error {
	d := ws.Descriptor
	if _, err := staticFilter(d.Attribute, d.On); err != nil {
		return err
	}

	var err error
	switch d.Kind() {
	case KindSingle:
		err = b.loadSingle(ctx, store, ws, owner)
	case KindMultiple:
		err = b.loadMultiple(ctx, store, ws, owner)
	case KindViaEntity:
		err = b.loadViaEntity(ctx, store, ws, owner)
	case KindViaTable:
		err = b.loadViaTable(ctx, store, ws, owner)
	default:
		err = &ConfigurationError{Attribute: d.Attribute, Reason: fmt.Sprintf("unsupported relation kind %s", d.Kind())}
	}
	if err != nil {
		return err
	}

	if d.Kind() != KindViaTable {
		replaceIdentities(ws)
	}
	return nil
}

// loadSingle handles one-to-one relations.
func (b *Behavior) loadSingle(ctx context.Context, store Storage, ws *WorkingSet, owner Entity) error {
	d := ws.Descriptor
	if len(ws.payload.single) > 0 {
		e := d.Target.New(copyAttrs(ws.payload.single))
		b.preprocess(ws.Attribute, 0, e)
		ws.NewEntities = append(ws.NewEntities, e)
	}
	return b.fetchDirect(ctx, store, ws, owner)
}

// loadMultiple handles one-to-many relations. The static filter and the
// owner's link values are merged under every submitted row.
func (b *Behavior) loadMultiple(ctx context.Context, store Storage, ws *WorkingSet, owner Entity) error {
	d := ws.Descriptor
	params, err := staticFilter(d.Attribute, d.On)
	if err != nil {
		return err
	}
	params = params.merge()
	for _, l := range d.Link {
		params[l.Child] = owner.Get(l.Parent)
	}

	for i, item := range ws.payload.items {
		e := d.Target.New(params.merge(item))
		b.preprocess(ws.Attribute, i, e)
		ws.NewEntities = append(ws.NewEntities, e)
	}
	return b.fetchDirect(ctx, store, ws, owner)
}

// loadViaEntity handles many-to-many relations through a linking entity.
func (b *Behavior) loadViaEntity(ctx context.Context, store Storage, ws *WorkingSet, owner Entity) error {
	d := ws.Descriptor
	on, err := staticFilter(d.Attribute, d.ViaRelation.On)
	if err != nil {
		return err
	}
	ws.JunctionTable, ws.JunctionColumn, ws.RelatedColumn = d.junction()

	if err := b.checkReferences(ctx, store, ws); err != nil {
		return err
	}

	for i, id := range ws.payload.ids {
		e := d.ViaRelation.Entity.New(on.merge(map[string]any{
			ws.JunctionColumn: owner.PrimaryKey(),
			ws.RelatedColumn:  id,
		}))
		b.preprocess(ws.Attribute, i, e)
		ws.NewEntities = append(ws.NewEntities, e)
	}

	if !hasIdentity(owner) {
		return nil
	}
	q, err := d.viaQuery(owner)
	if err != nil {
		return err
	}
	old, err := q.All(ctx, store)
	if err != nil {
		return &PersistenceError{Kind: ws.JunctionTable, Op: "find", Err: err}
	}
	ws.OldEntities = old
	return nil
}

// loadViaTable handles many-to-many relations through a raw join table.
func (b *Behavior) loadViaTable(ctx context.Context, store Storage, ws *WorkingSet, owner Entity) error {
	d := ws.Descriptor
	on, err := staticFilter(d.Attribute, d.ViaJoinTable.On)
	if err != nil {
		return err
	}
	ws.JunctionTable, ws.JunctionColumn, ws.RelatedColumn = d.junction()

	if err := b.checkReferences(ctx, store, ws); err != nil {
		return err
	}

	for i, id := range ws.payload.ids {
		row := Row(on.merge(map[string]any{
			ws.JunctionColumn: owner.PrimaryKey(),
			ws.RelatedColumn:  id,
		}))
		b.preprocess(ws.Attribute, i, row)
		ws.NewRows = append(ws.NewRows, row)
	}

	if !hasIdentity(owner) {
		return nil
	}
	rows, err := store.FindRows(ctx, ws.JunctionTable, on.merge(map[string]any{
		ws.JunctionColumn: owner.PrimaryKey(),
	}))
	if err != nil {
		return &PersistenceError{Kind: ws.JunctionTable, Op: "find", Err: err}
	}
	ws.OldRows = rows
	return nil
}

// fetchDirect loads the existing children of a direct relation.
func (b *Behavior) fetchDirect(ctx context.Context, store Storage, ws *WorkingSet, owner Entity) error {
	q, err := ws.Descriptor.Query(owner)
	if err != nil {
		return err
	}
	old, err := q.All(ctx, store)
	if err != nil {
		return &PersistenceError{Kind: ws.Descriptor.Target.Name(), Op: "find", Err: err}
	}
	ws.OldEntities = old
	return nil
}

// checkReferences makes sure every submitted ID exists in the target's storage.
func (b *Behavior) checkReferences(ctx context.Context, store Storage, ws *WorkingSet) error {
	ids := ws.payload.ids
	if len(ids) == 0 {
		return nil
	}
	target := ws.Descriptor.Target
	found, err := store.Count(ctx, target, Filter{target.PrimaryKey(): ids})
	if err != nil {
		return &PersistenceError{Kind: target.Name(), Op: "count", Err: err}
	}
	if found != int64(len(ids)) {
		return &ReferentialError{Attribute: ws.Attribute, Submitted: len(ids), Found: found}
	}
	return nil
}

// preprocess runs the attribute's hook, if any.
func (b *Behavior) preprocess(attribute string, index int, item Mutable) {
	if hook, ok := b.hooks[attribute]; ok {
		hook(index, item)
	}
}

// replaceIdentities swaps every new entity that structurally matches an
// existing one for that existing entity, so unchanged children keep their
// identity and are never written again.
func replaceIdentities(ws *WorkingSet) {
	for i, e := range ws.NewEntities {
		if match := findEqual(e, ws.OldEntities); match != nil {
			ws.NewEntities[i] = match
		}
	}
}

// hasIdentity reports whether the owner has been persisted with a key.
func hasIdentity(owner Entity) bool {
	return !owner.IsNewRecord() && !isEmpty(owner.PrimaryKey())
}

func copyAttrs(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
