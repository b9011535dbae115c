package relation

import (
	"context"

	"go.uber.org/zap"
)

// AfterSave writes the changed children of every loaded attribute, in
// declaration order, after the owner itself has been written in tx. Any
// failure rolls tx back and returns a PersistenceError.
func (b *Behavior) AfterSave(ctx context.Context, store Storage, tx Tx, owner Entity) error {
	defer b.reset()

	needSaveOwner := false
	for _, ws := range b.sets {
		plan := BuildPlan(ws)
		if err := b.apply(ctx, store, ws, plan, owner); err != nil {
			return b.abort(tx, err)
		}
		if plan.Relink {
			relink(ws, owner)
			needSaveOwner = true
			b.logger.Debug("Owner relinked",
				zap.String("attribute", ws.Attribute),
				zap.String("action", string(ActionRelink)),
			)
		}
	}

	// The storage save is owner-only, so relational processing does not run again.
	if needSaveOwner {
		if err := store.Save(ctx, owner); err != nil {
			return b.abort(tx, &PersistenceError{Kind: owner.Kind(), Op: "save", Owner: true, Err: err})
		}
	}

	b.finished = true
	return nil
}

// apply executes one attribute's plan: inserts first, then deletions.
func (b *Behavior) apply(ctx context.Context, store Storage, ws *WorkingSet, plan *Plan, owner Entity) error {
	d := ws.Descriptor

	for _, e := range plan.Inserts {
		switch d.Kind() {
		case KindViaEntity:
			e.Set(ws.JunctionColumn, owner.PrimaryKey())
		case KindMultiple:
			for _, l := range d.Link {
				e.Set(l.Child, owner.Get(l.Parent))
			}
		}
		if err := store.Save(ctx, e); err != nil {
			return &PersistenceError{Kind: e.Kind(), Op: "save", Err: err}
		}
		b.logger.Debug("Related model saved",
			zap.String("attribute", ws.Attribute),
			zap.String("action", string(ActionInsert)),
			zap.String("kind", e.Kind()),
			zap.Any("id", e.PrimaryKey()),
		)
	}

	for _, row := range plan.InsertRows {
		row[ws.JunctionColumn] = owner.PrimaryKey()
		if err := store.InsertRow(ctx, ws.JunctionTable, row); err != nil {
			return &PersistenceError{Kind: ws.JunctionTable, Op: "insert_row", Err: err}
		}
		b.logger.Debug("Join row inserted",
			zap.String("attribute", ws.Attribute),
			zap.String("action", string(ActionInsertRow)),
			zap.String("table", ws.JunctionTable),
		)
	}

	for _, e := range plan.Deletes {
		if err := store.Delete(ctx, e); err != nil {
			return &PersistenceError{Kind: e.Kind(), Op: "delete", Err: err}
		}
		b.logger.Debug("Related model deleted",
			zap.String("attribute", ws.Attribute),
			zap.String("action", string(ActionDelete)),
			zap.String("kind", e.Kind()),
			zap.Any("id", e.PrimaryKey()),
		)
	}

	for _, row := range plan.DeleteRows {
		if err := store.DeleteRows(ctx, ws.JunctionTable, Filter(row)); err != nil {
			return &PersistenceError{Kind: ws.JunctionTable, Op: "delete_rows", Err: err}
		}
		b.logger.Debug("Join row deleted",
			zap.String("attribute", ws.Attribute),
			zap.String("action", string(ActionDeleteRow)),
			zap.String("table", ws.JunctionTable),
		)
	}

	return nil
}

// relink points the owner's link fields at the single child, or clears them
// when the relation was emptied.
func relink(ws *WorkingSet, owner Entity) {
	var child Entity
	if len(ws.NewEntities) > 0 {
		child = ws.NewEntities[0]
	}
	for _, l := range ws.Descriptor.Link {
		if child == nil {
			owner.Set(l.Parent, nil)
			continue
		}
		owner.Set(l.Parent, child.Get(l.Child))
	}
}
