package relation

import (
	"context"

	"go.uber.org/zap"
)

// AfterDelete cascades an owner deletion to every declared relation in tx.
// Direct relations delete each related entity, linking entity relations each
// linking instance, and join table relations every row keyed on the owner.
// The first failure rolls tx back and returns a PersistenceError.
func (b *Behavior) AfterDelete(ctx context.Context, store Storage, tx Tx, owner Entity) error {
	for _, d := range b.descriptors {
		if err := b.cascade(ctx, store, d, owner); err != nil {
			return b.abort(tx, err)
		}
	}
	return nil
}

func (b *Behavior) cascade(ctx context.Context, store Storage, d *Descriptor, owner Entity) error {
	var (
		q   Query
		err error
	)

	switch d.Kind() {
	case KindViaTable:
		if isEmpty(owner.PrimaryKey()) {
			return nil
		}
		on, err := staticFilter(d.Attribute, d.ViaJoinTable.On)
		if err != nil {
			return err
		}
		table, junctionColumn, _ := d.junction()
		if err := store.DeleteRows(ctx, table, on.merge(map[string]any{junctionColumn: owner.PrimaryKey()})); err != nil {
			return &PersistenceError{Kind: table, Op: "delete_rows", Err: err}
		}
		b.logger.Debug("Join rows deleted",
			zap.String("attribute", d.Attribute),
			zap.String("table", table),
		)
		return nil
	case KindViaEntity:
		q, err = d.viaQuery(owner)
	default:
		q, err = d.Query(owner)
	}
	if err != nil {
		return err
	}

	related, err := q.All(ctx, store)
	if err != nil {
		return &PersistenceError{Kind: q.Kind.Name(), Op: "find", Err: err}
	}
	for _, e := range related {
		if err := store.Delete(ctx, e); err != nil {
			return &PersistenceError{Kind: e.Kind(), Op: "delete", Err: err}
		}
	}
	if len(related) > 0 {
		b.logger.Debug("Related models deleted",
			zap.String("attribute", d.Attribute),
			zap.String("kind", q.Kind.Name()),
			zap.Int("count", len(related)),
		)
	}
	return nil
}
