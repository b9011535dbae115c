// Package relation synchronizes an owner entity's nested relational data with
// submitted input inside the owner's save transaction.
//
// Four relation topologies are supported, declared by the caller through a
// Descriptor and resolved once into a Kind:
//   - Single: one-to-one, the owner's link fields point at the child.
//   - Multiple: one-to-many, the children's link columns point at the owner.
//   - ViaEntity: many-to-many through a linking entity.
//   - ViaTable: many-to-many through a raw join table.
//
// # Save cycle
//
// A save cycle runs in four steps over one transaction begun by the caller:
//
//  1. Load: for every submitted attribute a WorkingSet is built. Candidate
//     children (or join rows) come from the payload, existing ones from
//     storage. Many-to-many IDs must all exist in the related storage.
//     Candidates structurally equal to an existing child are replaced by it.
//  2. Validate: every new candidate runs its own rules; errors on columns
//     copied from the owner are suppressed. A failure blocks the owner's save.
//  3. The owner is written.
//  4. Apply: per attribute a Plan of inserts and deletes is executed, single
//     relations relink the owner, and the owner is saved once more if needed.
//
// Any storage failure rolls the transaction back and surfaces a
// PersistenceError; nothing is applied partially.
//
// # Usage
//
//	b, err := relation.New(descriptors, relation.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	_ = b.SetRelationalValue("images", []map[string]any{{"src": "a.png"}})
//
//	store, _ := gormstore.Begin(ctx, db)
//	if err := b.Save(ctx, store, store, owner); err != nil {
//	    _ = store.Rollback()
//	    return err
//	}
//	return store.Commit()
package relation
