// Package gormstore implements relation.Storage and relation.Tx on top of a
// GORM transaction.
//
// Entities are table rows held as column maps (Record), described by a Model
// that names the table, the primary key, the declared columns and the
// per-column validation rules. Rules use go-playground/validator tags.
//
// Every Store wraps exactly one transaction. The relation behavior rolls it
// back on failure; committing is the caller's job.
//
// # Keys
//
// Auto-increment keys are read back after insert with LAST_INSERT_ID() on
// MySQL and last_insert_rowid() on SQLite. Models with UUIDKey set get a
// random UUID instead.
//
// # Usage
//
//	images := &gormstore.Model{
//	    Table:   "images",
//	    Columns: []string{"id", "article_id", "src", "position", "type"},
//	    Rules:   map[string]string{"src": "required,max=255"},
//	}
//
//	store, err := gormstore.Begin(ctx, db)
//	if err != nil {
//	    return err
//	}
//	img := images.NewRecord(map[string]any{"src": "a.png"})
//	if err := store.Save(ctx, img); err != nil {
//	    _ = store.Rollback()
//	    return err
//	}
//	return store.Commit()
package gormstore
