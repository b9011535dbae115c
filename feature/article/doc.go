// Package article is the relsync demo domain: an article owner with one
// relation of every topology.
//
//   - cover: one-to-one, articles.cover_id points at covers.id
//   - images: one-to-many gallery images, numbered by submission order
//   - files: many-to-many through the article_files join table
//   - tags: many-to-many through the ArticleTag linking entity
//
// Service runs each save or delete in its own transaction and commits only
// when the owner and every relation were written.
//
// # Usage
//
//	svc := article.NewService(db, log)
//	title := "Release notes"
//	res, err := svc.Save(ctx, article.Request{
//	    Title: &title,
//	    Relations: map[string]any{
//	        "images": []any{map[string]any{"src": "a.png"}},
//	        "tags":   []any{1, 2},
//	    },
//	})
package article
