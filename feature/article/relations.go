package article

import (
	"relsync/core/relation"
	"relsync/core/relation/gormstore"
)

// Table-backed kinds of the article feature.
var (
	Articles = &gormstore.Model{
		Table:   "articles",
		Columns: []string{"id", "title", "body", "cover_id"},
		Rules:   map[string]string{"title": "required,max=255"},
	}
	Covers = &gormstore.Model{
		Table:   "covers",
		Columns: []string{"id", "url"},
		Rules:   map[string]string{"url": "required,max=255"},
	}
	Images = &gormstore.Model{
		Table:   "images",
		Columns: []string{"id", "article_id", "src", "alt", "type", "position"},
		Rules: map[string]string{
			"article_id": "required",
			"src":        "required,max=255",
			"alt":        "omitempty,max=255",
		},
	}
	Files = &gormstore.Model{
		Table:   "files",
		Columns: []string{"id", "name"},
	}
	Tags = &gormstore.Model{
		Table:   "tags",
		Columns: []string{"id", "name"},
	}
	ArticleTags = &gormstore.Model{
		Table:   "article_tags",
		Columns: []string{"id", "article_id", "tag_id"},
		Rules: map[string]string{
			"article_id": "required",
			"tag_id":     "required",
		},
	}
)

// Models lists the table-backed kinds in schema order.
func Models() []*gormstore.Model {
	return []*gormstore.Model{Articles, Covers, Images, Files, Tags, ArticleTags}
}

// Descriptors declares the relational attributes of an article.
func Descriptors() []*relation.Descriptor {
	return []*relation.Descriptor{
		{
			Attribute:   "cover",
			Target:      Covers,
			Cardinality: relation.Single,
			Link:        relation.Links("id", "cover_id"),
		},
		{
			Attribute:   "images",
			Target:      Images,
			Cardinality: relation.Multiple,
			Link:        relation.Links("article_id", "id"),
			On:          map[string]any{"type": "gallery"},
		},
		{
			Attribute:   "files",
			Target:      Files,
			Cardinality: relation.Multiple,
			Link:        relation.Links("id", "file_id"),
			ViaJoinTable: &relation.ViaJoinTable{
				Table: "article_files",
				Link:  relation.Links("article_id", "id"),
			},
		},
		{
			Attribute:   "tags",
			Target:      Tags,
			Cardinality: relation.Multiple,
			Link:        relation.Links("id", "tag_id"),
			ViaRelation: &relation.ViaRelation{
				Name:   "articleTags",
				Entity: ArticleTags,
				Link:   relation.Links("article_id", "id"),
			},
		},
	}
}

// positionHook numbers gallery images in submission order.
func positionHook(index int, item relation.Mutable) {
	item.Set("position", index)
}
