package article

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"relsync/core/database"
	"relsync/core/relation"
	"relsync/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates a migrated in-memory SQLite DB with files 1-3 and tags 1-2.
func setupTestDB(t *testing.T, name string) (*gorm.DB, *Service) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := NewService(db, zap.NewNop())
	require.NoError(t, svc.Migrate(context.Background()))

	require.NoError(t, db.Create(&[]File{{ID: 1, Name: "a.pdf"}, {ID: 2, Name: "b.pdf"}, {ID: 3, Name: "c.pdf"}}).Error)
	require.NoError(t, db.Create(&[]Tag{{ID: 1, Name: "go"}, {ID: 2, Name: "sql"}}).Error)
	return db, svc
}

func decode(t *testing.T, body string) Request {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func galleryImages(t *testing.T, db *gorm.DB, articleID int) []Image {
	var out []Image
	require.NoError(t, db.Where("article_id = ? AND type = ?", articleID, "gallery").Order("position").Find(&out).Error)
	return out
}

func TestService_SaveNewArticle(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_save_new")

	res, err := svc.Save(ctx, decode(t, `{
		"title": "Hello",
		"relations": {
			"cover": {"url": "cover.png"},
			"images": [{"src": "a.png"}, {"src": "b.png", "alt": "second"}],
			"files": [1, 2],
			"tags": [2]
		}
	}`))
	require.NoError(t, err)
	id := utils.ToInt(res.ID)
	require.NotZero(t, id)

	var a Article
	require.NoError(t, db.First(&a, id).Error)
	assert.Equal(t, "Hello", a.Title)
	require.NotNil(t, a.CoverID)

	var c Cover
	require.NoError(t, db.First(&c, *a.CoverID).Error)
	assert.Equal(t, "cover.png", c.URL)

	imgs := galleryImages(t, db, id)
	require.Len(t, imgs, 2)
	assert.Equal(t, "a.png", imgs[0].Src)
	assert.Equal(t, 0, imgs[0].Position)
	assert.Equal(t, "second", imgs[1].Alt)
	assert.Equal(t, 1, imgs[1].Position)

	var joins []ArticleFile
	require.NoError(t, db.Where("article_id = ?", id).Order("file_id").Find(&joins).Error)
	assert.Equal(t, []ArticleFile{{ArticleID: uint(id), FileID: 1}, {ArticleID: uint(id), FileID: 2}}, joins)

	var links []ArticleTag
	require.NoError(t, db.Where("article_id = ?", id).Find(&links).Error)
	require.Len(t, links, 1)
	assert.EqualValues(t, 2, links[0].TagID)
}

func TestService_ResaveKeepsIdentities(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_resave")

	body := `{
		"title": "Hello",
		"relations": {
			"cover": {"url": "cover.png"},
			"images": [{"src": "a.png"}, {"src": "b.png"}],
			"files": [1],
			"tags": [1, 2]
		}
	}`
	res, err := svc.Save(ctx, decode(t, body))
	require.NoError(t, err)
	id := utils.ToInt(res.ID)

	before := galleryImages(t, db, id)
	var linksBefore []ArticleTag
	require.NoError(t, db.Order("id").Find(&linksBefore).Error)

	req := decode(t, body)
	req.ID = id
	_, err = svc.Save(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, before, galleryImages(t, db, id))
	var linksAfter []ArticleTag
	require.NoError(t, db.Order("id").Find(&linksAfter).Error)
	assert.Equal(t, linksBefore, linksAfter)

	var covers int64
	require.NoError(t, db.Model(&Cover{}).Count(&covers).Error)
	assert.EqualValues(t, 1, covers)

	// a, b -> a, c keeps a and replaces b
	req = decode(t, `{"relations": {"images": [{"src": "a.png"}, {"src": "c.png"}], "files": [2, 3]}}`)
	req.ID = id
	_, err = svc.Save(ctx, req)
	require.NoError(t, err)

	after := galleryImages(t, db, id)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, "c.png", after[1].Src)
	assert.NotEqual(t, before[1].ID, after[1].ID)

	var fileIDs []uint
	require.NoError(t, db.Model(&ArticleFile{}).Where("article_id = ?", id).Order("file_id").Pluck("file_id", &fileIDs).Error)
	assert.Equal(t, []uint{2, 3}, fileIDs)

	var a Article
	require.NoError(t, db.First(&a, id).Error)
	assert.Equal(t, "Hello", a.Title, "fields left out are kept")
}

func TestService_SaveClearsCover(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_clear_cover")

	res, err := svc.Save(ctx, decode(t, `{"title": "Hello", "relations": {"cover": {"url": "cover.png"}}}`))
	require.NoError(t, err)
	id := utils.ToInt(res.ID)

	req := decode(t, `{"relations": {"cover": null}}`)
	req.ID = id
	_, err = svc.Save(ctx, req)
	require.NoError(t, err)

	var a Article
	require.NoError(t, db.First(&a, id).Error)
	assert.Nil(t, a.CoverID)

	var covers int64
	require.NoError(t, db.Model(&Cover{}).Count(&covers).Error)
	assert.Zero(t, covers)
}

func TestService_SaveRejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		target  error
		errAttr string
	}{
		{
			name:   "Unknown file",
			body:   `{"title": "Hello", "relations": {"images": [{"src": "a.png"}], "files": [1, 99]}}`,
			target: relation.ErrReferential,
		},
		{
			name:    "Invalid image",
			body:    `{"title": "Hello", "relations": {"images": [{"src": ""}]}}`,
			target:  relation.ErrValidation,
			errAttr: "images",
		},
		{
			name:    "Missing title",
			body:    `{"relations": {"tags": [1]}}`,
			target:  relation.ErrValidation,
			errAttr: "title",
		},
		{
			name:    "Wrong shape",
			body:    `{"title": "Hello", "relations": {"tags": "all"}}`,
			target:  relation.ErrValidation,
			errAttr: "tags",
		},
		{
			name:   "Unknown relation",
			body:   `{"title": "Hello", "relations": {"comments": []}}`,
			target: relation.ErrConfiguration,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, svc := setupTestDB(t, fmt.Sprintf("article_rejected_%d", i))

			res, err := svc.Save(context.Background(), decode(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			if tt.errAttr != "" {
				require.NotNil(t, res)
				assert.Contains(t, res.Errors, tt.errAttr)
			}

			for _, model := range []any{&Article{}, &Image{}, &ArticleFile{}, &ArticleTag{}} {
				var n int64
				require.NoError(t, db.Model(model).Count(&n).Error)
				assert.Zero(t, n, "nothing is persisted")
			}
		})
	}
}

func TestService_Preview(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_preview")

	res, err := svc.Save(ctx, decode(t, `{"title": "Hello", "relations": {"images": [{"src": "a.png"}], "files": [1]}}`))
	require.NoError(t, err)
	id := utils.ToInt(res.ID)

	req := decode(t, `{"relations": {"images": [{"src": "a.png"}, {"src": "b.png"}], "files": [2]}}`)
	req.ID = id
	preview, err := svc.Preview(ctx, req)
	require.NoError(t, err)
	require.Len(t, preview.Plans, 2)

	assert.Equal(t, "images", preview.Plans[0].Attribute)
	assert.Equal(t, relation.PlanSummary{Inserts: 1, Unchanged: 1}, preview.Plans[0].Summary)
	assert.Equal(t, "files", preview.Plans[1].Attribute)
	assert.Equal(t, relation.PlanSummary{Inserts: 1, Deletes: 1}, preview.Plans[1].Summary)
	assert.Empty(t, preview.Errors)

	assert.Len(t, galleryImages(t, db, id), 1, "preview writes nothing")
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_delete")

	res, err := svc.Save(ctx, decode(t, `{
		"title": "Hello",
		"relations": {"cover": {"url": "c.png"}, "images": [{"src": "a.png"}], "files": [1], "tags": [1]}
	}`))
	require.NoError(t, err)
	id := utils.ToInt(res.ID)

	require.NoError(t, db.Create(&Image{ArticleID: uint(id), Src: "inline.png", Type: "inline"}).Error)

	require.NoError(t, svc.Delete(ctx, id))

	for _, model := range []any{&Article{}, &Cover{}, &ArticleFile{}, &ArticleTag{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
	var inline int64
	require.NoError(t, db.Model(&Image{}).Where("type = ?", "inline").Count(&inline).Error)
	assert.EqualValues(t, 1, inline, "images outside the gallery filter are kept")

	var files, tags int64
	require.NoError(t, db.Model(&File{}).Count(&files).Error)
	require.NoError(t, db.Model(&Tag{}).Count(&tags).Error)
	assert.EqualValues(t, 3, files)
	assert.EqualValues(t, 2, tags)

	assert.ErrorIs(t, svc.Delete(ctx, id), ErrNotFound)
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []any{1, 2.5, "3"}, normalizeIDs([]any{float64(1), 2.5, "3"}))
	assert.Equal(t, "x", normalizeIDs("x"))
}

func TestService_CheckSchema(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_check_schema")

	require.NoError(t, svc.CheckSchema(ctx))

	require.NoError(t, db.Exec("CREATE TABLE legacy_covers (id INTEGER PRIMARY KEY)").Error)
	require.NoError(t, db.Exec("DROP TABLE covers").Error)
	require.NoError(t, db.Exec("ALTER TABLE legacy_covers RENAME TO covers").Error)
	svc.columns.Invalidate("covers")

	err := svc.CheckSchema(ctx)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "covers(url)")

	require.NoError(t, svc.Migrate(ctx))
	assert.NoError(t, svc.CheckSchema(ctx))
}

func TestService_SharedColumnCache(t *testing.T) {
	ctx := context.Background()
	db, svc := setupTestDB(t, "article_shared_cache")

	cache := database.NewColumnCache(time.Hour)
	shared := NewService(db, zap.NewNop(), WithColumnCache(cache))
	require.NoError(t, shared.CheckSchema(ctx))

	require.NoError(t, db.Exec("CREATE TABLE legacy_covers (id INTEGER PRIMARY KEY)").Error)
	require.NoError(t, db.Exec("DROP TABLE covers").Error)
	require.NoError(t, db.Exec("ALTER TABLE legacy_covers RENAME TO covers").Error)

	// Cached columns hide the change until the table is invalidated.
	assert.NoError(t, shared.CheckSchema(ctx))
	assert.ErrorIs(t, svc.CheckSchema(ctx), ErrSchemaMismatch, "the default service has its own cache")

	cache.Invalidate("covers")
	assert.ErrorIs(t, shared.CheckSchema(ctx), ErrSchemaMismatch)
}
