package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePayload(t *testing.T) {
	t.Run("Single", func(t *testing.T) {
		p, ok := normalizePayload(KindSingle, map[string]any{"url": "a"})
		assert.True(t, ok)
		assert.Equal(t, map[string]any{"url": "a"}, p.single)

		p, ok = normalizePayload(KindSingle, Row{"url": "a"})
		assert.True(t, ok)
		assert.Equal(t, "a", p.single["url"])

		for _, empty := range []any{nil, "", []any{}} {
			p, ok = normalizePayload(KindSingle, empty)
			assert.True(t, ok)
			assert.Nil(t, p.single)
		}

		p, ok = normalizePayload(KindSingle, map[string]string{"url": "a"})
		assert.True(t, ok)
		assert.Equal(t, map[string]any{"url": "a"}, p.single)

		_, ok = normalizePayload(KindSingle, "a")
		assert.False(t, ok)

		_, ok = normalizePayload(KindSingle, map[int]any{1: "a"})
		assert.False(t, ok)
	})

	t.Run("Multiple", func(t *testing.T) {
		p, ok := normalizePayload(KindMultiple, []Row{{"src": "a"}, {"src": "b"}})
		assert.True(t, ok)
		assert.Len(t, p.items, 2)

		p, ok = normalizePayload(KindMultiple, []map[string]string{{"src": "a"}})
		assert.True(t, ok)
		assert.Equal(t, []map[string]any{{"src": "a"}}, p.items)

		_, ok = normalizePayload(KindMultiple, map[string]any{"src": "a"})
		assert.False(t, ok)
	})

	t.Run("Many to many", func(t *testing.T) {
		for _, kind := range []Kind{KindViaEntity, KindViaTable} {
			p, ok := normalizePayload(kind, []int64{1, 2})
			assert.True(t, ok)
			assert.Equal(t, []any{int64(1), int64(2)}, p.ids)

			_, ok = normalizePayload(kind, 1)
			assert.False(t, ok)

			_, ok = normalizePayload(kind, []any{nil})
			assert.False(t, ok)

			_, ok = normalizePayload(kind, []any{1, 0})
			assert.False(t, ok)
		}
	})
}

func TestWorkingSet_LinkColumns(t *testing.T) {
	direct := &Descriptor{Attribute: "images", Target: stubKind("images"), Cardinality: Multiple, Link: Links("article_id", "id", "lang", "lang")}
	assert.NoError(t, direct.resolve())
	assert.Equal(t, []string{"article_id", "lang"}, (&WorkingSet{Descriptor: direct}).LinkColumns())

	via := &Descriptor{
		Attribute: "files", Target: stubKind("files"), Cardinality: Multiple, Link: Links("id", "file_id"),
		ViaJoinTable: &ViaJoinTable{Table: "article_files", Link: Links("article_id", "id")},
	}
	assert.NoError(t, via.resolve())
	assert.Equal(t, []string{"article_id"}, (&WorkingSet{Descriptor: via, JunctionColumn: "article_id"}).LinkColumns())
}

func TestValidate_SkipsPersistedChildren(t *testing.T) {
	d := &Descriptor{Attribute: "images", Target: stubKind("images"), Cardinality: Multiple, Link: Links("article_id", "id")}
	assert.NoError(t, d.resolve())

	persisted := &failingEntity{stubEntity: existing(map[string]any{"id": 1})}
	ws := &WorkingSet{Attribute: "images", Descriptor: d, NewEntities: []Entity{persisted}}
	assert.Nil(t, validate([]*WorkingSet{ws}, existing(map[string]any{"id": 1})))

	fresh := &failingEntity{stubEntity: candidate(map[string]any{})}
	ws.NewEntities = []Entity{fresh}
	failure := validate([]*WorkingSet{ws}, existing(map[string]any{"id": 1}))
	if assert.NotNil(t, failure) {
		assert.Equal(t, FieldErrors{"src": {"required"}}, failure.Errors)
	}
}

type failingEntity struct {
	*stubEntity
}

func (e *failingEntity) Validate() FieldErrors {
	return FieldErrors{"src": {"required"}, "article_id": {"required"}}
}
