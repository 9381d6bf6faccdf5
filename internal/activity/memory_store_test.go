package activity

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/varaprasadz-boop/VenGrow-sub005/internal/types"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testEntry(entityType, entityID, category, eventType, summary string, minutes int) types.ActivityEntry {
	return types.ActivityEntry{
		EventID:           "test-" + entityID + "-" + summary,
		EventType:         eventType,
		OccurredAt:        base.Add(time.Duration(minutes) * time.Minute),
		IndexedEntityType: entityType,
		IndexedEntityID:   entityID,
		EntityRole:        "subject",
		SourceRefs:        []types.SourceRef{{EntityType: entityType, EntityID: entityID, Role: "subject"}},
		Summary:           summary,
		Category:          category,
		Actor:             "owner-1",
		Payload:           []byte(`{"k":1}`),
	}
}

func seedEntries() []types.ActivityEntry {
	return []types.ActivityEntry{
		testEntry("listing", "l1", "listing", "listing_created", "Listing created", 1),
		testEntry("listing", "l1", "listing", "listing_transitioned", "Listing moved draft -> submitted", 2),
		testEntry("listing", "l1", "listing", "listing_transitioned", "Listing moved submitted -> under_review", 3),
		testEntry("listing", "l2", "listing", "listing_created", "Listing created", 4),
		testEntry("template", "t1", "template", "template_published", "Template published", 5),
	}
}

func sqlStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "activity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewSQLStore(entsql.OpenDB(dialect.SQLite, db))
	require.NoError(t, s.CreateTable(context.Background()))
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    sqlStore(t),
	}
}

func TestStore_WriteAndQuery(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, seedEntries()))

			results, cursor, total, err := store.QueryByEntity(ctx, "listing", "l1", DefaultQueryOptions())
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			require.Len(t, results, 3)
			assert.Empty(t, cursor)
			assert.Equal(t, "Listing moved submitted -> under_review", results[0].Summary, "newest first")
			assert.Equal(t, "owner-1", results[0].Actor)
			assert.JSONEq(t, `{"k":1}`, string(results[0].Payload))
			require.Len(t, results[0].SourceRefs, 1)
			assert.True(t, results[0].OccurredAt.Equal(base.Add(3*time.Minute)))
		})
	}
}

func TestStore_FilterEventType(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, seedEntries()))

			opts := DefaultQueryOptions()
			opts.EventTypes = []string{"listing_transitioned"}
			results, _, total, err := store.QueryByEntity(ctx, "listing", "l1", opts)
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Len(t, results, 2)

			opts = DefaultQueryOptions()
			opts.Categories = []string{"template"}
			results, _, _, err = store.QueryByEntity(ctx, "listing", "l1", opts)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestStore_Pagination(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, seedEntries()))

			opts := DefaultQueryOptions()
			opts.Limit = 2
			page1, cursor, total, err := store.QueryByEntity(ctx, "listing", "l1", opts)
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			require.Len(t, page1, 2)
			require.NotEmpty(t, cursor)

			opts.Cursor = cursor
			page2, cursor, total, err := store.QueryByEntity(ctx, "listing", "l1", opts)
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			require.Len(t, page2, 1)
			assert.Empty(t, cursor)
			assert.Equal(t, "Listing created", page2[0].Summary)
		})
	}
}

func TestStore_Search(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.WriteEntries(ctx, seedEntries()))

			results, total, err := store.Search(ctx, "CREATED", DefaultSearchOptions())
			require.NoError(t, err)
			assert.Equal(t, 2, total)
			assert.Len(t, results, 2)

			opts := DefaultSearchOptions()
			opts.EntityType = "template"
			results, total, err = store.Search(ctx, "published", opts)
			require.NoError(t, err)
			assert.Equal(t, 1, total)
			assert.Equal(t, "t1", results[0].IndexedEntityID)

			_, total, err = store.Search(ctx, "OWNER-1", DefaultSearchOptions())
			require.NoError(t, err)
			assert.Equal(t, 5, total, "actor matches")
		})
	}
}

func TestMemoryStore_Len(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.WriteEntries(context.Background(), seedEntries()))
	assert.Equal(t, 5, store.Len())

	results, _, _, err := store.QueryByEntity(context.Background(), "listing", "l3", DefaultQueryOptions())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLStore_DuplicateWritesIgnored(t *testing.T) {
	ctx := context.Background()
	store := sqlStore(t)
	require.NoError(t, store.WriteEntries(ctx, seedEntries()))
	require.NoError(t, store.WriteEntries(ctx, seedEntries()))

	_, _, total, err := store.QueryByEntity(ctx, "listing", "l1", DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
