package journal

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studieren/mindjournal/models"
	"github.com/studieren/mindjournal/testutil"
)

func TestUpsertTagIsIdempotentAndCaseSensitive(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	first, err := UpsertTag(ctx, db, "stress")
	require.NoError(t, err)
	second, err := UpsertTag(ctx, db, "stress")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	upper, err := UpsertTag(ctx, db, "Stress")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, upper.ID)

	padded, err := UpsertTag(ctx, db, " stress")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, padded.ID)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestListTags(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "3", Tags: []string{"work", "sleep"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-02"), Mood: "3", Tags: []string{"work"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{UserID: "u2", Date: testutil.Date(t, "2024-05-02"), Mood: "3", Tags: []string{"work", "gym"}})
	require.NoError(t, err)

	all, err := svc.ListTags(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "gym", all[0].Name)
	assert.Equal(t, int64(1), all[0].Count)
	assert.Equal(t, "work", all[2].Name)
	assert.Equal(t, int64(3), all[2].Count)

	mine, err := svc.ListTags(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "sleep", mine[0].Name)
	assert.Equal(t, "work", mine[1].Name)
	assert.Equal(t, int64(2), mine[1].Count)

	none, err := svc.ListTags(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPlaceholderEmail(t *testing.T) {
	assert.Equal(t, "auth0abc123@example.com", PlaceholderEmail("auth0|abc-123", "example.com"))
	assert.Equal(t, "user@journal.local", PlaceholderEmail("|||", "journal.local"))
	assert.Equal(t, "abc@example.com", PlaceholderEmail("a✓b c", "example.com"))
}

func TestInsertTagReturnsExistingOnConflict(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	existing, err := UpsertTag(ctx, db, "work")
	require.NoError(t, err)

	got, err := insertTag(db.WithContext(ctx), "work")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
	assert.Equal(t, "work", got.Name)

	var count int64
	require.NoError(t, db.Model(&models.Tag{}).Where("name = ?", "work").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertTagConcurrent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	const workers = 10
	ids := make(chan uint, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tag, err := UpsertTag(ctx, db, "shared")
			if err != nil {
				errs <- err
				return
			}
			ids <- tag.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Errorf("upsert failed: %v", err)
	}
	seen := map[uint]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}
