package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/models"
	"github.com/studieren/mindjournal/testutil"
)

func TestGetReadsThroughCache(t *testing.T) {
	crud, mr := testutil.CRUDWithRedis(t)
	svc := NewService(crud, testutil.Logger(t), Options{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "calm", Tags: []string{"tea"}})
	require.NoError(t, err)
	key := svc.cacheKey(created.ID)
	assert.False(t, mr.Exists(key))

	first, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, []string{"tea"}, first.Tags)

	// 直接改库，不经过 Service；缓存命中时看不到这次修改
	require.NoError(t, crud.DB.Model(&models.Reflection{}).Where("id = ?", created.ID).Update("mood", "changed").Error)

	second, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "calm", second.Mood)
	assert.Equal(t, []string{"tea"}, second.Tags)

	mr.Del(key)
	third, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", third.Mood)
}

func TestUpdateInvalidatesCache(t *testing.T) {
	crud, mr := testutil.CRUDWithRedis(t)
	svc := NewService(crud, testutil.Logger(t), Options{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "calm", Tags: []string{"tea", "rain"}})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(svc.cacheKey(created.ID)))

	_, err = svc.Update(ctx, created.ID, UpdateInput{Mood: strPtr("tired"), Tags: []string{"work"}})
	require.NoError(t, err)
	assert.False(t, mr.Exists(svc.cacheKey(created.ID)))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "tired", got.Mood)
	assert.Equal(t, []string{"work"}, got.Tags)
}

func TestDeleteInvalidatesCache(t *testing.T) {
	crud, mr := testutil.CRUDWithRedis(t)
	svc := NewService(crud, testutil.Logger(t), Options{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "calm"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(svc.cacheKey(created.ID)))

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.False(t, mr.Exists(svc.cacheKey(created.ID)))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
