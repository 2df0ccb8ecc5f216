package journal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/gormtool"
	"github.com/studieren/mindjournal/models"
	"github.com/studieren/mindjournal/testutil"
)

func newService(t *testing.T, opts Options) (*Service, *gormtool.CRUDTool) {
	t.Helper()
	crud := testutil.CRUD(t)
	return NewService(crud, testutil.Logger(t), opts), crud
}

func strPtr(s string) *string { return &s }

func TestCreatePreservesTagOrderAndDuplicates(t *testing.T) {
	svc, crud := newService(t, Options{})
	ctx := context.Background()
	testutil.SeedUser(t, ctx, crud.DB, "u1", "u1@example.com")

	in := []string{"work", "sleep", "work", "Stress", "stress"}
	got, err := svc.Create(ctx, CreateInput{
		UserID: "u1",
		Date:   testutil.Date(t, "2024-05-01"),
		Mood:   "😊",
		Tags:   in,
	})
	require.NoError(t, err)
	assert.Equal(t, in, got.Tags)
	assert.Equal(t, "", got.Content)
	assert.NotZero(t, got.ID)

	reloaded, err := svc.Get(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, in, reloaded.Tags)

	// work/sleep/Stress/stress 四个不同的标签
	var tagCount int64
	require.NoError(t, crud.DB.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Equal(t, int64(4), tagCount)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()
	date := testutil.Date(t, "2024-05-01")

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing user", CreateInput{Date: date, Mood: "3"}},
		{"missing date", CreateInput{UserID: "u1", Mood: "3"}},
		{"missing mood", CreateInput{UserID: "u1", Date: date}},
		{"empty tag", CreateInput{UserID: "u1", Date: date, Mood: "3", Tags: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestCreateAutoProvisionsUser(t *testing.T) {
	svc, crud := newService(t, Options{})
	ctx := context.Background()

	got, err := svc.Create(ctx, CreateInput{
		UserID: "auth0|abc-123",
		Date:   testutil.Date(t, "2024-05-01"),
		Mood:   "4",
	})
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc-123", got.UserID)

	var users []models.User
	require.NoError(t, crud.DB.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "auth0|abc-123", users[0].ID)
	assert.Equal(t, "auth0abc123@example.com", users[0].Email)

	// 再写一条不会重复创建用户
	_, err = svc.Create(ctx, CreateInput{UserID: "auth0|abc-123", Date: testutil.Date(t, "2024-05-02"), Mood: "5"})
	require.NoError(t, err)
	var count int64
	require.NoError(t, crud.DB.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateProvisioningFailureIsWriteFailure(t *testing.T) {
	svc, crud := newService(t, Options{})
	ctx := context.Background()
	// 占用 "ab" 推导出的占位邮箱
	testutil.SeedUser(t, ctx, crud.DB, "other", "ab@example.com")

	_, err := svc.Create(ctx, CreateInput{UserID: "a-b", Date: testutil.Date(t, "2024-05-01"), Mood: "3", Tags: []string{"x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserProvisioning)
	assert.False(t, errors.Is(err, apperr.ErrValidation))

	// 事务回滚，标签没有残留
	var tagCount int64
	require.NoError(t, crud.DB.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.Zero(t, tagCount)
}

func TestCreateRequireExistingUser(t *testing.T) {
	svc, _ := newService(t, Options{RequireExistingUser: true})
	_, err := svc.Create(context.Background(), CreateInput{UserID: "ghost", Date: testutil.Date(t, "2024-05-01"), Mood: "3"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListFiltersByUserAndInclusiveDateRange(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	for _, d := range []string{"2024-05-01", "2024-05-03", "2024-05-05", "2024-05-07"} {
		_, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, d), Mood: "3", Tags: []string{"t-" + d}})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, CreateInput{UserID: "u2", Date: testutil.Date(t, "2024-05-03"), Mood: "1"})
	require.NoError(t, err)

	dates := func(vs []models.ReflectionView) []string {
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			out = append(out, v.Date.Format(models.DateLayout))
		}
		return out
	}

	all, err := svc.List(ctx, ListFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-07", "2024-05-05", "2024-05-03", "2024-05-01"}, dates(all))
	assert.Equal(t, []string{"t-2024-05-07"}, all[0].Tags)

	start := testutil.Date(t, "2024-05-03")
	end := testutil.Date(t, "2024-05-05")
	ranged, err := svc.List(ctx, ListFilter{UserID: "u1", Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-05", "2024-05-03"}, dates(ranged))

	from, err := svc.List(ctx, ListFilter{UserID: "u1", Start: &end})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-07", "2024-05-05"}, dates(from))

	until, err := svc.List(ctx, ListFilter{UserID: "u1", End: &start})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-03", "2024-05-01"}, dates(until))
}

func TestListRequiresUser(t *testing.T) {
	svc, _ := newService(t, Options{})
	_, err := svc.List(context.Background(), ListFilter{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateReplacesTags(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "2", Content: "meh", Tags: []string{"a", "b"}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, UpdateInput{Tags: []string{"c", "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, updated.Tags)
	assert.Equal(t, "2", updated.Mood)
	assert.Equal(t, "meh", updated.Content)

	cleared, err := svc.Update(ctx, created.ID, UpdateInput{Tags: []string{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags)

	again, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Tags)

	// 未传 tags 也会清空
	_, err = svc.Update(ctx, created.ID, UpdateInput{Tags: []string{"x"}})
	require.NoError(t, err)
	omitted, err := svc.Update(ctx, created.ID, UpdateInput{Mood: strPtr("5")})
	require.NoError(t, err)
	assert.Empty(t, omitted.Tags)
	assert.Equal(t, "5", omitted.Mood)
}

func TestUpdateMoodAndContentFallbacks(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "😐", Content: "first"})
	require.NoError(t, err)

	got, err := svc.Update(ctx, created.ID, UpdateInput{Mood: strPtr(""), Content: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "😐", got.Mood, "empty mood keeps the stored value")
	assert.Equal(t, "", got.Content, "empty content is an intentional update")

	got, err = svc.Update(ctx, created.ID, UpdateInput{Content: strPtr("second")})
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)

	got, err = svc.Update(ctx, created.ID, UpdateInput{Mood: strPtr("😄")})
	require.NoError(t, err)
	assert.Equal(t, "😄", got.Mood)
	assert.Equal(t, "second", got.Content)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestDeleteKeepsTags(t *testing.T) {
	svc, crud := newService(t, Options{})
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: testutil.Date(t, "2024-05-01"), Mood: "3", Tags: []string{"lonely-tag"}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	var links int64
	require.NoError(t, crud.DB.Model(&models.ReflectionTag{}).Count(&links).Error)
	assert.Zero(t, links)

	var tag models.Tag
	require.NoError(t, crud.DB.Where("name = ?", "lonely-tag").First(&tag).Error)
}

func TestMissingReflectionIsNotFound(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	_, err := svc.Get(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Update(ctx, 999, UpdateInput{Mood: strPtr("3")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.Delete(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateNormalizesDate(t *testing.T) {
	svc, _ := newService(t, Options{})
	ctx := context.Background()

	local := time.Date(2024, 5, 1, 22, 15, 0, 0, time.UTC)
	got, err := svc.Create(ctx, CreateInput{UserID: "u1", Date: local, Mood: "3"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got.Date)
}

func TestCreateConcurrentWritesSucceed(t *testing.T) {
	svc, crud := newService(t, Options{})
	ctx := context.Background()

	const workers = 20
	date := testutil.Date(t, "2024-05-01")
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(ctx, CreateInput{
				UserID: fmt.Sprintf("user-%d", i%5),
				Date:   date,
				Mood:   "3",
				Tags:   []string{"shared", fmt.Sprintf("own-%d", i)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var reflections, users, shared int64
	require.NoError(t, crud.DB.Model(&models.Reflection{}).Count(&reflections).Error)
	require.NoError(t, crud.DB.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, crud.DB.Model(&models.Tag{}).Where("name = ?", "shared").Count(&shared).Error)
	assert.Equal(t, int64(workers), reflections)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(1), shared)
}
