package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenKeepsAssociationOrderAndDuplicates(t *testing.T) {
	r := Reflection{
		ID:     7,
		UserID: "u1",
		Mood:   "😊",
		Tags: []ReflectionTag{
			{ID: 1, Tag: Tag{Name: "work"}},
			{ID: 2, Tag: Tag{Name: "sleep"}},
			{ID: 3, Tag: Tag{Name: "work"}},
		},
	}

	v := r.Flatten()
	assert.Equal(t, []string{"work", "sleep", "work"}, v.Tags)
	assert.Equal(t, uint(7), v.ID)
	assert.Equal(t, "u1", v.UserID)
}

func TestFlattenWithoutTagsIsEmptySlice(t *testing.T) {
	v := (&Reflection{}).Flatten()
	require.NotNil(t, v.Tags)
	assert.Empty(t, v.Tags)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-05T23:30:00-02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}
