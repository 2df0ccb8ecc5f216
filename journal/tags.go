package journal

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/models"
)

// UpsertTag 按名称查找标签，不存在则创建。名称区分大小写，不做 trim
//
// 并发创建同名标签时冲突的一方不报错，改为读取已存在的那一行
func UpsertTag(ctx context.Context, tx *gorm.DB, name string) (models.Tag, error) {
	db := tx.WithContext(ctx)

	var tag models.Tag
	err := db.Where("name = ?", name).First(&tag).Error
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tag, err
	}

	return insertTag(db, name)
}

// insertTag 唯一键冲突时读取已存在的行
func insertTag(db *gorm.DB, name string) (models.Tag, error) {
	tag := models.Tag{Name: name}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag)
	if result.Error != nil {
		return tag, result.Error
	}
	if result.RowsAffected > 0 {
		return tag, nil
	}
	tag = models.Tag{}
	err := db.Where("name = ?", name).First(&tag).Error
	return tag, err
}

// resolveTags 依次解析标签名，返回与输入顺序一致的关联（重复的名称保留）
func resolveTags(ctx context.Context, tx *gorm.DB, names []string) ([]models.ReflectionTag, error) {
	links := make([]models.ReflectionTag, 0, len(names))
	seen := make(map[string]models.Tag, len(names))
	for _, name := range names {
		tag, ok := seen[name]
		if !ok {
			var err error
			if tag, err = UpsertTag(ctx, tx, name); err != nil {
				return nil, err
			}
			seen[name] = tag
		}
		links = append(links, models.ReflectionTag{TagID: tag.ID, Tag: tag})
	}
	return links, nil
}

// attachTags 逐条插入，保证自增 ID 与标签顺序一致
func attachTags(ctx context.Context, tx *gorm.DB, reflectionID uint, links []models.ReflectionTag) error {
	for i := range links {
		links[i].ReflectionID = reflectionID
		if err := tx.WithContext(ctx).Omit("Tag").Create(&links[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateTagNames(names []string) error {
	for _, name := range names {
		if name == "" {
			return apperr.Validation("tag names must not be empty")
		}
	}
	return nil
}

// ListTags userID 为空时返回全部标签；否则只返回该用户用过的标签，计数也只算该用户
func (s *Service) ListTags(ctx context.Context, userID string) ([]models.TagUsage, error) {
	start := time.Now()
	var err error
	defer func() {
		s.crud.LogOperation(ctx, "list_tags", &models.Tag{}, time.Since(start), err, map[string]interface{}{
			"user_id": userID,
		})
	}()

	q := s.crud.Conn(ctx, nil).
		Table("tags").
		Select("tags.id AS id, tags.name AS name, COUNT(reflection_tags.id) AS count").
		Joins("LEFT JOIN reflection_tags ON reflection_tags.tag_id = tags.id")
	if userID != "" {
		q = q.Joins("JOIN reflections ON reflections.id = reflection_tags.reflection_id").
			Where("reflections.user_id = ?", userID)
	}

	out := []models.TagUsage{}
	if err = q.Group("tags.id, tags.name").Order("tags.name ASC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
