// Package journal 日记和标签的读写
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/gormtool"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/models"
)

type Options struct {
	RequireExistingUser    bool
	PlaceholderEmailDomain string
}

type Service struct {
	crud *gormtool.CRUDTool
	log  *logger.Logger
	opts Options
}

func NewService(crud *gormtool.CRUDTool, log *logger.Logger, opts Options) *Service {
	if opts.PlaceholderEmailDomain == "" {
		opts.PlaceholderEmailDomain = "example.com"
	}
	return &Service{crud: crud, log: log.With("service", "JournalService"), opts: opts}
}

// ListFilter Start/End 都是闭区间，为 nil 表示不限制
type ListFilter struct {
	UserID string
	Start  *time.Time
	End    *time.Time
}

type CreateInput struct {
	UserID  string
	Date    time.Time
	Mood    string
	Content string
	Tags    []string
}

// UpdateInput 为 nil 的字段保留原值；Tags 总是整体替换
type UpdateInput struct {
	Mood    *string
	Content *string
	Tags    []string
}

func withTags(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tags.Tag")
}

func (s *Service) cacheKey(id uint) string {
	return s.crud.GenerateCacheKey(&models.Reflection{}, id)
}

// List 按日期倒序返回某个用户的日记
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.ReflectionView, error) {
	if f.UserID == "" {
		return nil, apperr.Validation("userId is required")
	}

	start := time.Now()
	var err error
	defer func() {
		s.crud.LogOperation(ctx, "list", &models.Reflection{}, time.Since(start), err, map[string]interface{}{
			"user_id": f.UserID,
		})
	}()

	qb := &gormtool.QueryBuilder{
		Conditions: []gormtool.QueryCondition{{Field: "user_id", Operator: "=", Value: f.UserID}},
		Sorts: []gormtool.SortCondition{
			{Field: "date", Direction: "DESC"},
			{Field: "id", Direction: "DESC"},
		},
	}
	if f.Start != nil {
		qb.Conditions = append(qb.Conditions, gormtool.QueryCondition{Field: "date", Operator: ">=", Value: models.NormalizeDate(*f.Start)})
	}
	if f.End != nil {
		qb.Conditions = append(qb.Conditions, gormtool.QueryCondition{Field: "date", Operator: "<=", Value: models.NormalizeDate(*f.End)})
	}

	var rows []models.Reflection
	if err = withTags(s.crud.BuildQuery(s.crud.Conn(ctx, nil), qb)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return models.FlattenAll(rows), nil
}

// Get 先查缓存，再查库
func (s *Service) Get(ctx context.Context, id uint) (*models.ReflectionView, error) {
	key := s.cacheKey(id)
	var cached models.ReflectionView
	if s.crud.GetFromCache(ctx, key, &cached) {
		return &cached, nil
	}

	view, err := s.load(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if err := s.crud.SetToCache(ctx, key, view); err != nil {
		s.log.Warn("写缓存失败", "key", key, "error", err)
	}
	return view, nil
}

func (s *Service) load(ctx context.Context, tx *gorm.DB, id uint) (*models.ReflectionView, error) {
	start := time.Now()
	var r models.Reflection
	err := withTags(s.crud.Conn(ctx, tx)).First(&r, id).Error
	s.crud.LogOperation(ctx, "get_by_id", &r, time.Since(start), err, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("reflection not found")
		}
		return nil, err
	}
	view := r.Flatten()
	return &view, nil
}

// Create 在同一个事务里创建用户（如需要）、标签和日记
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ReflectionView, error) {
	switch {
	case in.UserID == "":
		return nil, apperr.Validation("userId is required")
	case in.Date.IsZero():
		return nil, apperr.Validation("date is required")
	case in.Mood == "":
		return nil, apperr.Validation("mood is required")
	}
	if err := validateTagNames(in.Tags); err != nil {
		return nil, err
	}

	start := time.Now()
	var err error
	defer func() {
		s.crud.LogOperation(ctx, "create", &models.Reflection{}, time.Since(start), err, map[string]interface{}{
			"user_id": in.UserID,
			"tags":    len(in.Tags),
		})
	}()

	var created models.Reflection
	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.ensureUser(ctx, tx, in.UserID); err != nil {
			return err
		}
		links, err := resolveTags(ctx, tx, in.Tags)
		if err != nil {
			return fmt.Errorf("resolve tags: %w", err)
		}
		created = models.Reflection{
			UserID:  in.UserID,
			Date:    models.NormalizeDate(in.Date),
			Mood:    in.Mood,
			Content: in.Content,
		}
		if err := tx.Omit("Tags", "User").Create(&created).Error; err != nil {
			return fmt.Errorf("create reflection: %w", err)
		}
		if err := attachTags(ctx, tx, created.ID, links); err != nil {
			return fmt.Errorf("attach tags: %w", err)
		}
		created.Tags = links
		return nil
	})
	if err != nil {
		return nil, err
	}
	view := created.Flatten()
	return &view, nil
}

// Update 标签先全部删除再重建；mood 为空字符串时保留原值，content 只有未传时才保留
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.ReflectionView, error) {
	if err := validateTagNames(in.Tags); err != nil {
		return nil, err
	}

	start := time.Now()
	var err error
	defer func() {
		s.crud.LogOperation(ctx, "update", &models.Reflection{}, time.Since(start), err, map[string]interface{}{
			"id":   id,
			"tags": len(in.Tags),
		})
	}()

	var view *models.ReflectionView
	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		var existing models.Reflection
		if err := tx.First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("reflection not found")
			}
			return err
		}

		if err := tx.Where("reflection_id = ?", id).Delete(&models.ReflectionTag{}).Error; err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		links, err := resolveTags(ctx, tx, in.Tags)
		if err != nil {
			return fmt.Errorf("resolve tags: %w", err)
		}
		if err := attachTags(ctx, tx, id, links); err != nil {
			return fmt.Errorf("attach tags: %w", err)
		}

		mood := existing.Mood
		if in.Mood != nil && *in.Mood != "" {
			mood = *in.Mood
		}
		content := existing.Content
		if in.Content != nil {
			content = *in.Content
		}
		if err := tx.Model(&existing).Updates(map[string]interface{}{
			"mood":    mood,
			"content": content,
		}).Error; err != nil {
			return fmt.Errorf("update reflection: %w", err)
		}

		view, err = s.load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 清除缓存
	if err := s.crud.DeleteFromCache(ctx, s.cacheKey(id)); err != nil {
		s.log.Warn("清除缓存失败", "id", id, "error", err)
	}
	return view, nil
}

// Delete 删除日记及其标签关联，标签本身保留
func (s *Service) Delete(ctx context.Context, id uint) error {
	start := time.Now()
	var err error
	defer func() {
		s.crud.LogOperation(ctx, "delete", &models.Reflection{}, time.Since(start), err, map[string]interface{}{"id": id})
	}()

	err = s.crud.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("reflection_id = ?", id).Delete(&models.ReflectionTag{}).Error; err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		result := tx.Delete(&models.Reflection{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("reflection not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.crud.DeleteFromCache(ctx, s.cacheKey(id)); err != nil {
		s.log.Warn("清除缓存失败", "id", id, "error", err)
	}
	return nil
}
