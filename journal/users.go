package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/models"
)

const placeholderName = "Journal User"

// ErrUserProvisioning 自动创建用户失败（区别于参数错误）
var ErrUserProvisioning = errors.New("user provisioning failed")

// PlaceholderEmail 去掉 id 中的非字母数字字符后拼接域名
func PlaceholderEmail(userID, domain string) string {
	local := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return -1
	}, userID)
	if local == "" {
		local = "user"
	}
	return local + "@" + domain
}

// ensureUser 用户不存在时按配置自动创建
func (s *Service) ensureUser(ctx context.Context, tx *gorm.DB, userID string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if s.opts.RequireExistingUser {
		return apperr.NotFound("user not found")
	}

	user := models.User{
		ID:    userID,
		Email: PlaceholderEmail(userID, s.opts.PlaceholderEmailDomain),
		Name:  placeholderName,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return apperr.Internal("failed to create user", fmt.Errorf("%w: %v", ErrUserProvisioning, err))
	}
	s.log.Info("auto-provisioned user", "user_id", userID)
	return nil
}
