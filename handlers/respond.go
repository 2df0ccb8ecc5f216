// Package handlers HTTP 接口层，负责参数解析和错误到状态码的转换
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/middleware"
	"github.com/studieren/mindjournal/models"
)

// RegisterValidation 让校验错误使用 json 字段名
func RegisterValidation() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

func init() {
	RegisterValidation()
}

// respondError 5xx 记录真实错误，只返回通用信息
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

// bindJSON 空 body 视为 {}（allowEmpty 时）
func bindJSON(c *gin.Context, obj interface{}, allowEmpty bool) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return bindError(err)
}

func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, e.Field()+" "+friendlyMessage(e))
		}
		return apperr.Validation(strings.Join(msgs, "; "))
	}
	if errors.Is(err, io.EOF) {
		return apperr.Validation("request body is required")
	}
	return apperr.Validationf("invalid request body: %v", err)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	default:
		return "is invalid"
	}
}

// parseID 非数字 id 一律当作不存在
func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound("reflection not found")
	}
	return uint(id), nil
}

func parseDateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, apperr.Validationf("invalid %s: %q", key, raw)
	}
	return &d, nil
}

// resolveUserID 登录后 userId 默认取 token；显式传入的 userId 必须与 token 一致。
// userId 原样使用，不做 trim
func resolveUserID(c *gin.Context, requested string) (string, error) {
	subject, authed := middleware.UserID(c)
	if !authed {
		return requested, nil
	}
	if requested == "" {
		return subject, nil
	}
	if requested != subject {
		return "", apperr.Forbidden("userId does not match the authenticated user")
	}
	return requested, nil
}
