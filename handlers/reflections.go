package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/journal"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/models"
)

type ReflectionService interface {
	List(ctx context.Context, f journal.ListFilter) ([]models.ReflectionView, error)
	Get(ctx context.Context, id uint) (*models.ReflectionView, error)
	Create(ctx context.Context, in journal.CreateInput) (*models.ReflectionView, error)
	Update(ctx context.Context, id uint, in journal.UpdateInput) (*models.ReflectionView, error)
	Delete(ctx context.Context, id uint) error
	ListTags(ctx context.Context, userID string) ([]models.TagUsage, error)
}

type ReflectionHandler struct {
	svc ReflectionService
	log *logger.Logger
}

func NewReflectionHandler(svc ReflectionService, log *logger.Logger) *ReflectionHandler {
	return &ReflectionHandler{svc: svc, log: log.With("handler", "ReflectionHandler")}
}

func (h *ReflectionHandler) Register(rg gin.IRoutes) {
	rg.GET("/reflections", h.List)
	rg.POST("/reflections", h.Create)
	rg.GET("/reflections/:id", h.Get)
	rg.PUT("/reflections/:id", h.Update)
	rg.DELETE("/reflections/:id", h.Delete)
	rg.GET("/tags", h.Tags)
}

type createReflectionRequest struct {
	UserID  string   `json:"userId"`
	Date    string   `json:"date" binding:"required"`
	Mood    string   `json:"mood" binding:"required"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// updateReflectionRequest 指针字段区分"未传"和"空字符串"
type updateReflectionRequest struct {
	Mood    *string  `json:"mood"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

func (h *ReflectionHandler) List(c *gin.Context) {
	userID, err := resolveUserID(c, c.Query("userId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if userID == "" {
		respondError(c, h.log, apperr.Validation("userId is required"))
		return
	}
	start, err := parseDateQuery(c, "startDate")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	end, err := parseDateQuery(c, "endDate")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	views, err := h.svc.List(c.Request.Context(), journal.ListFilter{UserID: userID, Start: start, End: end})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *ReflectionHandler) Get(c *gin.Context) {
	view, err := h.owned(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ReflectionHandler) Create(c *gin.Context) {
	var req createReflectionRequest
	if err := bindJSON(c, &req, false); err != nil {
		respondError(c, h.log, err)
		return
	}
	userID, err := resolveUserID(c, req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if userID == "" {
		respondError(c, h.log, apperr.Validation("userId is required"))
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		respondError(c, h.log, apperr.Validationf("invalid date: %q", req.Date))
		return
	}

	view, err := h.svc.Create(c.Request.Context(), journal.CreateInput{
		UserID:  userID,
		Date:    date,
		Mood:    req.Mood,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *ReflectionHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if _, err := h.owned(c); err != nil {
		respondError(c, h.log, err)
		return
	}
	var req updateReflectionRequest
	if err := bindJSON(c, &req, true); err != nil {
		respondError(c, h.log, err)
		return
	}

	view, err := h.svc.Update(c.Request.Context(), id, journal.UpdateInput{
		Mood:    req.Mood,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ReflectionHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if _, err := h.owned(c); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ReflectionHandler) Tags(c *gin.Context) {
	userID, err := resolveUserID(c, c.Query("userId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	tags, err := h.svc.ListTags(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// owned 登录用户只能访问自己的日记；未登录时只做存在性检查
func (h *ReflectionHandler) owned(c *gin.Context) (*models.ReflectionView, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := resolveUserID(c, view.UserID); err != nil {
		return nil, apperr.Forbidden("reflection belongs to another user")
	}
	return view, nil
}
