package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studieren/mindjournal/apperr"
	"github.com/studieren/mindjournal/insights"
	"github.com/studieren/mindjournal/journal"
	"github.com/studieren/mindjournal/logger"
	"github.com/studieren/mindjournal/models"
)

type ReflectionLister interface {
	List(ctx context.Context, f journal.ListFilter) ([]models.ReflectionView, error)
}

type InsightsHandler struct {
	src  ReflectionLister
	log  *logger.Logger
	opts insights.Options
	now  func() time.Time
}

func NewInsightsHandler(src ReflectionLister, log *logger.Logger, opts insights.Options) *InsightsHandler {
	return &InsightsHandler{src: src, log: log.With("handler", "InsightsHandler"), opts: opts, now: time.Now}
}

func (h *InsightsHandler) Register(rg gin.IRoutes) {
	rg.GET("/insights", h.Insights)
	rg.GET("/calendar/week", h.Week)
}

func (h *InsightsHandler) userID(c *gin.Context) (string, error) {
	userID, err := resolveUserID(c, c.Query("userId"))
	if err != nil {
		return "", err
	}
	if userID == "" {
		return "", apperr.Validation("userId is required")
	}
	return userID, nil
}

func (h *InsightsHandler) Insights(c *gin.Context) {
	userID, err := h.userID(c)
	if err != nil {
		respondError(c, h.log, err)
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

	views, err := h.src.List(c.Request.Context(), journal.ListFilter{UserID: userID, Start: start, End: end})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, insights.Analyze(views, h.now().UTC(), h.opts))
}

// Week date 缺省为今天（UTC）
func (h *InsightsHandler) Week(c *gin.Context) {
	userID, err := h.userID(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	anchor := h.now().UTC()
	d, err := parseDateQuery(c, "date")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if d != nil {
		anchor = *d
	}

	start, end := insights.WeekBounds(anchor)
	views, err := h.src.List(c.Request.Context(), journal.ListFilter{UserID: userID, Start: &start, End: &end})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, insights.BuildWeek(anchor, views))
}
