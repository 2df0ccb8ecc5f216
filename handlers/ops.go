package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studieren/mindjournal/logger"
)

type Store interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) map[string]interface{}
}

type OpsHandler struct {
	store Store
	log   *logger.Logger
}

func NewOpsHandler(store Store, log *logger.Logger) *OpsHandler {
	return &OpsHandler{store: store, log: log.With("handler", "OpsHandler")}
}

func (h *OpsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *OpsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats(c.Request.Context()))
}
