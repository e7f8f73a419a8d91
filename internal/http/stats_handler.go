package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"botforge/internal/repository"
)

// StatsHandler expone contadores basicos de actividad.
type StatsHandler struct {
	logger   *zap.Logger
	users    repository.UserRepository
	messages repository.MessageRepository
}

func NewStatsHandler(logger *zap.Logger, users repository.UserRepository, messages repository.MessageRepository) *StatsHandler {
	return &StatsHandler{
		logger:   logger,
		users:    users,
		messages: messages,
	}
}

// GetStats maneja GET /stats.
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	userCount, err := h.users.Count(ctx)
	if err != nil {
		h.logger.Error("count users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stats"})
		return
	}

	messageCount, err := h.messages.Count(ctx)
	if err != nil {
		h.logger.Error("count messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stats"})
		return
	}

	recentCount, err := h.messages.CountSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		h.logger.Error("count recent messages failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":          userCount,
		"total_messages": messageCount,
		"messages_24h":   recentCount,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
