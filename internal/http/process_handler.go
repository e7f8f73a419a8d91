package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"botforge/internal/discord"
	"botforge/internal/domain"
	"botforge/internal/llm"
	"botforge/internal/service"
)

// MessageProcessor es lo que el handler necesita del pipeline; el tipo
// concreto es service.Processor.
type MessageProcessor interface {
	Process(ctx context.Context, event domain.InboundEvent) (service.ProcessResult, error)
}

// Pinger verifica conectividad con la base; *pgxpool.Pool lo satisface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProcessHandler expone el pipeline de mensajes y el health check.
type ProcessHandler struct {
	logger    *zap.Logger
	processor MessageProcessor
	db        Pinger
}

func NewProcessHandler(logger *zap.Logger, processor MessageProcessor, db Pinger) *ProcessHandler {
	return &ProcessHandler{
		logger:    logger,
		processor: processor,
		db:        db,
	}
}

// ProcessMessage maneja POST /process_discord_message.
func (h *ProcessHandler) ProcessMessage(c *gin.Context) {
	var event domain.InboundEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("invalid process request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	result, err := h.processor.Process(c.Request.Context(), event)
	if err != nil {
		h.respondFailure(c, event, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"bot_message_id":      result.BotMessageID,
		"conversation_length": result.ConversationLength,
		"is_reply":            result.IsReply,
		"processed_at":        result.ProcessedAt.Format(time.RFC3339),
	})
}

// respondFailure traduce la taxonomia de errores del pipeline al contrato
// HTTP. Ningun error del procesador sube sin convertir.
func (h *ProcessHandler) respondFailure(c *gin.Context, event domain.InboundEvent, err error) {
	var (
		clientErr   *llm.ClientError
		dispatchErr *discord.DispatchError
	)

	switch {
	case errors.Is(err, service.ErrValidation):
		h.logger.Warn("event rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})

	case errors.Is(err, service.ErrNotActionable):
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "event not actionable"})

	case errors.Is(err, service.ErrAlreadyProcessed):
		h.logger.Info("duplicate event suppressed", zap.String("message_id", event.ID))
		c.JSON(http.StatusOK, gin.H{"success": false, "error": "event already processed"})

	case errors.Is(err, service.ErrStore):
		h.logger.Error("store failure", zap.Error(err), zap.String("message_id", event.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})

	case errors.As(err, &clientErr):
		h.logger.Error("model provider rejected request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})

	case errors.As(err, &dispatchErr):
		h.logger.Error("dispatch failure", zap.Error(err), zap.String("channel_id", event.ChannelID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})

	default:
		h.logger.Error("process failed", zap.Error(err), zap.String("message_id", event.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

// Health maneja GET /health.
func (h *ProcessHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"database":  err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
