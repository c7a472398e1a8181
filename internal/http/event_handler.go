package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-responder/internal/domain"
	"chat-responder/internal/metrics"
	"chat-responder/internal/service"
)

// MessageProcessor procesa un evento de mensaje creado.
type MessageProcessor interface {
	HandleMessageCreated(ctx context.Context, ev domain.MessageCreatedEvent) (service.Outcome, error)
}

// EventHandler recibe eventos push de la plataforma y los procesa en la misma invocacion.
type EventHandler struct {
	logger    *zap.Logger
	processor MessageProcessor
}

// NewEventHandler crea una instancia de EventHandler con dependencias necesarias.
func NewEventHandler(logger *zap.Logger, processor MessageProcessor) *EventHandler {
	return &EventHandler{
		logger:    logger,
		processor: processor,
	}
}

// MessageCreated maneja POST /events/message-created.
// Acepta {"chat_id","message_id"} o {"document":"chats/{chatId}/messages/{messageId}"},
// con un "data" opcional con los campos del documento creado. El procesador
// vuelve a leer el mensaje, asi que data solo se registra.
func (h *EventHandler) MessageCreated(c *gin.Context) {
	var req struct {
		ChatID    string         `json:"chat_id"`
		MessageID string         `json:"message_id"`
		Document  string         `json:"document"`
		Data      map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid message created event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ev := domain.MessageCreatedEvent{
		ChatID:    strings.TrimSpace(req.ChatID),
		MessageID: strings.TrimSpace(req.MessageID),
	}
	if req.Document != "" {
		chatID, messageID, err := domain.ParseMessageDocumentPath(req.Document)
		if err != nil {
			h.logger.Warn("invalid document path", zap.String("document", req.Document))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document path"})
			return
		}
		ev.ChatID, ev.MessageID = chatID, messageID
	}
	if !ev.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id and message_id are required"})
		return
	}

	if req.Data != nil {
		role, _ := req.Data["role"].(string)
		h.logger.Debug("message created event data",
			zap.String("chat_id", ev.ChatID),
			zap.String("message_id", ev.MessageID),
			zap.Int("fields", len(req.Data)),
			zap.String("role", role),
		)
	}

	outcome, err := h.processor.HandleMessageCreated(c.Request.Context(), ev)
	metrics.EventsTotal.WithLabelValues("http", string(outcome)).Inc()
	if err != nil {
		h.logger.Error("message processing failed",
			zap.String("chat_id", ev.ChatID),
			zap.String("message_id", ev.MessageID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "message processing failed",
			"outcome": outcome,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}
