package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatbot-api/internal/domain"
	"chatbot-api/internal/llm"
	"chatbot-api/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de chat e historial.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
	histServ *service.HistoryService
	devMode  bool
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
// Con devMode activo las respuestas de error incluyen el detalle interno.
func NewChatHandler(
	logger *zap.Logger,
	chatServ *service.ChatService,
	histServ *service.HistoryService,
	devMode bool,
) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
		histServ: histServ,
		devMode:  devMode,
	}
}

// Chat maneja POST /api/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.chatServ.Send(c.Request.Context(), req.Message, req.SessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":     result.Reply,
		"sessionId": result.SessionID,
		"timestamp": result.Timestamp,
	})
}

// History maneja GET /api/history/:sessionId.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("sessionId")

	messages, err := h.histServ.History(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": sessionID,
		"messages":  messages,
	})
}

// Sessions maneja GET /api/sessions.
func (h *ChatHandler) Sessions(c *gin.Context) {
	sessions, err := h.histServ.Sessions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// DeleteHistory maneja DELETE /api/history/:sessionId.
func (h *ChatHandler) DeleteHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.histServ.Delete(c.Request.Context(), sessionID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

// Export maneja POST /api/export. El body es opcional: sin sessionId se
// exportan todas las sesiones.
func (h *ChatHandler) Export(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	// Un body ausente o vacío equivale a exportar todo.
	_ = c.ShouldBindJSON(&req)

	sessions, err := h.histServ.Export(c.Request.Context(), req.SessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       sessions,
		"exportedAt": time.Now().UTC(),
	})
}

// Import maneja POST /api/import.
func (h *ChatHandler) Import(c *gin.Context) {
	var req struct {
		Data *[]domain.Session `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Data == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data format"})
		return
	}

	if err := h.histServ.Import(c.Request.Context(), *req.Data); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "history imported"})
}

// Clear maneja DELETE /api/clear.
func (h *ChatHandler) Clear(c *gin.Context) {
	if err := h.histServ.Clear(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "all history cleared"})
}

// Health maneja GET /health.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "chatbot-api",
	})
}

// respondError traduce la taxonomía de errores a código HTTP y mensaje para
// el usuario. Fuera de modo desarrollo nunca se exponen detalles internos.
func (h *ChatHandler) respondError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
	} else {
		h.logger.Warn("request rejected", zap.Error(err), zap.String("path", c.FullPath()))
	}

	body := gin.H{"error": message}
	if h.devMode {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, "rate limit exceeded, please try again in a few seconds"
	case errors.Is(err, llm.ErrUnavailable):
		return http.StatusServiceUnavailable, "the AI provider is unavailable, please try again later"
	case errors.Is(err, llm.ErrInvalidAPIKey):
		return http.StatusInternalServerError, "invalid API key, please check the server configuration"
	case errors.Is(err, llm.ErrContentBlocked):
		return http.StatusInternalServerError, "content was blocked by the safety filter"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "could not persist chat history"
	default:
		return http.StatusInternalServerError, "failed to process the message, please try again"
	}
}
