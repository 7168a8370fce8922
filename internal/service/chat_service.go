package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatbot-api/internal/domain"
	"chatbot-api/internal/llm"
	"chatbot-api/internal/repository"
)

// MaxMessageLength es el largo máximo aceptado para un mensaje entrante,
// en caracteres.
const MaxMessageLength = 10000

var ErrEmptyReply = errors.New("llm empty response")

// ChatResult es el resultado de un turno completo de conversación.
type ChatResult struct {
	Reply     string
	SessionID string
	Timestamp time.Time
}

// ChatService secuencia un turno de chat de punta a punta: validación,
// resolución de sesión, carga de historial, persistencia del turno del
// usuario, llamada al proveedor y persistencia de la respuesta. No guarda
// estado entre requests más allá de lo que lee del repositorio.
type ChatService struct {
	logger *zap.Logger
	repo   repository.MessageRepository
	client llm.Client
}

func NewChatService(logger *zap.Logger, repo repository.MessageRepository, client llm.Client) *ChatService {
	return &ChatService{
		logger: logger,
		repo:   repo,
		client: client,
	}
}

// Send procesa un turno. Si sessionID viene vacío se acuña uno nuevo; si
// viene informado se usa tal cual, sin verificar que exista.
func (s *ChatService) Send(ctx context.Context, message, sessionID string) (ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return ChatResult{}, fmt.Errorf("%w: message must not be empty", domain.ErrValidation)
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return ChatResult{}, fmt.Errorf("%w: message exceeds %d characters", domain.ErrValidation, MaxMessageLength)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return ChatResult{}, err
	}

	// El turno del usuario se persiste antes de llamar al proveedor: si no
	// se puede registrar, no se incurre en la llamada remota.
	if _, err := s.repo.Save(ctx, domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   message,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return ChatResult{}, err
	}

	reply, err := s.client.Chat(ctx, message, history)
	if err != nil {
		return ChatResult{}, err
	}
	if reply == "" {
		return ChatResult{}, ErrEmptyReply
	}

	assistantAt := time.Now().UTC()
	if _, err := s.repo.Save(ctx, domain.Message{
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: assistantAt,
	}); err != nil {
		// La respuesta ya fue generada; un fallo secundario de escritura no
		// debe bloquear la respuesta al usuario.
		s.logger.Warn("assistant turn persist failed",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
	}

	return ChatResult{
		Reply:     reply,
		SessionID: sessionID,
		Timestamp: assistantAt,
	}, nil
}
