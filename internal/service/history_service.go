package service

import (
	"context"
	"fmt"
	"strings"

	"chatbot-api/internal/domain"
	"chatbot-api/internal/repository"
)

// HistoryService expone las operaciones de consulta y administración del
// historial: listado, borrado, export e import.
type HistoryService struct {
	repo repository.MessageRepository
}

func NewHistoryService(repo repository.MessageRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

func (s *HistoryService) Sessions(ctx context.Context) ([]domain.Session, error) {
	return s.repo.ListSessions(ctx)
}

// Delete elimina una sesión completa; una sesión sin mensajes se reporta
// como inexistente.
func (s *HistoryService) Delete(ctx context.Context, sessionID string) error {
	deleted, err := s.repo.DeleteSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	return nil
}

func (s *HistoryService) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx)
}

// Export devuelve las sesiones a exportar. Con sessionID vacío exporta todas;
// con sessionID informado devuelve esa única sesión, o una lista vacía si no
// tiene mensajes.
func (s *HistoryService) Export(ctx context.Context, sessionID string) ([]domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return s.repo.ListSessions(ctx)
	}

	messages, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return []domain.Session{}, nil
	}
	return []domain.Session{{
		SessionID: sessionID,
		Messages:  messages,
		CreatedAt: messages[0].Timestamp,
		UpdatedAt: messages[len(messages)-1].Timestamp,
	}}, nil
}

// Import reinyecta cada mensaje de cada sesión a través de Save, con lo que
// los ids se reasignan siempre. No es transaccional: un fallo a mitad de
// camino deja persistido lo ya reinyectado y se reporta como fallo global.
func (s *HistoryService) Import(ctx context.Context, sessions []domain.Session) error {
	for _, session := range sessions {
		for _, msg := range session.Messages {
			if _, err := s.repo.Save(ctx, domain.Message{
				SessionID: session.SessionID,
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
