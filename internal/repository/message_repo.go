package repository

import (
	"context"
	"sort"

	"chatbot-api/internal/domain"
)

// MessageRepository define el contrato de persistencia de mensajes.
// El almacén es la única fuente de verdad: no hay índices secundarios y
// cada lectura recorre la colección completa.
type MessageRepository interface {
	// Save asigna el siguiente id (max actual + 1), persiste el mensaje de
	// forma síncrona y devuelve el id asignado.
	Save(ctx context.Context, message domain.Message) (int64, error)
	// ListBySession devuelve los mensajes de una sesión ordenados por
	// timestamp ascendente. Sesión desconocida devuelve slice vacío, no error.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error)
	// ListSessions agrupa todos los mensajes por sesión y devuelve las
	// sesiones ordenadas por updatedAt descendente.
	ListSessions(ctx context.Context) ([]domain.Session, error)
	// DeleteSession elimina todos los mensajes de la sesión e indica si
	// existía alguno.
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	// Clear vacía el almacén completo.
	Clear(ctx context.Context) error
}

// sortByTimestamp ordena mensajes por timestamp ascendente, con el id como
// desempate para timestamps idénticos.
func sortByTimestamp(messages []domain.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp.Equal(messages[j].Timestamp) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// groupSessions construye las vistas de sesión a partir del conjunto completo
// de mensajes, ordenadas por updatedAt descendente.
func groupSessions(messages []domain.Message) []domain.Session {
	byID := make(map[string][]domain.Message)
	for _, msg := range messages {
		byID[msg.SessionID] = append(byID[msg.SessionID], msg)
	}

	sessions := make([]domain.Session, 0, len(byID))
	for sessionID, msgs := range byID {
		sortByTimestamp(msgs)
		sessions = append(sessions, domain.Session{
			SessionID: sessionID,
			Messages:  msgs,
			CreatedAt: msgs[0].Timestamp,
			UpdatedAt: msgs[len(msgs)-1].Timestamp,
		})
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}
