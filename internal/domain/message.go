package domain

import "time"

// Roles válidos para un mensaje.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message representa un turno individual dentro de una conversación.
// El ID es un entero creciente único en todo el almacén; lo asigna el
// repositorio al persistir y nunca se reutiliza.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
