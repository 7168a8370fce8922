package domain

import "time"

// Session es una vista derivada: agrupa los mensajes que comparten un
// sessionId. No se persiste de forma independiente; desaparece cuando se
// borra su último mensaje.
type Session struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
