package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatbot-api/internal/domain"
)

// PgMessageRepository implementa MessageRepository sobre Postgres. Es la
// alternativa al archivo JSON para despliegues con base de datos; se activa
// cuando DATABASE_URL está configurada.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// EnsureSchema crea la tabla de mensajes si no existe. Se invoca una vez al
// arrancar el proceso.
func (r *PgMessageRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGINT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *PgMessageRepository) Save(ctx context.Context, message domain.Message) (int64, error) {
	// El id se calcula dentro del INSERT para conservar el contrato max+1
	// sin una lectura previa separada.
	const query = `
		INSERT INTO messages (id, session_id, role, content, created_at)
		SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, COALESCE($4::timestamptz, NOW())
		FROM messages
		RETURNING id
	`

	var createdAt interface{}
	if !message.Timestamp.IsZero() {
		createdAt = message.Timestamp
	}

	var id int64
	err := r.pool.QueryRow(ctx, query,
		message.SessionID,
		message.Role,
		message.Content,
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert message: %v", domain.ErrPersistence, err)
	}
	return id, nil
}

func (r *PgMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	const query = `
		SELECT id, session_id, role, content, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: list session: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", domain.ErrPersistence, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list session: %v", domain.ErrPersistence, err)
	}
	return messages, nil
}

func (r *PgMessageRepository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	const query = `
		SELECT id, session_id, role, content, created_at
		FROM messages
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", domain.ErrPersistence, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", domain.ErrPersistence, err)
	}
	return groupSessions(messages), nil
}

func (r *PgMessageRepository) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	const query = `DELETE FROM messages WHERE session_id = $1`

	tag, err := r.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return false, fmt.Errorf("%w: delete session: %v", domain.ErrPersistence, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgMessageRepository) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("%w: clear messages: %v", domain.ErrPersistence, err)
	}
	return nil
}
