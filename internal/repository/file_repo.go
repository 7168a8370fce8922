package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chatbot-api/internal/domain"
)

// fileDatabase es el layout del archivo JSON en disco.
type fileDatabase struct {
	Messages []domain.Message `json:"messages"`
}

// FileMessageRepository implementa MessageRepository sobre un único archivo
// JSON. Mantiene un espejo en memoria cargado de forma perezosa; el mutex
// protege cada secuencia load-modify-write para que dos Save concurrentes no
// calculen el mismo id.
type FileMessageRepository struct {
	path string

	mu     sync.Mutex
	loaded bool
	lastID int64
	data   fileDatabase
}

// NewFileMessageRepository crea un repositorio sobre el archivo indicado.
// El archivo se crea en la primera escritura; no hace falta que exista.
func NewFileMessageRepository(path string) *FileMessageRepository {
	return &FileMessageRepository{path: path}
}

// ensureLoaded materializa el archivo en memoria una sola vez por proceso.
// Debe llamarse con el lock tomado.
func (r *FileMessageRepository) ensureLoaded() error {
	if r.loaded {
		return nil
	}

	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.data = fileDatabase{Messages: []domain.Message{}}
		r.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, r.path, err)
	}

	var db fileDatabase
	if err := json.Unmarshal(raw, &db); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistence, r.path, err)
	}
	if db.Messages == nil {
		db.Messages = []domain.Message{}
	}
	r.data = db
	for _, m := range db.Messages {
		if m.ID > r.lastID {
			r.lastID = m.ID
		}
	}
	r.loaded = true
	return nil
}

// write persiste el estado en memoria con reemplazo atómico del archivo
// (archivo temporal + rename). Debe llamarse con el lock tomado.
func (r *FileMessageRepository) write() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", domain.ErrPersistence, err)
	}

	raw, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrPersistence, err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, tmp, err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrPersistence, tmp, err)
	}
	return nil
}

func (r *FileMessageRepository) Save(_ context.Context, message domain.Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return 0, err
	}

	// El contador no se compacta: borrar la sesión con el id más alto no
	// hace que ese id se vuelva a asignar.
	message.ID = r.lastID + 1
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	r.data.Messages = append(r.data.Messages, message)
	if err := r.write(); err != nil {
		// La escritura falló: el mensaje no queda en el espejo en memoria.
		r.data.Messages = r.data.Messages[:len(r.data.Messages)-1]
		return 0, err
	}
	r.lastID = message.ID
	return message.ID, nil
}

func (r *FileMessageRepository) ListBySession(_ context.Context, sessionID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0)
	for _, m := range r.data.Messages {
		if m.SessionID == sessionID {
			messages = append(messages, m)
		}
	}
	sortByTimestamp(messages)
	return messages, nil
}

func (r *FileMessageRepository) ListSessions(_ context.Context) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	copied := make([]domain.Message, len(r.data.Messages))
	copy(copied, r.data.Messages)
	return groupSessions(copied), nil
}

func (r *FileMessageRepository) DeleteSession(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return false, err
	}

	kept := make([]domain.Message, 0, len(r.data.Messages))
	for _, m := range r.data.Messages {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(r.data.Messages) {
		return false, nil
	}

	previous := r.data.Messages
	r.data.Messages = kept
	if err := r.write(); err != nil {
		r.data.Messages = previous
		return false, err
	}
	return true, nil
}

func (r *FileMessageRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(); err != nil {
		return err
	}

	previous := r.data.Messages
	r.data.Messages = []domain.Message{}
	if err := r.write(); err != nil {
		r.data.Messages = previous
		return err
	}
	return nil
}
