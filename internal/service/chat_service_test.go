package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"chatbot-api/internal/domain"
	"chatbot-api/internal/llm"
)

type mockMessageRepo struct {
	saved      []domain.Message
	saveErrOn  int // falla en el n-ésimo Save (base 1); 0 nunca falla
	saveErr    error
	history    []domain.Message
	listErr    error
	lastListed string
	nextID     int64
}

func (m *mockMessageRepo) Save(_ context.Context, message domain.Message) (int64, error) {
	if m.saveErrOn > 0 && len(m.saved)+1 == m.saveErrOn {
		return 0, m.saveErr
	}
	m.nextID++
	message.ID = m.nextID
	m.saved = append(m.saved, message)
	return message.ID, nil
}

func (m *mockMessageRepo) ListBySession(_ context.Context, sessionID string) ([]domain.Message, error) {
	m.lastListed = sessionID
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.history, nil
}

func (m *mockMessageRepo) ListSessions(_ context.Context) ([]domain.Session, error) {
	return nil, nil
}

func (m *mockMessageRepo) DeleteSession(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockMessageRepo) Clear(_ context.Context) error { return nil }

func newChatService(repo *mockMessageRepo, client llm.Client) *ChatService {
	return NewChatService(zap.NewNop(), repo, client)
}

func TestChatServiceSend_RejectsEmptyMessage(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Response: "hola"}
	svc := newChatService(repo, client)

	for _, message := range []string{"", "   ", "\n\t "} {
		if _, err := svc.Send(context.Background(), message, ""); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("message %q: expected validation error, got %v", message, err)
		}
	}
	if len(repo.saved) != 0 || client.Calls != 0 {
		t.Fatalf("expected no store or provider calls, got saves=%d calls=%d", len(repo.saved), client.Calls)
	}
}

func TestChatServiceSend_MessageLengthBoundary(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Response: "ok"}
	svc := newChatService(repo, client)

	atLimit := strings.Repeat("a", MaxMessageLength)
	if _, err := svc.Send(context.Background(), atLimit, ""); err != nil {
		t.Fatalf("expected %d chars accepted, got %v", MaxMessageLength, err)
	}

	overLimit := strings.Repeat("a", MaxMessageLength+1)
	if _, err := svc.Send(context.Background(), overLimit, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected %d chars rejected, got %v", MaxMessageLength+1, err)
	}
}

func TestChatServiceSend_MintsSessionID(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Response: "hola"}
	svc := newChatService(repo, client)

	first, err := svc.Send(context.Background(), "hola", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if first.SessionID == "" {
		t.Fatalf("expected minted session id")
	}

	second, err := svc.Send(context.Background(), "hola", "")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if second.SessionID == first.SessionID {
		t.Fatalf("expected a fresh session id per call, got %s twice", first.SessionID)
	}
}

func TestChatServiceSend_UsesSuppliedSessionVerbatim(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Response: "hola"}
	svc := newChatService(repo, client)

	result, err := svc.Send(context.Background(), "hola", "mi-sesion")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if result.SessionID != "mi-sesion" {
		t.Fatalf("expected supplied session id, got %s", result.SessionID)
	}
	if repo.lastListed != "mi-sesion" {
		t.Fatalf("expected history loaded for supplied session, got %s", repo.lastListed)
	}
}

func TestChatServiceSend_PersistsBothTurns(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Response: "respuesta"}
	svc := newChatService(repo, client)

	result, err := svc.Send(context.Background(), "pregunta", "s1")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(repo.saved) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(repo.saved))
	}
	user, assistant := repo.saved[0], repo.saved[1]
	if user.Role != domain.RoleUser || user.Content != "pregunta" {
		t.Fatalf("unexpected user turn: %#v", user)
	}
	if assistant.Role != domain.RoleAssistant || assistant.Content != "respuesta" {
		t.Fatalf("unexpected assistant turn: %#v", assistant)
	}
	if user.Timestamp.After(assistant.Timestamp) {
		t.Fatalf("user timestamp must not follow assistant timestamp")
	}
	if !result.Timestamp.Equal(assistant.Timestamp) {
		t.Fatalf("result timestamp should be the assistant persistence time")
	}
}

func TestChatServiceSend_ForwardsHistoryToProvider(t *testing.T) {
	history := []domain.Message{
		{ID: 1, SessionID: "s1", Role: domain.RoleUser, Content: "hola", Timestamp: time.Now().UTC()},
		{ID: 2, SessionID: "s1", Role: domain.RoleAssistant, Content: "buenas", Timestamp: time.Now().UTC()},
	}
	repo := &mockMessageRepo{history: history}
	client := &llm.MockClient{Response: "sigo acá"}
	svc := newChatService(repo, client)

	if _, err := svc.Send(context.Background(), "¿seguís?", "s1"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if client.LastMessage != "¿seguís?" {
		t.Fatalf("unexpected message to provider: %q", client.LastMessage)
	}
	if len(client.LastHistory) != 2 || client.LastHistory[0].Content != "hola" {
		t.Fatalf("expected prior history forwarded, got %#v", client.LastHistory)
	}
}

func TestChatServiceSend_UserWriteFailureAbortsBeforeProvider(t *testing.T) {
	repo := &mockMessageRepo{saveErrOn: 1, saveErr: domain.ErrPersistence}
	client := &llm.MockClient{Response: "hola"}
	svc := newChatService(repo, client)

	if _, err := svc.Send(context.Background(), "hola", "s1"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if client.Calls != 0 {
		t.Fatalf("provider must not be called when the user turn cannot be recorded")
	}
}

func TestChatServiceSend_AssistantWriteFailureStillReturnsReply(t *testing.T) {
	repo := &mockMessageRepo{saveErrOn: 2, saveErr: domain.ErrPersistence}
	client := &llm.MockClient{Response: "respuesta"}
	svc := newChatService(repo, client)

	result, err := svc.Send(context.Background(), "hola", "s1")
	if err != nil {
		t.Fatalf("expected reply despite assistant write failure, got %v", err)
	}
	if result.Reply != "respuesta" {
		t.Fatalf("unexpected reply: %q", result.Reply)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected only the user turn persisted, got %d", len(repo.saved))
	}
}

func TestChatServiceSend_EmptyReplyIsProviderFailure(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Response: ""}
	svc := newChatService(repo, client)

	if _, err := svc.Send(context.Background(), "hola", "s1"); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected empty reply error, got %v", err)
	}
}

func TestChatServiceSend_ProviderErrorPropagates(t *testing.T) {
	repo := &mockMessageRepo{}
	client := &llm.MockClient{Err: llm.ErrRateLimited}
	svc := newChatService(repo, client)

	if _, err := svc.Send(context.Background(), "hola", "s1"); !errors.Is(err, llm.ErrRateLimited) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}
}
