package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatbot-api/internal/domain"
)

// Valor de ejemplo que los templates de .env suelen traer; se rechaza igual
// que una credencial vacía.
const placeholderAPIKey = "your-groq-api-key-here"

// Parámetros de generación fijos para todas las invocaciones.
const (
	genTemperature = 0.7
	genMaxTokens   = 1000
	genTopP        = 1
)

// Client define la interfaz para generar respuestas con un LLM a partir del
// mensaje nuevo y el historial previo de la sesión.
type Client interface {
	Chat(ctx context.Context, message string, history []domain.Message) (string, error)
}

// HTTPClient implementa Client contra una API de chat completions
// OpenAI-compatible (Groq).
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye el cliente y falla de inmediato si la credencial
// está vacía o es el placeholder de ejemplo, para que una mala configuración
// se detecte al arrancar y no en pleno tráfico.
func NewHTTPClient(baseURL, apiKey, model string, logger *zap.Logger) (*HTTPClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || apiKey == placeholderAPIKey {
		return nil, fmt.Errorf("%w: missing or placeholder credential", ErrInvalidAPIKey)
	}
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}, nil
}

// Chat mapea el historial al formato de turnos del proveedor, agrega el
// mensaje nuevo y hace una única llamada bloqueante, sin retry ni streaming.
func (c *HTTPClient) Chat(ctx context.Context, message string, history []domain.Message) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	for _, msg := range history {
		role := domain.RoleUser
		if msg.Role == domain.RoleAssistant {
			role = domain.RoleAssistant
		}
		messages = append(messages, chatMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, chatMessage{Role: domain.RoleUser, Content: message})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: genTemperature,
		MaxTokens:   genMaxTokens,
		TopP:        genTopP,
		Stream:      false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return "", c.translateStatus(resp.StatusCode, respBody)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if cr.Error != nil {
		return "", translateAPIError(cr.Error)
	}

	if len(cr.Choices) == 0 {
		return "", nil
	}
	if cr.Choices[0].FinishReason == "content_filter" {
		return "", ErrContentBlocked
	}
	return cr.Choices[0].Message.Content, nil
}

// translateStatus convierte el código HTTP del proveedor en una categoría de
// error estructurada; nunca inspecciona el texto del mensaje.
func (c *HTTPClient) translateStatus(status int, body []byte) error {
	if c.logger != nil {
		c.logger.Warn("llm error response",
			zap.Int("status", status),
			zap.ByteString("body", body),
		)
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err == nil && cr.Error != nil && cr.Error.Code == "content_filter" {
		return ErrContentBlocked
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status=%d", ErrInvalidAPIKey, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status=%d", ErrRateLimited, status)
	case status >= 500:
		return fmt.Errorf("%w: status=%d", ErrUnavailable, status)
	default:
		return fmt.Errorf("llm http error: status=%d", status)
	}
}

func translateAPIError(apiErr *apiError) error {
	switch apiErr.Code {
	case "invalid_api_key":
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, apiErr.Code)
	case "rate_limit_exceeded", "insufficient_quota":
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Code)
	case "content_filter":
		return ErrContentBlocked
	default:
		return fmt.Errorf("llm api error: %s", apiErr.Message)
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}
