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

	"botforge/internal/domain"
)

// Completion es el resultado de una generacion. Fallback indica que la
// respuesta es el texto de contingencia porque el proveedor no contesto a
// tiempo: la politica de "siempre responder" vive en el tipo, no en un
// catch escondido.
type Completion struct {
	Text     string
	Fallback bool
}

// ClientError es un error no transitorio del proveedor (credenciales,
// request malformado). Nunca se enmascara con fallback.
type ClientError struct {
	Status  int
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("llm client error: status=%d %s", e.Status, e.Message)
}

// LLMClient define la interfaz para generar respuestas y embeddings.
type LLMClient interface {
	Generate(ctx context.Context, system string, turns []domain.ContextTurn) (Completion, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPClient implementa LLMClient contra una API OpenAI-compatible.
type HTTPClient struct {
	baseURL         string
	apiKey          string
	model           string
	embeddingModel  string
	maxTokens       int
	temperature     float64
	fallbackTimeout string
	fallbackError   string
	client          *http.Client
	logger          *zap.Logger
}

// Options ajusta el comportamiento del cliente; los ceros toman defaults.
type Options struct {
	EmbeddingModel  string
	MaxTokens       int
	Temperature     float64
	Timeout         time.Duration
	FallbackTimeout string
	FallbackError   string
}

// NewHTTPClient construye un cliente apuntando a la API de chat completions.
func NewHTTPClient(baseURL, apiKey, model string, opts Options, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1500
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.FallbackTimeout == "" {
		opts.FallbackTimeout = "I'm experiencing a brief connection delay. Could you repeat that? I'm here and ready to help! 🤖"
	}
	if opts.FallbackError == "" {
		opts.FallbackError = "I'm having a technical moment. Please try again in a few seconds! 🔧"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		model:           model,
		embeddingModel:  opts.EmbeddingModel,
		maxTokens:       opts.MaxTokens,
		temperature:     opts.Temperature,
		fallbackTimeout: opts.FallbackTimeout,
		fallbackError:   opts.FallbackError,
		client:          &http.Client{Timeout: opts.Timeout},
		logger:          logger,
	}
}

// Generate envia el contexto como turnos etiquetados con un turno system al
// frente. Timeouts y fallas de transporte degradan a fallback; los errores
// 4xx del proveedor suben como *ClientError.
func (c *HTTPClient) Generate(ctx context.Context, system string, turns []domain.ContextTurn) (Completion, error) {
	messages := make([]chatMessage, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, t := range turns {
		messages = append(messages, chatMessage{Role: t.Role, Content: t.Content})
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("llm timeout, using fallback", zap.Error(err))
			return Completion{Text: c.fallbackTimeout, Fallback: true}, nil
		}
		c.logger.Warn("llm transport failure, using fallback", zap.Error(err))
		return Completion{Text: c.fallbackError, Fallback: true}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("llm read failure, using fallback", zap.Error(err))
		return Completion{Text: c.fallbackError, Fallback: true}, nil
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Error de configuracion (credenciales, request invalido): debe
		// llegar al operador con el diagnostico del proveedor.
		return Completion{}, &ClientError{
			Status:  resp.StatusCode,
			Message: providerMessage(respBody),
		}
	}
	if resp.StatusCode >= 500 {
		c.logger.Warn("llm server error, using fallback",
			zap.Int("status", resp.StatusCode))
		return Completion{Text: c.fallbackError, Fallback: true}, nil
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		c.logger.Warn("llm unparseable response, using fallback", zap.Error(err))
		return Completion{Text: c.fallbackError, Fallback: true}, nil
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		c.logger.Warn("llm empty response, using fallback")
		return Completion{Text: c.fallbackError, Fallback: true}, nil
	}

	return Completion{Text: strings.TrimSpace(cr.Choices[0].Message.Content)}, nil
}

// Embed genera el vector del texto via la API de embeddings.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embeddingModel == "" {
		return nil, errors.New("embedding model not configured")
	}

	bodyBytes, err := json.Marshal(embeddingRequest{
		Model: c.embeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embeddings http error: status=%d", resp.StatusCode)
	}

	var er embeddingResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, errors.New("embeddings empty response")
	}
	return er.Data[0].Embedding, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func providerMessage(body []byte) string {
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err == nil && cr.Error != nil && cr.Error.Message != "" {
		return cr.Error.Message
	}
	return strings.TrimSpace(string(body))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
