package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"botforge/internal/domain"
)

// MaxMessageLength es el limite de caracteres de un mensaje de Discord.
const MaxMessageLength = 2000

// DispatchError representa un fallo al entregar un mensaje a Discord
// (permisos, rate limit, red). Lleva el status y el detalle de la API.
type DispatchError struct {
	Status int
	Reason string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("discord dispatch error: status=%d %s", e.Status, e.Reason)
}

// Dispatcher define el contrato de entrega hacia la superficie de chat.
type Dispatcher interface {
	Send(ctx context.Context, channelID, content, replyToID string) (domain.DispatchResult, error)
}

// RESTDispatcher entrega mensajes via la API REST de Discord.
type RESTDispatcher struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func NewRESTDispatcher(baseURL, token string, logger *zap.Logger) *RESTDispatcher {
	if baseURL == "" {
		baseURL = "https://discord.com/api/v10"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTDispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type createMessageRequest struct {
	Content          string            `json:"content"`
	MessageReference *messageReference `json:"message_reference,omitempty"`
}

type messageReference struct {
	MessageID string `json:"message_id"`
}

// Send publica el contenido en el canal. Si replyToID viene, el mensaje se
// crea como respuesta enlazada al original. El contenido se trunca al
// limite de Discord sin partir un caracter multibyte.
func (d *RESTDispatcher) Send(ctx context.Context, channelID, content, replyToID string) (domain.DispatchResult, error) {
	payload := createMessageRequest{
		Content: Truncate(content, MaxMessageLength),
	}
	if replyToID != "" {
		payload.MessageReference = &messageReference{MessageID: replyToID}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", d.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.DispatchResult{}, &DispatchError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.DispatchResult{}, &DispatchError{Status: resp.StatusCode, Reason: err.Error()}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		d.logger.Warn("discord send failed",
			zap.Int("status", resp.StatusCode),
			zap.String("channel_id", channelID))
		return domain.DispatchResult{}, &DispatchError{
			Status: resp.StatusCode,
			Reason: strings.TrimSpace(string(respBody)),
		}
	}

	var created struct {
		ID        string `json:"id"`
		ChannelID string `json:"channel_id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return domain.DispatchResult{}, &DispatchError{Status: resp.StatusCode, Reason: "unparseable response"}
	}

	return domain.DispatchResult{MessageID: created.ID, ChannelID: created.ChannelID}, nil
}

// Truncate recorta s a max caracteres (runas, que es como cuenta Discord),
// sin partir nunca un caracter multibyte a la mitad.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
