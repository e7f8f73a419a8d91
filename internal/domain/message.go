package domain

import "time"

// Roles de un mensaje dentro de una conversacion.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es un turno persistido de la conversacion. Las filas son
// inmutables: se insertan una vez y nunca se editan ni se borran.
type Message struct {
	ID         string          `json:"id"`
	ExternalID string          `json:"external_message_id"`
	UserID     string          `json:"user_id"`
	ChannelID  string          `json:"channel_id"`
	Content    string          `json:"content"`
	Role       string          `json:"role"`
	AgentName  string          `json:"agent_name,omitempty"`
	ReplyToID  string          `json:"reply_to_id,omitempty"`
	Metadata   MessageMetadata `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MessageMetadata guarda informacion auxiliar del turno sin tocar el
// contenido limpio: el texto original con markup de menciones, datos de
// threading y, para respuestas del bot, el modelo usado.
type MessageMetadata struct {
	OriginalContent    string `json:"original_content,omitempty"`
	ReplyToID          string `json:"reply_to_id,omitempty"`
	Model              string `json:"model,omitempty"`
	IsReply            bool   `json:"is_reply,omitempty"`
	ConversationLength int    `json:"conversation_length,omitempty"`
}

// ContextTurn es una entrada del contexto que se envia al modelo.
type ContextTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
