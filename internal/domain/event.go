package domain

import (
	"errors"
	"strings"
)

// InboundEvent es el evento de chat que llega por HTTP desde el filtro de
// eventos. Es la version tipada del payload JSON: los campos requeridos se
// validan en el borde y nunca propagamos mapas sueltos hacia adentro.
type InboundEvent struct {
	ID               string        `json:"id"`
	Content          string        `json:"content"`
	ChannelID        string        `json:"channel_id"`
	GuildID          string        `json:"guild_id,omitempty"`
	ReplyToMessageID string        `json:"reply_to_message_id,omitempty"`
	Author           EventAuthor   `json:"author"`
	Mentions         []EventAuthor `json:"mentions,omitempty"`
}

// EventAuthor identifica al autor de un evento o a un usuario mencionado.
type EventAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot,omitempty"`
}

var (
	ErrEventMissingID      = errors.New("event missing message id")
	ErrEventMissingAuthor  = errors.New("event missing author id")
	ErrEventMissingChannel = errors.New("event missing channel id")
	ErrEventMissingContent = errors.New("event missing content")
)

// Validate verifica los campos requeridos antes de cualquier escritura.
func (e InboundEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEventMissingID
	}
	if strings.TrimSpace(e.Author.ID) == "" {
		return ErrEventMissingAuthor
	}
	if strings.TrimSpace(e.ChannelID) == "" {
		return ErrEventMissingChannel
	}
	if strings.TrimSpace(e.Content) == "" {
		return ErrEventMissingContent
	}
	return nil
}

// IsReply indica si el evento responde a un mensaje anterior.
func (e InboundEvent) IsReply() bool {
	return strings.TrimSpace(e.ReplyToMessageID) != ""
}

// DispatchResult es la confirmacion que devuelve la superficie de chat al
// entregar un mensaje.
type DispatchResult struct {
	MessageID string `json:"id"`
	ChannelID string `json:"channel_id"`
}
