package domain

import "time"

// DiscordUser representa a un usuario observado en el chat.
// El ID es el identificador externo que asigna Discord; nunca lo generamos.
type DiscordUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
