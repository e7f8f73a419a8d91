package service

import (
	"context"
	"fmt"
	"strings"

	"botforge/internal/domain"
	"botforge/internal/repository"
)

// ContextBuilder arma la ventana de conversacion acotada que se envia al
// modelo: historial reciente del par (usuario, canal) mas el turno nuevo.
type ContextBuilder struct {
	messages repository.MessageRepository
}

func NewContextBuilder(messages repository.MessageRepository) *ContextBuilder {
	return &ContextBuilder{messages: messages}
}

// Build devuelve a lo sumo maxMessages+1 turnos en orden cronologico. El
// mensaje nuevo se agrega al final salvo que ya sea la ultima fila
// almacenada (el procesador persiste antes de armar contexto, asi que el
// turno actual puede venir incluido en el historial).
func (b *ContextBuilder) Build(ctx context.Context, userID, channelID, newContent string, maxMessages int) ([]domain.ContextTurn, error) {
	if maxMessages <= 0 {
		maxMessages = 15
	}

	history, err := b.messages.ListRecent(ctx, userID, channelID, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}

	turns := make([]domain.ContextTurn, 0, len(history)+1)
	for _, m := range history {
		role := domain.RoleUser
		if strings.EqualFold(m.Role, domain.RoleAssistant) {
			role = domain.RoleAssistant
		}
		turns = append(turns, domain.ContextTurn{Role: role, Content: m.Content})
	}

	last := len(turns) - 1
	if last < 0 || turns[last].Role != domain.RoleUser || turns[last].Content != newContent {
		turns = append(turns, domain.ContextTurn{Role: domain.RoleUser, Content: newContent})
	}

	if len(turns) > maxMessages+1 {
		turns = turns[len(turns)-(maxMessages+1):]
	}

	return turns, nil
}
