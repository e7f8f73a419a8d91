package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"botforge/internal/domain"
	"botforge/internal/llm"
	"botforge/internal/repository"
)

// RecallService recupera turnos viejos semanticamente afines al mensaje
// actual, mas alla de la ventana reciente. Es best-effort en ambas
// direcciones: ni guardar ni buscar embeddings puede fallar un turno.
type RecallService struct {
	logger     *zap.Logger
	llmClient  llm.LLMClient
	embeddings repository.EmbeddingRepository
	topK       int
}

func NewRecallService(logger *zap.Logger, llmClient llm.LLMClient, embeddings repository.EmbeddingRepository, topK int) *RecallService {
	if topK <= 0 {
		topK = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecallService{
		logger:     logger,
		llmClient:  llmClient,
		embeddings: embeddings,
		topK:       topK,
	}
}

// Remember vectoriza el turno y lo guarda para recuperacion futura.
func (s *RecallService) Remember(ctx context.Context, msg domain.Message) {
	if s == nil || s.llmClient == nil || s.embeddings == nil {
		return
	}

	vector, err := s.llmClient.Embed(ctx, msg.Content)
	if err != nil {
		s.logger.Warn("embed message failed", zap.Error(err), zap.String("message_id", msg.ID))
		return
	}

	embedding := domain.MessageEmbedding{
		ID:        uuid.NewString(),
		MessageID: msg.ID,
		UserID:    msg.UserID,
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
		Embedding: pgvector.NewVector(vector),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.embeddings.Create(ctx, embedding); err != nil {
		s.logger.Warn("store embedding failed", zap.Error(err), zap.String("message_id", msg.ID))
	}
}

// Recall busca los turnos guardados mas cercanos al query y los devuelve
// como lineas de texto listas para sumar al prompt. Devuelve nil ante
// cualquier fallo.
func (s *RecallService) Recall(ctx context.Context, userID, channelID, query string) []string {
	if s == nil || s.llmClient == nil || s.embeddings == nil {
		return nil
	}

	vector, err := s.llmClient.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("embed query failed", zap.Error(err))
		return nil
	}

	matches, err := s.embeddings.Search(ctx, userID, channelID, pgvector.NewVector(vector), s.topK)
	if err != nil {
		s.logger.Warn("embedding search failed", zap.Error(err))
		return nil
	}

	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		content := strings.TrimSpace(m.Content)
		if content != "" {
			lines = append(lines, content)
		}
	}
	return lines
}
