package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedMarker recuerda ids de mensajes cuyo turno ya cerro con exito,
// para absorber reentregas sin repetir el turno completo.
type ProcessedMarker interface {
	// Seen informa si el id ya fue marcado como procesado.
	Seen(ctx context.Context, messageID string) bool
	// Mark registra el id. Se llama recien al cerrar el turno con exito:
	// un turno fallido tiene que poder reintentarse con el mismo id.
	Mark(ctx context.Context, messageID string)
}

type redisCmder interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type redisProcessedMarker struct {
	client redisCmder
	ttl    time.Duration
	prefix string
}

func NewRedisProcessedMarker(client *redis.Client, ttl time.Duration) ProcessedMarker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisProcessedMarker{
		client: client,
		ttl:    ttl,
		prefix: "msg:processed:",
	}
}

// Seen devuelve true solo si el id figura registrado. Ante cualquier fallo
// de redis abre el paso: preferimos procesar un duplicado a perder un
// mensaje, y el insert de mensajes ya es idempotente.
func (m *redisProcessedMarker) Seen(ctx context.Context, messageID string) bool {
	if m == nil || m.client == nil {
		return false
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	n, err := m.client.Exists(ctx, m.prefix+messageID).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// Mark registra el id con TTL. Best-effort: si redis falla, la proxima
// reentrega la absorbe igual el ON CONFLICT del store.
func (m *redisProcessedMarker) Mark(ctx context.Context, messageID string) {
	if m == nil || m.client == nil {
		return
	}
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	m.client.SetNX(ctx, m.prefix+messageID, 1, m.ttl)
}
