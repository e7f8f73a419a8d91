package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisCmder struct {
	existing map[string]bool

	lastExistsKey string
	existsErr     error

	lastSetKey string
	lastSetTTL time.Duration
}

func (m *mockRedisCmder) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExistsKey = keys[0]
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	if m.existing[keys[0]] {
		cmd.SetVal(1)
	}
	return cmd
}

func (m *mockRedisCmder) SetNX(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	m.lastSetKey = key
	m.lastSetTTL = expiration
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func TestRedisProcessedMarker_Seen(t *testing.T) {
	t.Run("nil marker abre el paso", func(t *testing.T) {
		var m *redisProcessedMarker
		if m.Seen(context.Background(), "m1") {
			t.Fatal("expected fail-open for nil marker")
		}
	})

	t.Run("id nuevo", func(t *testing.T) {
		cmder := &mockRedisCmder{}
		m := &redisProcessedMarker{client: cmder, ttl: time.Hour, prefix: "msg:processed:"}

		if m.Seen(context.Background(), "m1") {
			t.Fatal("expected fresh id to pass")
		}
		if cmder.lastExistsKey != "msg:processed:m1" {
			t.Fatalf("unexpected key %q", cmder.lastExistsKey)
		}
	})

	t.Run("id ya marcado", func(t *testing.T) {
		cmder := &mockRedisCmder{existing: map[string]bool{"msg:processed:m1": true}}
		m := &redisProcessedMarker{client: cmder, ttl: time.Hour, prefix: "msg:processed:"}

		if !m.Seen(context.Background(), "m1") {
			t.Fatal("expected completed id to be reported as seen")
		}
	})

	t.Run("error de redis abre el paso", func(t *testing.T) {
		cmder := &mockRedisCmder{existsErr: errors.New("connection refused")}
		m := &redisProcessedMarker{client: cmder, ttl: time.Hour, prefix: "msg:processed:"}

		if m.Seen(context.Background(), "m1") {
			t.Fatal("expected fail-open on redis error")
		}
	})

	t.Run("id vacio abre el paso", func(t *testing.T) {
		cmder := &mockRedisCmder{}
		m := &redisProcessedMarker{client: cmder, ttl: time.Hour, prefix: "msg:processed:"}

		if m.Seen(context.Background(), "  ") {
			t.Fatal("expected empty id to pass through")
		}
		if cmder.lastExistsKey != "" {
			t.Fatal("expected no redis call for empty id")
		}
	})
}

func TestRedisProcessedMarker_Mark(t *testing.T) {
	t.Run("registra con ttl", func(t *testing.T) {
		cmder := &mockRedisCmder{}
		m := &redisProcessedMarker{client: cmder, ttl: time.Hour, prefix: "msg:processed:"}

		m.Mark(context.Background(), "m1")
		if cmder.lastSetKey != "msg:processed:m1" {
			t.Fatalf("unexpected key %q", cmder.lastSetKey)
		}
		if cmder.lastSetTTL != time.Hour {
			t.Fatalf("unexpected ttl %v", cmder.lastSetTTL)
		}
	})

	t.Run("id vacio no registra", func(t *testing.T) {
		cmder := &mockRedisCmder{}
		m := &redisProcessedMarker{client: cmder, ttl: time.Hour, prefix: "msg:processed:"}

		m.Mark(context.Background(), "  ")
		if cmder.lastSetKey != "" {
			t.Fatal("expected no redis call for empty id")
		}
	})
}
