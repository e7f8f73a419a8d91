package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"botforge/internal/discord"
	"botforge/internal/domain"
	"botforge/internal/llm"
	"botforge/internal/repository"
)

type mockUserRepo struct {
	upserted  []domain.DiscordUser
	upsertErr error
}

func (m *mockUserRepo) Upsert(_ context.Context, user domain.DiscordUser) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, user)
	return nil
}

func (m *mockUserRepo) GetByID(context.Context, string) (domain.DiscordUser, error) {
	return domain.DiscordUser{}, errors.New("not implemented")
}

func (m *mockUserRepo) Count(context.Context) (int64, error) {
	return int64(len(m.upserted)), nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// failSecondCreateRepo acepta el primer Create (turno del usuario) y falla
// el segundo (turno del asistente).
type failSecondCreateRepo struct {
	mockMessageRepo
	calls int
}

func (m *failSecondCreateRepo) Create(ctx context.Context, message domain.Message) error {
	m.calls++
	if m.calls == 2 {
		return errors.New("connection lost")
	}
	return m.mockMessageRepo.Create(ctx, message)
}

type mockDispatcher struct {
	sent   []sentMessage
	result domain.DispatchResult
	err    error
}

type sentMessage struct {
	channelID string
	content   string
	replyToID string
}

func (m *mockDispatcher) Send(_ context.Context, channelID, content, replyToID string) (domain.DispatchResult, error) {
	if m.err != nil {
		return domain.DispatchResult{}, m.err
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, content: content, replyToID: replyToID})
	return m.result, nil
}

var _ discord.Dispatcher = (*mockDispatcher)(nil)

type mockMarker struct {
	seen   map[string]bool
	marked []string
}

func (m *mockMarker) Seen(_ context.Context, id string) bool { return m.seen[id] }

func (m *mockMarker) Mark(_ context.Context, id string) {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	m.seen[id] = true
	m.marked = append(m.marked, id)
}

var _ ProcessedMarker = (*mockMarker)(nil)

type mockAlerts struct {
	subjects []string
}

func (m *mockAlerts) SendAlert(_ context.Context, subject string, _ string) error {
	m.subjects = append(m.subjects, subject)
	return nil
}

func newTestProcessor(users *mockUserRepo, messages repository.MessageRepository, client llm.LLMClient, dispatcher *mockDispatcher, filter *discord.EventFilter, processed ProcessedMarker, alerts *mockAlerts) *Processor {
	p := NewProcessor(
		zap.NewNop(),
		users,
		messages,
		NewContextBuilder(messages),
		client,
		dispatcher,
		filter,
		nil,
		processed,
		nil,
		ProcessorConfig{BotName: "Grok4Agent", Model: "grok-4-latest", MaxContextMessages: 15},
	)
	if alerts != nil {
		p.alerts = alerts
	}
	return p
}

func validEvent() domain.InboundEvent {
	return domain.InboundEvent{
		ID:        "m1",
		Content:   "<@999> hello",
		ChannelID: "c1",
		Author:    domain.EventAuthor{ID: "u1", Username: "alice"},
		Mentions:  []domain.EventAuthor{{ID: "999", Username: "Grok4Agent"}},
	}
}

func TestProcessor_Process_HappyPath(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{Completion: llm.Completion{Text: "hi alice"}}
	dispatcher := &mockDispatcher{result: domain.DispatchResult{MessageID: "bot-msg-1", ChannelID: "c1"}}
	filter := discord.NewEventFilter("999", []string{"grok"})

	p := newTestProcessor(users, messages, client, dispatcher, filter, nil, nil)

	result, err := p.Process(context.Background(), validEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(users.upserted) != 1 || users.upserted[0].ID != "u1" {
		t.Fatalf("expected user u1 upserted, got %+v", users.upserted)
	}
	if len(messages.created) != 2 {
		t.Fatalf("expected user and assistant messages persisted, got %d", len(messages.created))
	}
	if messages.created[0].Role != domain.RoleUser || messages.created[0].Content != "hello" {
		t.Fatalf("expected cleaned user message, got %+v", messages.created[0])
	}
	if messages.created[0].Metadata.OriginalContent != "<@999> hello" {
		t.Fatalf("expected original content in metadata, got %q", messages.created[0].Metadata.OriginalContent)
	}
	if messages.created[1].Role != domain.RoleAssistant || messages.created[1].Content != "hi alice" {
		t.Fatalf("expected assistant message, got %+v", messages.created[1])
	}
	if messages.created[1].AgentName != "Grok4Agent" {
		t.Fatalf("expected agent name on assistant row, got %q", messages.created[1].AgentName)
	}
	if len(dispatcher.sent) != 1 || dispatcher.sent[0].content != "hi alice" {
		t.Fatalf("expected dispatch of assistant text, got %+v", dispatcher.sent)
	}
	if result.BotMessageID != "bot-msg-1" {
		t.Fatalf("expected bot message id from dispatcher, got %q", result.BotMessageID)
	}
	if result.IsReply {
		t.Fatal("expected is_reply=false for plain message")
	}
	if result.ProcessedAt.IsZero() {
		t.Fatal("expected processed_at set")
	}
}

func TestProcessor_Process_ValidationNeverTouchesStore(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{Completion: llm.Completion{Text: "x"}}
	dispatcher := &mockDispatcher{}

	p := newTestProcessor(users, messages, client, dispatcher, nil, nil, nil)

	event := validEvent()
	event.Content = ""

	_, err := p.Process(context.Background(), event)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(users.upserted) != 0 || len(messages.created) != 0 {
		t.Fatal("validation failure must not write to the store")
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("validation failure must not dispatch")
	}
}

func TestProcessor_Process_StoreFailureAbortsBeforeModel(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{createErr: errors.New("connection refused")}
	client := &llm.MockClient{Completion: llm.Completion{Text: "x"}}
	dispatcher := &mockDispatcher{}

	p := newTestProcessor(users, messages, client, dispatcher, nil, nil, nil)

	_, err := p.Process(context.Background(), validEvent())
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if client.LastTurns != nil {
		t.Fatal("model must not be invoked when the user turn was not persisted")
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("nothing may be dispatched for an aborted turn")
	}
}

func TestProcessor_Process_FallbackStillDispatches(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{Completion: llm.Completion{Text: "brief delay, try again", Fallback: true}}
	dispatcher := &mockDispatcher{result: domain.DispatchResult{MessageID: "bot-msg-2"}}

	p := newTestProcessor(users, messages, client, dispatcher, nil, nil, nil)

	result, err := p.Process(context.Background(), validEvent())
	if err != nil {
		t.Fatalf("expected degraded turn to succeed, got %v", err)
	}
	if !result.Fallback {
		t.Fatal("expected fallback flag on result")
	}
	if len(messages.created) != 2 || messages.created[1].Content != "brief delay, try again" {
		t.Fatalf("expected fallback text persisted as assistant turn, got %+v", messages.created)
	}
	if len(dispatcher.sent) != 1 || dispatcher.sent[0].content != "brief delay, try again" {
		t.Fatalf("expected fallback text dispatched, got %+v", dispatcher.sent)
	}
}

func TestProcessor_Process_ClientErrorAbortsAndAlerts(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{Err: &llm.ClientError{Status: 401, Message: "invalid api key"}}
	dispatcher := &mockDispatcher{}
	alerts := &mockAlerts{}

	p := newTestProcessor(users, messages, client, dispatcher, nil, nil, alerts)

	_, err := p.Process(context.Background(), validEvent())
	var clientErr *llm.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if len(messages.created) != 1 {
		t.Fatalf("expected only the user turn persisted, got %d", len(messages.created))
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("nothing may be dispatched after a provider rejection")
	}
	if len(alerts.subjects) != 1 {
		t.Fatalf("expected one ops alert, got %d", len(alerts.subjects))
	}
}

func TestProcessor_Process_ResponsePersistFailureStillDispatches(t *testing.T) {
	users := &mockUserRepo{}
	messages := &failSecondCreateRepo{}
	client := &llm.MockClient{Completion: llm.Completion{Text: "hi"}}
	dispatcher := &mockDispatcher{result: domain.DispatchResult{MessageID: "bot-msg-3"}}

	p := newTestProcessor(users, messages, client, dispatcher, nil, nil, nil)

	result, err := p.Process(context.Background(), validEvent())
	if err != nil {
		t.Fatalf("expected best-effort dispatch to succeed, got %v", err)
	}
	if len(dispatcher.sent) != 1 {
		t.Fatal("expected dispatch despite assistant persistence failure")
	}
	if result.BotMessageID != "bot-msg-3" {
		t.Fatalf("unexpected bot message id %q", result.BotMessageID)
	}
}

func TestProcessor_Process_DispatchFailureKeepsHistory(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{Completion: llm.Completion{Text: "hi"}}
	dispatcher := &mockDispatcher{err: &discord.DispatchError{Status: 403, Reason: "missing permissions"}}

	p := newTestProcessor(users, messages, client, dispatcher, nil, nil, nil)

	_, err := p.Process(context.Background(), validEvent())
	var dispatchErr *discord.DispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("expected DispatchError, got %v", err)
	}
	// El historial persistido no se revierte: la proxima vuelta ya tiene
	// el contexto correcto aunque esta notificacion se haya perdido.
	if len(messages.created) != 2 {
		t.Fatalf("expected both turns still persisted, got %d", len(messages.created))
	}
}

func TestProcessor_Process_NotActionable(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{}
	dispatcher := &mockDispatcher{}
	filter := discord.NewEventFilter("999", []string{"grok"})

	p := newTestProcessor(users, messages, client, dispatcher, filter, nil, nil)

	event := validEvent()
	event.Content = "just chatting"
	event.Mentions = nil

	_, err := p.Process(context.Background(), event)
	if !errors.Is(err, ErrNotActionable) {
		t.Fatalf("expected ErrNotActionable, got %v", err)
	}
	if len(users.upserted) != 0 || len(messages.created) != 0 {
		t.Fatal("non-actionable events must not write to the store")
	}
}

func TestProcessor_Process_DuplicateSuppressed(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{}
	client := &llm.MockClient{}
	dispatcher := &mockDispatcher{}
	marker := &mockMarker{seen: map[string]bool{"m1": true}}

	p := newTestProcessor(users, messages, client, dispatcher, nil, marker, nil)

	_, err := p.Process(context.Background(), validEvent())
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}
	if len(messages.created) != 0 {
		t.Fatal("duplicate events must not write to the store")
	}
}

func TestProcessor_Process_MarksOnlyCompletedTurns(t *testing.T) {
	users := &mockUserRepo{}
	messages := &mockMessageRepo{createErr: errors.New("connection refused")}
	client := &llm.MockClient{Completion: llm.Completion{Text: "hi"}}
	dispatcher := &mockDispatcher{result: domain.DispatchResult{MessageID: "bot-msg-4"}}
	marker := &mockMarker{}

	p := newTestProcessor(users, messages, client, dispatcher, nil, marker, nil)

	_, err := p.Process(context.Background(), validEvent())
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore on first attempt, got %v", err)
	}
	if len(marker.marked) != 0 {
		t.Fatal("a failed turn must not mark the id as processed")
	}

	// El store vuelve y el upstream reentrega el mismo evento: el turno
	// tiene que correr entero, no quedar suprimido como duplicado.
	messages.createErr = nil
	result, err := p.Process(context.Background(), validEvent())
	if err != nil {
		t.Fatalf("retry after recovery must succeed, got %v", err)
	}
	if len(messages.created) != 2 {
		t.Fatalf("expected both turns persisted on retry, got %d", len(messages.created))
	}
	if result.BotMessageID != "bot-msg-4" {
		t.Fatalf("unexpected bot message id %q", result.BotMessageID)
	}
	if len(marker.marked) != 1 || marker.marked[0] != "m1" {
		t.Fatalf("expected the completed turn marked once, got %v", marker.marked)
	}

	// Recien ahora una tercera entrega es un duplicado real.
	if _, err := p.Process(context.Background(), validEvent()); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed after completion, got %v", err)
	}
}
