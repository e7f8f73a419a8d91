package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"botforge/internal/discord"
	"botforge/internal/domain"
	"botforge/internal/email"
	"botforge/internal/llm"
	"botforge/internal/repository"
)

// Taxonomia de fallos del pipeline. El handler HTTP los traduce al
// contrato de respuesta; nada sube como panico.
var (
	ErrValidation       = errors.New("validation failed")
	ErrStore            = errors.New("store unavailable")
	ErrNotActionable    = errors.New("event not actionable")
	ErrAlreadyProcessed = errors.New("event already processed")
)

// ProcessResult resume un turno completado.
type ProcessResult struct {
	BotMessageID       string
	ConversationLength int
	IsReply            bool
	Fallback           bool
	ProcessedAt        time.Time
}

// ProcessorConfig agrupa los parametros del pipeline que vienen de la
// configuracion de arranque.
type ProcessorConfig struct {
	BotName            string
	Model              string
	Personality        string
	MaxContextMessages int
}

// Processor orquesta el turno completo de un evento entrante: validar,
// persistir el mensaje del usuario, armar contexto, invocar el modelo,
// persistir la respuesta y despacharla al canal.
type Processor struct {
	logger     *zap.Logger
	users      repository.UserRepository
	messages   repository.MessageRepository
	contextSvc *ContextBuilder
	llmClient  llm.LLMClient
	dispatcher discord.Dispatcher
	filter     *discord.EventFilter
	recall     *RecallService
	processed  ProcessedMarker
	alerts     email.Sender
	cfg        ProcessorConfig
}

func NewProcessor(
	logger *zap.Logger,
	users repository.UserRepository,
	messages repository.MessageRepository,
	contextSvc *ContextBuilder,
	llmClient llm.LLMClient,
	dispatcher discord.Dispatcher,
	filter *discord.EventFilter,
	recall *RecallService,
	processed ProcessedMarker,
	alerts email.Sender,
	cfg ProcessorConfig,
) *Processor {
	if cfg.MaxContextMessages <= 0 {
		cfg.MaxContextMessages = 15
	}
	if cfg.BotName == "" {
		cfg.BotName = "Grok4Agent"
	}
	return &Processor{
		logger:     logger,
		users:      users,
		messages:   messages,
		contextSvc: contextSvc,
		llmClient:  llmClient,
		dispatcher: dispatcher,
		filter:     filter,
		recall:     recall,
		processed:  processed,
		alerts:     alerts,
		cfg:        cfg,
	}
}

// Process ejecuta el turno. El mensaje del usuario se persiste ANTES de
// llamar al modelo: un crash a mitad de camino pierde a lo sumo la
// respuesta del asistente, nunca la entrada del usuario.
func (p *Processor) Process(ctx context.Context, event domain.InboundEvent) (ProcessResult, error) {
	if err := event.Validate(); err != nil {
		return ProcessResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if p.filter != nil && !p.filter.Actionable(event) {
		return ProcessResult{}, ErrNotActionable
	}

	if p.processed != nil && p.processed.Seen(ctx, event.ID) {
		return ProcessResult{}, ErrAlreadyProcessed
	}

	cleanContent := discord.CleanContent(event.Content)
	if cleanContent == "" {
		return ProcessResult{}, fmt.Errorf("%w: content empty after stripping mentions", ErrValidation)
	}

	user := domain.DiscordUser{
		ID:          event.Author.ID,
		Username:    event.Author.Username,
		DisplayName: event.Author.Username,
	}
	if err := p.users.Upsert(ctx, user); err != nil {
		return ProcessResult{}, fmt.Errorf("%w: upsert user: %v", ErrStore, err)
	}

	userMessage := domain.Message{
		ID:         uuid.NewString(),
		ExternalID: event.ID,
		UserID:     event.Author.ID,
		ChannelID:  event.ChannelID,
		Content:    cleanContent,
		Role:       domain.RoleUser,
		ReplyToID:  event.ReplyToMessageID,
		Metadata: domain.MessageMetadata{
			OriginalContent: event.Content,
			ReplyToID:       event.ReplyToMessageID,
			IsReply:         event.IsReply(),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := p.messages.Create(ctx, userMessage); err != nil {
		return ProcessResult{}, fmt.Errorf("%w: append user message: %v", ErrStore, err)
	}

	// Con el turno del usuario ya durable, el resto corre hasta un estado
	// terminal aunque el request HTTP se cancele: abandonar aca dejaria un
	// mensaje persistido sin respuesta registrada.
	ctx = context.WithoutCancel(ctx)

	turns, err := p.contextSvc.Build(ctx, event.Author.ID, event.ChannelID, cleanContent, p.cfg.MaxContextMessages)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("%w: build context: %v", ErrStore, err)
	}

	systemPrompt := p.buildSystemPrompt(ctx, event, cleanContent)
	conversationLength := len(turns) + 1

	completion, err := p.llmClient.Generate(ctx, systemPrompt, turns)
	if err != nil {
		var clientErr *llm.ClientError
		if errors.As(err, &clientErr) {
			p.alertModelFailure(ctx, clientErr)
		}
		return ProcessResult{}, fmt.Errorf("model call: %w", err)
	}
	if completion.Fallback {
		p.logger.Warn("model degraded to fallback text",
			zap.String("user_id", event.Author.ID),
			zap.String("channel_id", event.ChannelID))
	}

	botMessage := domain.Message{
		ID:         uuid.NewString(),
		ExternalID: uuid.NewString(),
		UserID:     event.Author.ID,
		ChannelID:  event.ChannelID,
		Content:    completion.Text,
		Role:       domain.RoleAssistant,
		AgentName:  p.cfg.BotName,
		Metadata: domain.MessageMetadata{
			Model:              p.cfg.Model,
			IsReply:            event.IsReply(),
			ConversationLength: conversationLength,
		},
		CreatedAt: time.Now().UTC(),
	}
	responsePersisted := true
	if err := p.messages.Create(ctx, botMessage); err != nil {
		// La durabilidad fallo pero el usuario igual merece SU respuesta:
		// seguimos al despacho y dejamos la inconsistencia bien marcada.
		responsePersisted = false
		p.logger.Error("assistant message not persisted, dispatching anyway",
			zap.Error(err),
			zap.String("user_id", event.Author.ID),
			zap.String("channel_id", event.ChannelID))
	}

	dispatched, err := p.dispatcher.Send(ctx, event.ChannelID, completion.Text, event.ReplyToMessageID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("dispatch: %w", err)
	}

	// El id se marca recien con el turno cerrado: un fallo intermedio deja
	// la reentrega libre para reintentar.
	if p.processed != nil {
		p.processed.Mark(ctx, event.ID)
	}

	if p.recall != nil {
		go func(msg domain.Message) {
			rctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			p.recall.Remember(rctx, msg)
		}(userMessage)
	}

	p.logger.Info("turn completed",
		zap.String("user_id", event.Author.ID),
		zap.String("channel_id", event.ChannelID),
		zap.String("bot_message_id", dispatched.MessageID),
		zap.Int("conversation_length", conversationLength),
		zap.Bool("fallback", completion.Fallback),
		zap.Bool("response_persisted", responsePersisted))

	return ProcessResult{
		BotMessageID:       dispatched.MessageID,
		ConversationLength: conversationLength,
		IsReply:            event.IsReply(),
		Fallback:           completion.Fallback,
		ProcessedAt:        time.Now().UTC(),
	}, nil
}

func (p *Processor) buildSystemPrompt(ctx context.Context, event domain.InboundEvent, cleanContent string) string {
	var sb strings.Builder

	if p.cfg.Personality != "" {
		sb.WriteString(p.cfg.Personality)
	} else {
		sb.WriteString(fmt.Sprintf(
			"You are %s, a helpful Discord bot. You have memory of previous conversations with %s in this channel.",
			p.cfg.BotName, event.Author.Username,
		))
	}
	if event.IsReply() {
		sb.WriteString(" You are replying to a previous message in this conversation thread.")
	}
	sb.WriteString(" Be conversational, insightful, and engaging. Reference previous context when relevant.")

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if lines := p.recall.Recall(rctx, event.Author.ID, event.ChannelID, cleanContent); len(lines) > 0 {
		sb.WriteString("\n\nRelevant earlier exchanges in this channel:\n")
		for _, line := range lines {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func (p *Processor) alertModelFailure(ctx context.Context, clientErr *llm.ClientError) {
	if p.alerts == nil {
		return
	}
	subject := fmt.Sprintf("[botforge] model provider rejected request (status %d)", clientErr.Status)
	body := fmt.Sprintf(
		"The completion provider returned a non-transient error.\n\nStatus: %d\nMessage: %s\nTime: %s UTC\n\nThis is a configuration problem (credentials or request shape), not a transient outage.",
		clientErr.Status,
		clientErr.Message,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err := p.alerts.SendAlert(ctx, subject, body); err != nil {
		p.logger.Warn("model failure alert not sent", zap.Error(err))
	}
}
