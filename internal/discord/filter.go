package discord

import (
	"regexp"
	"strings"

	"botforge/internal/domain"
)

var (
	userMentionRe = regexp.MustCompile(`<@!?\d+>`)
	roleMentionRe = regexp.MustCompile(`<@&\d+>`)
)

// EventFilter decide que eventos crudos merecen una respuesta del bot.
type EventFilter struct {
	BotUserID string
	Keywords  []string
}

func NewEventFilter(botUserID string, keywords []string) *EventFilter {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	return &EventFilter{BotUserID: botUserID, Keywords: normalized}
}

// Actionable devuelve true cuando el bot fue mencionado, aparece una
// palabra disparadora o hay una mencion de rol. Los mensajes de otros bots
// nunca son accionables.
func (f *EventFilter) Actionable(event domain.InboundEvent) bool {
	if event.Author.Bot {
		return false
	}
	if f.BotUserID != "" && event.Author.ID == f.BotUserID {
		return false
	}

	if f.BotUserID != "" {
		for _, m := range event.Mentions {
			if m.ID == f.BotUserID {
				return true
			}
		}
	}

	lower := strings.ToLower(event.Content)
	for _, k := range f.Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}

	return roleMentionRe.MatchString(event.Content)
}

// CleanContent quita el markup de menciones de usuario y de rol, dejando el
// texto que realmente escribio la persona.
func CleanContent(content string) string {
	s := userMentionRe.ReplaceAllString(content, "")
	s = roleMentionRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
