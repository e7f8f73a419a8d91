package discord

import (
	"testing"

	"botforge/internal/domain"
)

func TestEventFilter_Actionable(t *testing.T) {
	filter := NewEventFilter("999", []string{"grok", " Helper "})

	cases := []struct {
		name  string
		event domain.InboundEvent
		want  bool
	}{
		{
			name: "mencion directa al bot",
			event: domain.InboundEvent{
				Content:  "<@999> hola",
				Author:   domain.EventAuthor{ID: "u1"},
				Mentions: []domain.EventAuthor{{ID: "999"}},
			},
			want: true,
		},
		{
			name: "palabra disparadora sin importar mayusculas",
			event: domain.InboundEvent{
				Content: "hey GROK what do you think",
				Author:  domain.EventAuthor{ID: "u1"},
			},
			want: true,
		},
		{
			name: "keyword con espacios normalizada",
			event: domain.InboundEvent{
				Content: "helper please",
				Author:  domain.EventAuthor{ID: "u1"},
			},
			want: true,
		},
		{
			name: "mencion de rol",
			event: domain.InboundEvent{
				Content: "<@&1234> meeting time",
				Author:  domain.EventAuthor{ID: "u1"},
			},
			want: true,
		},
		{
			name: "conversacion ajena",
			event: domain.InboundEvent{
				Content: "just talking with friends",
				Author:  domain.EventAuthor{ID: "u1"},
			},
			want: false,
		},
		{
			name: "otros bots nunca disparan",
			event: domain.InboundEvent{
				Content:  "<@999> grok hello",
				Author:   domain.EventAuthor{ID: "u2", Bot: true},
				Mentions: []domain.EventAuthor{{ID: "999"}},
			},
			want: false,
		},
		{
			name: "el propio bot no se responde",
			event: domain.InboundEvent{
				Content: "grok says hi",
				Author:  domain.EventAuthor{ID: "999"},
			},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := filter.Actionable(tc.event); got != tc.want {
				t.Fatalf("Actionable() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCleanContent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<@999> hello", "hello"},
		{"<@!999> hello", "hello"},
		{"<@&1234> team hello", "team hello"},
		{"hello <@111> and <@&222> bye", "hello  and  bye"},
		{"   plain text   ", "plain text"},
		{"<@999>", ""},
	}

	for _, tc := range cases {
		if got := CleanContent(tc.in); got != tc.want {
			t.Fatalf("CleanContent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
