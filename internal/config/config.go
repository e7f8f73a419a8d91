package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio. Se carga una vez al
// arranque y se pasa por constructor; nunca se muta en runtime.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int    `env:"DB_MIN_CONNS" envDefault:"1"`

	LLMAPIKey      string  `env:"LLM_API_KEY,required"`
	LLMBaseURL     string  `env:"LLM_BASE_URL" envDefault:"https://api.x.ai/v1"`
	LLMModel       string  `env:"LLM_MODEL" envDefault:"grok-4-latest"`
	LLMTimeoutSecs int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"30"`
	LLMMaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"1500"`
	LLMTemperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	EmbeddingModel string  `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	DiscordToken   string `env:"DISCORD_TOKEN,required"`
	DiscordAPIBase string `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`

	BotName         string   `env:"BOT_NAME" envDefault:"Grok4Agent"`
	BotUserID       string   `env:"BOT_USER_ID"`
	TriggerKeywords []string `env:"TRIGGER_KEYWORDS" envSeparator:"," envDefault:"grok"`

	MaxContextMessages  int    `env:"MAX_CONTEXT_MESSAGES" envDefault:"15"`
	Personality         string `env:"PERSONALITY"`
	FallbackTimeoutText string `env:"FALLBACK_TIMEOUT_TEXT" envDefault:"I'm experiencing a brief connection delay. Could you repeat that? I'm here and ready to help! 🤖"`
	FallbackErrorText   string `env:"FALLBACK_ERROR_TEXT" envDefault:"I'm having a technical moment. Please try again in a few seconds! 🔧"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	AlertTo      string `env:"ALERT_TO"`

	StatsJWTSecret string `env:"STATS_JWT_SECRET"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
