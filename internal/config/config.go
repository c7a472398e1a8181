package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	LLMAPIKey   string `env:"LLM_API_KEY,required"`
	LLMBaseURL  string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	HistoryLimit          int           `env:"HISTORY_LIMIT" envDefault:"100"`
	PacingEnabled         bool          `env:"PACING_ENABLED" envDefault:"true"`
	GenerationWaitTimeout time.Duration `env:"GENERATION_WAIT_TIMEOUT" envDefault:"60s"`
	GenerationStaleAfter  time.Duration `env:"GENERATION_STALE_AFTER" envDefault:"5m"`
	ProcessedEventTTL     time.Duration `env:"PROCESSED_EVENT_TTL" envDefault:"24h"`

	ListenerEnabled bool `env:"LISTENER_ENABLED" envDefault:"true"`
	MigrateOnStart  bool `env:"MIGRATE_ON_START" envDefault:"true"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
