package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`
	DBPath        string  `env:"DB_PATH"        envDefault:"quotecard.sqlite"`
	HTTPAddr      string  `env:"HTTP_ADDR"      envDefault:":3000"`

	SummarizerAPIKey      string        `env:"SUMMARIZER_API_KEY"`
	SummarizerBaseURL     string        `env:"SUMMARIZER_BASE_URL"     envDefault:"https://ark.cn-beijing.volces.com/api/v3/"`
	SummarizerModel       string        `env:"SUMMARIZER_MODEL"        envDefault:"deepseek-v3-2-251201"`
	SummarizerTemperature float64       `env:"SUMMARIZER_TEMPERATURE"  envDefault:"0.6"`
	SummarizerTimeout     time.Duration `env:"SUMMARIZER_TIMEOUT"      envDefault:"60s"`
	SummaryCacheTTL       time.Duration `env:"SUMMARY_CACHE_TTL"       envDefault:"1h"`

	FontPath      string `env:"FONT_PATH"`
	MaxInputChars int    `env:"MAX_INPUT_CHARS" envDefault:"500"`

	SessionTTL       time.Duration `env:"SESSION_TTL"        envDefault:"30m"`
	SessionSweepSpec string        `env:"SESSION_SWEEP_SPEC" envDefault:"*/5 * * * *"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.MaxInputChars <= 0 {
		return Config{}, fmt.Errorf("MAX_INPUT_CHARS must be positive, got %d", cfg.MaxInputChars)
	}

	return cfg, nil
}
