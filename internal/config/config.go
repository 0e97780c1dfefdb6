package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/hafeezhmha/substack-watcher/internal/models"
)

type Config struct {
	EmailAddress     string `env:"EMAIL_ADDRESS"`
	EmailAppPassword string `env:"EMAIL_APP_PASSWORD"`
	EmailTo          string `env:"EMAIL_TO"`

	FeedURL   string `env:"FEED_URL"   envDefault:"https://pintofviewclub.substack.com/feed.xml"`
	ProxyURL  string `env:"PROXY_URL"  envDefault:"https://api.rss2json.com/v1/api.json"`
	StatePath string `env:"STATE_PATH" envDefault:"state.json"`
	Subject   string `env:"SUBJECT"    envDefault:"New Pint of View guest announced"`

	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"465"`

	BaselineOnFirstRun bool          `env:"BASELINE_ON_FIRST_RUN"`
	DryRun             bool          `env:"DRY_RUN"`
	WatchCron          string        `env:"WATCH_CRON"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse environment: %w", models.ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate runs once at startup, before any network call. The email
// values are not required in dry-run mode.
func (c Config) Validate() error {
	if strings.TrimSpace(c.FeedURL) == "" {
		return fmt.Errorf("%w: FEED_URL is empty", models.ErrConfig)
	}

	if c.DryRun {
		return nil
	}

	required := []struct {
		name  string
		value string
	}{
		{"EMAIL_ADDRESS", c.EmailAddress},
		{"EMAIL_APP_PASSWORD", c.EmailAppPassword},
		{"EMAIL_TO", c.EmailTo},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", models.ErrConfig, r.name)
		}
	}

	return nil
}
