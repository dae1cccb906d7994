package boot

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env     string `env:"ENV,default=dev"`
	BaseURL string `env:"BASE_URL,default=http://localhost:8080"`
	DataDir string `env:"DATA_DIR,default=."`
	Server  struct {
		Port        string `env:"PORT,default=8080"`
		MetricsPort string `env:"METRICS_PORT,default=8081"`
		Origins     string `env:"ALLOWED_ORIGINS,default=*"`
	}
	Database struct {
		Path string `env:"DATABASE_PATH,default=feedback.db"`
	}
	Session struct {
		KeyFile string `env:"SESSION_KEY_FILE,default=session.jwk"`
		TTL     int    `env:"SESSION_TTL_HOURS,default=168"`
	}
}

func Load() (*Config, error) {
	config := &Config{}
	if err := envconfig.Process(context.Background(), config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}
