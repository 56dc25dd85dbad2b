// config — загрузка конфигурации клиента FairPay.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Retry   RetryConfig   `yaml:"retry"`
	Cache   CacheConfig   `yaml:"cache"`
	Session SessionConfig `yaml:"session"`
	Demo    DemoConfig    `yaml:"demo"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Invites InvitesConfig `yaml:"invites"`
	Stub    StubConfig    `yaml:"stub"`
}

// APIConfig — адрес и таймаут бэкенда FairPay.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8090"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"15s"`
}

// RetryConfig — политика повторов транспортных сбоев.
// Attempts — общее число попыток, Backoff — база линейной паузы.
type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"`
	Backoff  time.Duration `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"500ms"`
}

// CacheConfig — окно дедупликации одинаковых GET-запросов.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"1s"`
}

// SessionConfig — поведение сессии приложения.
type SessionConfig struct {
	StartDelay    time.Duration `yaml:"start_delay" env:"SESSION_START_DELAY" env-default:"100ms"`
	LoginAttempts int           `yaml:"login_attempts" env:"SESSION_LOGIN_ATTEMPTS" env-default:"5"`
	LoginBackoff  time.Duration `yaml:"login_backoff" env:"SESSION_LOGIN_BACKOFF" env-default:"1s"`
	ExpiryMargin  time.Duration `yaml:"expiry_margin" env:"SESSION_EXPIRY_MARGIN" env-default:"5m"`
}

// DemoConfig — офлайн/демо-режим: при недоступном бэкенде логин
// выпускает локально подписанную пару токенов. По умолчанию выключен.
type DemoConfig struct {
	Enabled bool   `yaml:"enabled" env:"DEMO_ENABLED" env-default:"false"`
	Secret  string `yaml:"secret" env:"DEMO_SECRET" env-default:"fairpay-demo-secret"`
}

// TokensConfig — путь к файлу пары токенов.
// Пустой путь означает место по умолчанию в каталоге конфигурации пользователя.
type TokensConfig struct {
	Path string `yaml:"path" env:"TOKENS_PATH" env-default:""`
}

// InvitesConfig — базовый URL фронтенда для ссылок-приглашений.
type InvitesConfig struct {
	FrontendURL string `yaml:"frontend_url" env:"INVITES_FRONTEND_URL" env-default:"http://localhost:3000"`
}

// StubConfig — локальный стаб-бэкенд для разработки.
type StubConfig struct {
	Host            string        `yaml:"host" env:"STUB_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"STUB_PORT" env-default:"8090"`
	JWTSecret       string        `yaml:"jwt_secret" env:"STUB_JWT_SECRET" env-default:"stub-secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"STUB_ACCESS_TOKEN_TTL" env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"STUB_REFRESH_TOKEN_TTL" env-default:"720h"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"STUB_REQUEST_TIMEOUT" env-default:"15s"`
}

func (s StubConfig) Addr() string { return net.JoinHostPort(s.Host, s.Port) }

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
