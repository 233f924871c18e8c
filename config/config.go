// Package config loads the application configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"time"
)

type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"3000"`
}

type DBConfig struct {
	Url string `envconfig:"URL"`
}

type RedisConfig struct {
	URL string `envconfig:"URL" default:"redis://localhost:6379/0"`
}

type JwtConfig struct {
	Secret string        `envconfig:"SECRET_KEY" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

// AuthConfig carries the single back-office operator login. The password is
// stored as a bcrypt hash, never in clear.
type AuthConfig struct {
	Jwt               JwtConfig `envconfig:"JWT"`
	AdminEmail        string    `envconfig:"ADMIN_EMAIL"`
	AdminPasswordHash string    `envconfig:"ADMIN_PASSWORD_HASH"`
}

type RateLimitConfig struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// GatewayConfig configures the payment gateway integration. ServerKey is
// both the API credential and the webhook signature ingredient.
type GatewayConfig struct {
	BaseURL     string        `envconfig:"BASE_URL"`
	ServerKey   string        `envconfig:"SERVER_KEY"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
}

// RobloxConfig configures the platform economy API client. The gamepass
// lookup is the only call with an explicit timeout and retry budget; the
// purchase and validation calls run on the client default.
type RobloxConfig struct {
	BaseURL            string        `envconfig:"BASE_URL" default:"https://economy.roblox.com"`
	UsersURL           string        `envconfig:"USERS_URL" default:"https://users.roblox.com"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	GamepassTimeout    time.Duration `envconfig:"GAMEPASS_TIMEOUT" default:"10s"`
	GamepassMaxRetries uint          `envconfig:"GAMEPASS_MAX_RETRIES" default:"3"`
	GamepassMaxDelay   time.Duration `envconfig:"GAMEPASS_MAX_DELAY" default:"3s"`
	GamepassCacheTTL   time.Duration `envconfig:"GAMEPASS_CACHE_TTL" default:"5m"`
}

// FulfillmentConfig makes the account-fallback policy explicit:
// MaxAccountAttempts is how many stock accounts one fulfillment run may try
// before deferring the order to an operator. 1 reproduces the conservative
// single-account behavior.
type FulfillmentConfig struct {
	MaxAccountAttempts int `envconfig:"MAX_ACCOUNT_ATTEMPTS" default:"1"`
}

type SMTPConfig struct {
	Host     string `envconfig:"HOST"`
	Port     int    `envconfig:"PORT" default:"587"`
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`
	From     string `envconfig:"FROM"`
}

type LogConfig struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	Prefix     string `envconfig:"PREFIX" default:"rbxmart"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"15:04:05"`
}

// App is the root application configuration.
type App struct {
	Env         string            `envconfig:"APP_ENV" default:"development"`
	Server      ServerConfig      `envconfig:"SERVER"`
	DB          DBConfig          `envconfig:"DATABASE"`
	Redis       RedisConfig       `envconfig:"REDIS"`
	Auth        AuthConfig        `envconfig:"AUTH"`
	RateLimit   RateLimitConfig   `envconfig:"RATE_LIMIT"`
	Gateway     GatewayConfig     `envconfig:"GATEWAY"`
	Roblox      RobloxConfig      `envconfig:"ROBLOX"`
	Fulfillment FulfillmentConfig `envconfig:"FULFILLMENT"`
	SMTP        SMTPConfig        `envconfig:"SMTP"`
	Log         LogConfig         `envconfig:"LOG"`
}
