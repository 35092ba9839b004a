package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSigningSecret は署名鍵が未設定の場合に使うローカル開発用の鍵。
const DefaultSigningSecret = "open-banking-mock-secret"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort        string
	TrustProxyHeaders bool
	ShutdownTimeout   time.Duration

	// Token
	TokenSigningSecret string
	// SigningSecretDefaulted はTOKEN_SIGNING_SECRETが未設定でデフォルト鍵を使っているかどうか
	SigningSecretDefaulted bool
	TokenTTL               time.Duration
	TokenIssuer            string
	LinkTokenTTL           time.Duration

	// Fixtures
	FixturesDir         string
	FixturesDatabaseURL string

	// Rate Limit
	RateLimitGeneral  int
	RateLimitExchange int

	// Logging
	LogLevel string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 値が不正な場合や、フィクスチャの読み込み元が複数指定された場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "3000"))
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.TokenSigningSecret = os.Getenv("TOKEN_SIGNING_SECRET")
	if cfg.TokenSigningSecret == "" {
		cfg.TokenSigningSecret = DefaultSigningSecret
		cfg.SigningSecretDefaulted = true
	}
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", time.Hour)
	cfg.TokenIssuer = getEnvString("TOKEN_ISSUER", "")
	cfg.LinkTokenTTL = getEnvDuration("LINK_TOKEN_TTL", time.Hour)

	cfg.FixturesDir = getEnvString("FIXTURES_DIR", "")
	cfg.FixturesDatabaseURL = getEnvString("FIXTURES_DATABASE_URL", "")

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitExchange = getEnvInt("RATE_LIMIT_EXCHANGE", 30)

	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	var invalid []string
	if cfg.TokenTTL <= 0 {
		invalid = append(invalid, "TOKEN_TTL")
	}
	if cfg.LinkTokenTTL <= 0 {
		invalid = append(invalid, "LINK_TOKEN_TTL")
	}
	if cfg.RateLimitGeneral <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	if cfg.RateLimitExchange <= 0 {
		invalid = append(invalid, "RATE_LIMIT_EXCHANGE")
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("environment variables must be positive: %v", invalid)
	}

	if cfg.FixturesDir != "" && cfg.FixturesDatabaseURL != "" {
		return nil, fmt.Errorf("FIXTURES_DIR and FIXTURES_DATABASE_URL are mutually exclusive")
	}

	return cfg, nil
}

// LoadDotEnv は.envファイルを環境変数に読み込む。
// ファイルが存在しない場合は何もしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
