package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port    string // サーバーポート（8080）
	GoEnv   string // development/production
	SiteURL string // フロントURL（メールのリンクで使う）

	DBDriver         string // postgres / mysql / sqlite
	DatabaseURL      string // あれば最優先
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     int
	PostgresSSLMode  string
	MySQLDSN         string
	SQLitePath       string

	JWTSecret      string        // JWT署名シークレット
	AccessTokenTTL time.Duration // アクセストークンの有効期限

	InventoryCSVPath    string
	InventoryCacheTTL   time.Duration
	InventoryAccessCode string // x-inventory-access-code と一致すれば特権

	StripeSecretKey     string
	StripeWebhookSecret string

	ResendAPIKey      string
	EmailFrom         string
	CompanyOrderEmail string
	FeedbackToEmail   string
	QuoteToEmail      string
	EmailLogoURL      string

	RateLimitBackend string // memory / redis
	RedisAddr        string

	LogLevel string
}

// 既定値
const (
	defaultPort             = "8080"
	defaultInventoryCSVPath = "data/inventory.csv"
	defaultEmailFrom        = "DTK Industrial <onboarding@resend.dev>"
	defaultSalesEmail       = "sales@dtkindustrial.com"
	defaultSiteURL          = "https://dtkindustrial.com"
)

// Loadは環境変数
func Load() (Config, error) {
	accessMin, err := atoiDefault("ACCESS_TOKEN_TTL_MIN", 15)
	if err != nil {
		return Config{}, err
	}
	invTTLSec, err := atoiDefault("INVENTORY_CACHE_TTL_SEC", 30)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:    getenv("PORT", defaultPort),
		GoEnv:   getenv("GO_ENV", "development"),
		SiteURL: strings.TrimRight(getenv("SITE_URL", defaultSiteURL), "/"),

		DBDriver:         strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
		SQLitePath:       getenv("SQLITE_PATH", "dtk.db"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: time.Duration(accessMin) * time.Minute,

		InventoryCSVPath:    getenv("INVENTORY_CSV_PATH", defaultInventoryCSVPath),
		InventoryCacheTTL:   time.Duration(invTTLSec) * time.Second,
		InventoryAccessCode: strings.TrimSpace(os.Getenv("INVENTORY_CUST1_ACCESS_CODE")),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		EmailFrom:         getenv("EMAIL_FROM", defaultEmailFrom),
		CompanyOrderEmail: getenv("COMPANY_ORDER_EMAIL", defaultSalesEmail),
		FeedbackToEmail:   getenv("FEEDBACK_TO_EMAIL", defaultSalesEmail),
		EmailLogoURL:      os.Getenv("EMAIL_LOGO_URL"),

		RateLimitBackend: strings.ToLower(getenv("RATE_LIMIT_BACKEND", "memory")),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}
	// 見積もり宛先は feedback → sales の順にフォールバック
	cfg.QuoteToEmail = getenv("QUOTE_TO_EMAIL", cfg.FeedbackToEmail)

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			pgPort, err := mustAtoi("POSTGRES_PORT")
			if err != nil {
				return Config{}, err
			}
			cfg.PostgresPort = pgPort
			if cfg.PostgresUser == "" {
				return Config{}, fmt.Errorf("POSTGRES_USER is required")
			}
			if cfg.PostgresDB == "" {
				return Config{}, fmt.Errorf("POSTGRES_DB is required")
			}
			if cfg.PostgresHost == "" {
				return Config{}, fmt.Errorf("POSTGRES_HOST is required")
			}
		}
	case "mysql":
		if cfg.MySQLDSN == "" {
			return Config{}, fmt.Errorf("MYSQL_DSN is required")
		}
	case "sqlite":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres, mysql or sqlite: %q", cfg.DBDriver)
	}

	switch cfg.RateLimitBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis: %q", cfg.RateLimitBackend)
	}

	if cfg.IsProduction() {
		if cfg.StripeSecretKey == "" {
			return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
		}
		if cfg.StripeWebhookSecret == "" {
			return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
		}
	}

	return cfg, nil
}

// IsProduction は本番かどうか（cookieのSecureなど）
func (c Config) IsProduction() bool {
	return c.GoEnv == "production" || c.GoEnv == "prod"
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoiDefault(key string, def int) (int, error) {
	if os.Getenv(key) == "" {
		return def, nil
	}
	i, err := mustAtoi(key)
	if err != nil {
		return 0, err
	}
	if i <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return i, nil
}

func getenv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
