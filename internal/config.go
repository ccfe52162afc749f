package internal

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinSessionSecretLength is the shortest accepted HMAC key for session tokens.
const MinSessionSecretLength = 32

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Public URLs. BaseURL serves the API and magic links; PortalURL is the
	// customer-facing front end that sign-in redirects land on.
	BaseURL     string
	PortalURL   string
	CompanyName string

	// Sessions
	SessionSecret         string
	SessionTTL            time.Duration
	SessionScopeTTL       time.Duration // How long the multi-account scope stays usable
	SessionReaperInterval time.Duration
	SessionStore          string // "memory" or "redis"
	RedisURL              string

	// CRM Configuration
	CRMProvider            string // "servicetitan" or "mock"
	ServiceTitanTenantID   string
	ServiceTitanAppKey     string
	ServiceTitanClientID   string
	ServiceTitanSecret     string
	ServiceTitanAuthURL    string
	ServiceTitanAPIURL     string
	ServiceTitanTimeout    time.Duration
	ServiceTitanBusinessID int64
	ServiceTitanJobTypeID  int64
	ServiceTitanCampaignID int64

	// SMS Configuration
	SMSProvider      string // "twilio" or "log"
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Email Configuration
	EmailProvider string // "smtp" or "log"
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string
	SMTPFromName  string

	// Stripe Configuration
	// Invoice payment is disabled when the secret key is empty.
	StripeSecretKey     string
	StripeWebhookSecret string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string // Optional S3-compatible endpoint override

	// Rate limits for the unauthenticated verification endpoints and
	// staff login. Limits are per client IP.
	VerifyRateLimit  int
	VerifyRateWindow time.Duration
	LoginRateLimit   int
	LoginRateWindow  time.Duration

	// Proxy ranges whose X-Forwarded-For / X-Real-IP headers are believed.
	// Empty means the connection's remote address is the client IP.
	TrustedProxies []netip.Prefix

	// Worker Configuration
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration
	PurgeInterval      time.Duration

	// First staff account, created at startup when no staff exist.
	AdminBootstrapEmail    string
	AdminBootstrapName     string
	AdminBootstrapPassword string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		PortalURL:   strings.TrimRight(getEnv("PORTAL_URL", "http://localhost:5173/portal"), "/"),
		CompanyName: getEnv("COMPANY_NAME", "Plumbline Plumbing"),

		SessionSecret:         os.Getenv("SESSION_SECRET"),
		SessionTTL:            getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionScopeTTL:       getEnvDuration("SESSION_SCOPE_TTL", 2*time.Hour),
		SessionReaperInterval: getEnvDuration("SESSION_REAPER_INTERVAL", 5*time.Minute),
		SessionStore:          getEnv("SESSION_STORE", "memory"),
		RedisURL:              getEnv("REDIS_URL", ""),

		CRMProvider:            getEnv("CRM_PROVIDER", "mock"),
		ServiceTitanTenantID:   getEnv("SERVICETITAN_TENANT_ID", ""),
		ServiceTitanAppKey:     getEnv("SERVICETITAN_APP_KEY", ""),
		ServiceTitanClientID:   getEnv("SERVICETITAN_CLIENT_ID", ""),
		ServiceTitanSecret:     getEnv("SERVICETITAN_CLIENT_SECRET", ""),
		ServiceTitanAuthURL:    getEnv("SERVICETITAN_AUTH_URL", ""),
		ServiceTitanAPIURL:     getEnv("SERVICETITAN_API_URL", ""),
		ServiceTitanTimeout:    getEnvDuration("SERVICETITAN_TIMEOUT", 10*time.Second),
		ServiceTitanBusinessID: getEnvInt64("SERVICETITAN_BUSINESS_UNIT_ID", 0),
		ServiceTitanJobTypeID:  getEnvInt64("SERVICETITAN_JOB_TYPE_ID", 0),
		ServiceTitanCampaignID: getEnvInt64("SERVICETITAN_CAMPAIGN_ID", 0),

		SMSProvider:      getEnv("SMS_PROVIDER", "log"),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),

		// SMTP defaults for Mailhog (development)
		EmailProvider: getEnv("EMAIL_PROVIDER", "log"),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnvInt("SMTP_PORT", 1025),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("SMTP_FROM", "noreply@plumbline.example"),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "Plumbline"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2Endpoint:        getEnv("R2_ENDPOINT", ""),

		VerifyRateLimit:  getEnvInt("VERIFY_RATE_LIMIT", 10),
		VerifyRateWindow: getEnvDuration("VERIFY_RATE_WINDOW", 15*time.Minute),
		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow:  getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		// Worker defaults
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   getEnvDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),
		PurgeInterval:      getEnvDuration("PURGE_INTERVAL", time.Hour),

		AdminBootstrapEmail:    strings.ToLower(strings.TrimSpace(getEnv("ADMIN_BOOTSTRAP_EMAIL", ""))),
		AdminBootstrapName:     getEnv("ADMIN_BOOTSTRAP_NAME", "Office"),
		AdminBootstrapPassword: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	proxies, err := parseTrustedProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsSecure reports whether cookies should carry the Secure flag.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE is 'redis'")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be either 'memory' or 'redis', got: %s", c.SessionStore)
	}

	switch c.CRMProvider {
	case "mock":
	case "servicetitan":
		if c.ServiceTitanTenantID == "" || c.ServiceTitanAppKey == "" {
			return fmt.Errorf("SERVICETITAN_TENANT_ID and SERVICETITAN_APP_KEY are required when CRM_PROVIDER is 'servicetitan'")
		}
		if c.ServiceTitanClientID == "" || c.ServiceTitanSecret == "" {
			return fmt.Errorf("SERVICETITAN_CLIENT_ID and SERVICETITAN_CLIENT_SECRET are required when CRM_PROVIDER is 'servicetitan'")
		}
	default:
		return fmt.Errorf("CRM_PROVIDER must be either 'servicetitan' or 'mock', got: %s", c.CRMProvider)
	}

	switch c.SMSProvider {
	case "log":
	case "twilio":
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required when SMS_PROVIDER is 'twilio'")
		}
	default:
		return fmt.Errorf("SMS_PROVIDER must be either 'twilio' or 'log', got: %s", c.SMSProvider)
	}

	if c.EmailProvider != "log" && c.EmailProvider != "smtp" {
		return fmt.Errorf("EMAIL_PROVIDER must be either 'smtp' or 'log', got: %s", c.EmailProvider)
	}

	if c.StripeSecretKey != "" && c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}

	// Validate storage configuration
	if c.StorageProvider == "r2" {
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if c.StorageProvider != "local" {
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	if c.VerifyRateLimit <= 0 || c.LoginRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// parseTrustedProxies reads a comma-separated list of CIDRs or bare IPs.
func parseTrustedProxies(list string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: invalid CIDR %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: invalid IP %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
