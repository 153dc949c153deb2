package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	Environment        string   `envconfig:"ENV" default:"development"`
	DBConnectionString string   `envconfig:"DB_CONNECTION_STRING" required:"true"`
	CORSOrigins        []string `envconfig:"CORS_ORIGINS" default:"*"`
	APIBaseURL         string   `envconfig:"API_BASE_URL" default:"http://localhost:8080"`

	// Supabase auth
	SupabaseURL            string `envconfig:"SUPABASE_URL" required:"true"`
	SupabaseAnonKey        string `envconfig:"SUPABASE_ANON_KEY" required:"true"`
	SupabaseServiceRoleKey string `envconfig:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret              string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`
	EmailRedirectURL       string `envconfig:"EMAIL_REDIRECT_URL"`
	OAuthRedirectURL       string `envconfig:"OAUTH_REDIRECT_URL"`
	ResetRedirectURL       string `envconfig:"RESET_PASSWORD_REDIRECT_URL"`

	// Supabase storage over the S3 API
	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3PublicURL string `envconfig:"SUPABASE_STORAGE_PUBLIC_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" default:"avatars"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" default:"local"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Events: "pgmq", "pubsub" or "none"
	EventsBackend      string `envconfig:"EVENTS_BACKEND" default:"pgmq"`
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	ScanTopic          string `envconfig:"SCAN_TOPIC" default:"card_scanned"`
	ContactImportTopic string `envconfig:"CONTACT_IMPORT_TOPIC" default:"contact_import"`

	// Scan rollup orchestrator settings
	ScanRollupPollTimeoutSec      int    `envconfig:"SCAN_ROLLUP_POLL_TIMEOUT_SEC" default:"30"`
	ScanRollupPollMaxMsg          int    `envconfig:"SCAN_ROLLUP_POLL_MAX_MSG" default:"10"`
	ScanRollupMaxRetries          int    `envconfig:"SCAN_ROLLUP_MAX_RETRIES" default:"5"`
	ScanRollupBackoffInitialSec   int    `envconfig:"SCAN_ROLLUP_BACKOFF_INITIAL_SEC" default:"1"`
	ScanRollupBackoffMaxSec       int    `envconfig:"SCAN_ROLLUP_BACKOFF_MAX_SEC" default:"60"`
	ScanRollupDeadLetterQueueName string `envconfig:"SCAN_ROLLUP_DEAD_LETTER_QUEUE_NAME" default:"card_scanned_dlq"`

	// Contact import orchestrator settings
	ContactImportPollTimeoutSec      int    `envconfig:"CONTACT_IMPORT_POLL_TIMEOUT_SEC" default:"30"`
	ContactImportPollMaxMsg          int    `envconfig:"CONTACT_IMPORT_POLL_MAX_MSG" default:"1"`
	ContactImportMaxRetries          int    `envconfig:"CONTACT_IMPORT_MAX_RETRIES" default:"5"`
	ContactImportBackoffInitialSec   int    `envconfig:"CONTACT_IMPORT_BACKOFF_INITIAL_SEC" default:"1"`
	ContactImportBackoffMaxSec       int    `envconfig:"CONTACT_IMPORT_BACKOFF_MAX_SEC" default:"60"`
	ContactImportDeadLetterQueueName string `envconfig:"CONTACT_IMPORT_DEAD_LETTER_QUEUE_NAME" default:"contact_import_dlq"`

	// Per-user state kept in memory between requests
	StateIdleTimeoutSec   int `envconfig:"STATE_IDLE_TIMEOUT_SEC" default:"1800"`
	StateSweepIntervalSec int `envconfig:"STATE_SWEEP_INTERVAL_SEC" default:"60"`

	// Local preference cache
	PreferencesDSN string `envconfig:"PREFERENCES_DSN" default:"file:preferences.db?_pragma=busy_timeout(5000)"`

	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePremiumPrice  string `envconfig:"STRIPE_PREMIUM_PRICE_ID"`
	StripeReturnURL     string `envconfig:"STRIPE_RETURN_URL" default:"http://localhost:5173/settings"`
}

// Worker holds the polling and retry settings of one queue consumer.
type Worker struct {
	Queue          string
	DeadLetter     string
	PollTimeoutSec int
	PollMaxMsg     int
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (c *Config) ScanRollupWorker() Worker {
	return Worker{
		Queue:          c.ScanTopic,
		DeadLetter:     c.ScanRollupDeadLetterQueueName,
		PollTimeoutSec: c.ScanRollupPollTimeoutSec,
		PollMaxMsg:     c.ScanRollupPollMaxMsg,
		MaxRetries:     c.ScanRollupMaxRetries,
		BackoffInitial: time.Duration(c.ScanRollupBackoffInitialSec) * time.Second,
		BackoffMax:     time.Duration(c.ScanRollupBackoffMaxSec) * time.Second,
	}
}

func (c *Config) ContactImportWorker() Worker {
	return Worker{
		Queue:          c.ContactImportTopic,
		DeadLetter:     c.ContactImportDeadLetterQueueName,
		PollTimeoutSec: c.ContactImportPollTimeoutSec,
		PollMaxMsg:     c.ContactImportPollMaxMsg,
		MaxRetries:     c.ContactImportMaxRetries,
		BackoffInitial: time.Duration(c.ContactImportBackoffInitialSec) * time.Second,
		BackoffMax:     time.Duration(c.ContactImportBackoffMaxSec) * time.Second,
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
