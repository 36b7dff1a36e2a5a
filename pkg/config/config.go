package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	Payments     PaymentsConfig
	Reconciler   ReconcilerConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Gateway.WebhookSecret) == "" && !c.App.IsDev() && c.Service.Kind == "api" {
		return fmt.Errorf("%s is required outside %s", EnvGatewayWebhookSecret, AppEnvDev)
	}
	if c.Payments.MaxInitiationAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvPaymentsMaxInitiationAttempts)
	}
	if len(c.Payments.ReferencePrefix) == 0 || len(c.Payments.ReferencePrefix) > 8 {
		return fmt.Errorf("%s must be between 1 and 8 characters", EnvPaymentsReferencePrefix)
	}
	return nil
}

type AppConfig struct {
	Env            string   `envconfig:"TRADEFLOW_APP_ENV" required:"true"`
	Port           string   `envconfig:"TRADEFLOW_APP_PORT" required:"true"`
	PublicURL      string   `envconfig:"TRADEFLOW_APP_PUBLIC_URL" default:"http://localhost:8080"`
	AllowedOrigins []string `envconfig:"TRADEFLOW_APP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogLevel       string   `envconfig:"TRADEFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"TRADEFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRADEFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRADEFLOW_DB_DSN"`
	Driver string `envconfig:"TRADEFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRADEFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"TRADEFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRADEFLOW_DB_USER"`
	LegacyPassword string `envconfig:"TRADEFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRADEFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRADEFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRADEFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRADEFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRADEFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRADEFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRADEFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRADEFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"TRADEFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRADEFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRADEFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRADEFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRADEFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRADEFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRADEFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TRADEFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TRADEFLOW_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig describes the hosted-checkout payment provider.
type GatewayConfig struct {
	BaseURL         string        `envconfig:"TRADEFLOW_GATEWAY_BASE_URL" default:"https://api.chapa.co/v1"`
	SecretKey       string        `envconfig:"TRADEFLOW_GATEWAY_SECRET_KEY"`
	WebhookSecret   string        `envconfig:"TRADEFLOW_GATEWAY_WEBHOOK_SECRET"`
	SignatureHeader string        `envconfig:"TRADEFLOW_GATEWAY_SIGNATURE_HEADER" default:"Chapa-Signature"`
	Timeout         time.Duration `envconfig:"TRADEFLOW_GATEWAY_TIMEOUT" default:"30s"`
	MaxReferenceLen int           `envconfig:"TRADEFLOW_GATEWAY_MAX_REFERENCE_LEN" default:"50"`
	CheckoutTitle   string        `envconfig:"TRADEFLOW_GATEWAY_CHECKOUT_TITLE" default:"TradeFlow"`
}

type PaymentsConfig struct {
	SystemCurrency        string        `envconfig:"TRADEFLOW_PAYMENTS_SYSTEM_CURRENCY" default:"ETB"`
	ReferencePrefix       string        `envconfig:"TRADEFLOW_PAYMENTS_REFERENCE_PREFIX" default:"EZM"`
	MaxInitiationAttempts int           `envconfig:"TRADEFLOW_PAYMENTS_MAX_INITIATION_ATTEMPTS" default:"3"`
	ReturnTokenSecret     string        `envconfig:"TRADEFLOW_PAYMENTS_RETURN_TOKEN_SECRET" default:"dev-return-secret"`
	ReturnTokenTTL        time.Duration `envconfig:"TRADEFLOW_PAYMENTS_RETURN_TOKEN_TTL" default:"24h"`
	PendingSweepAge       time.Duration `envconfig:"TRADEFLOW_PAYMENTS_PENDING_SWEEP_AGE" default:"15m"`
	PendingSweepBatch     int           `envconfig:"TRADEFLOW_PAYMENTS_PENDING_SWEEP_BATCH" default:"50"`
}

type ReconcilerConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"TRADEFLOW_RECONCILER_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
	ReplayBatchSize       int           `envconfig:"TRADEFLOW_RECONCILER_REPLAY_BATCH_SIZE" default:"25"`
	ReplayMaxAttempts     int           `envconfig:"TRADEFLOW_RECONCILER_REPLAY_MAX_ATTEMPTS" default:"5"`
	CallbackRateLimit     int           `envconfig:"TRADEFLOW_RECONCILER_CALLBACK_RATE_LIMIT" default:"120"`
	CallbackRateWindow    time.Duration `envconfig:"TRADEFLOW_RECONCILER_CALLBACK_RATE_WINDOW" default:"1m"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"TRADEFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TRADEFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TRADEFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TRADEFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"TRADEFLOW_PUBSUB_NOTIFICATION_TOPIC" default:"tf-notification-events"`
	NotificationSubscription string `envconfig:"TRADEFLOW_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"tf-notification-events-sub"`
	FulfillmentTopic         string `envconfig:"TRADEFLOW_PUBSUB_FULFILLMENT_TOPIC" default:"tf-fulfillment-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"TRADEFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"TRADEFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"TRADEFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"TRADEFLOW_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TRADEFLOW_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"TRADEFLOW_CRON_LOCK_TTL" default:"4m"`

	// NotificationRetention applies to read notifications only.
	NotificationRetention time.Duration `envconfig:"TRADEFLOW_NOTIFICATION_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
