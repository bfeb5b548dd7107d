package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Eventing EventingConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Bot      BotConfig
	Realtime RealtimeConfig
	Cron     CronConfig

	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERDESK_DB_DSN"`
	Driver string `envconfig:"ORDERDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERDESK_DB_USER"`
	LegacyPassword string `envconfig:"ORDERDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERDESK_JWT_EXPIRATION_MINUTES" required:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ORDERDESK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ORDERDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic          string `envconfig:"ORDERDESK_PUBSUB_ORDERS_TOPIC" required:"true"`
	RealtimeSubscription string `envconfig:"ORDERDESK_PUBSUB_REALTIME_SUBSCRIPTION" required:"true"`
	BotSubscription      string `envconfig:"ORDERDESK_PUBSUB_BOT_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ORDERDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ORDERDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ORDERDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// BotConfig drives the chat-bot bridge. CouriersChannelID is a bare chat
// channel id; negative values address group channels.
type BotConfig struct {
	Token             string        `envconfig:"ORDERDESK_BOT_TOKEN"`
	APIBaseURL        string        `envconfig:"ORDERDESK_BOT_API_BASE_URL"`
	WebhookSecret     string        `envconfig:"ORDERDESK_BOT_WEBHOOK_SECRET"`
	CouriersChannelID int64         `envconfig:"ORDERDESK_BOT_COURIERS_CHANNEL_ID"`
	RequestTimeout    time.Duration `envconfig:"ORDERDESK_BOT_REQUEST_TIMEOUT" default:"10s"`
	TransitionAPIURL  string        `envconfig:"ORDERDESK_BOT_TRANSITION_API_URL"`
}

type RealtimeConfig struct {
	SubscriberBuffer int           `envconfig:"ORDERDESK_REALTIME_SUBSCRIBER_BUFFER" default:"64"`
	Heartbeat        time.Duration `envconfig:"ORDERDESK_REALTIME_HEARTBEAT" default:"25s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERDESK_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	TickInterval       time.Duration `envconfig:"ORDERDESK_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL            time.Duration `envconfig:"ORDERDESK_CRON_LOCK_TTL" default:"5m"`
	PendingNudgeAfter  time.Duration `envconfig:"ORDERDESK_CRON_PENDING_NUDGE_AFTER" default:"30m"`
	AssignmentStaleTTL time.Duration `envconfig:"ORDERDESK_CRON_ASSIGNMENT_STALE_TTL" default:"24h"`
	OutboxRetention    time.Duration `envconfig:"ORDERDESK_CRON_OUTBOX_RETENTION" default:"168h"`
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
