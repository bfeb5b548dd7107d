package config

// EnvPrefix scopes every environment variable the service reads.
const EnvPrefix = "ORDERDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "ORDERDESK_APP_ENV"
	EnvPort       = "ORDERDESK_APP_PORT"
	EnvDBDSN      = "ORDERDESK_DB_DSN"
	EnvDBHost     = "ORDERDESK_DB_HOST"
	EnvDBUser     = "ORDERDESK_DB_USER"
	EnvDBName     = "ORDERDESK_DB_NAME"
	EnvRedisURL   = "ORDERDESK_REDIS_URL"
	EnvJWTSecret  = "ORDERDESK_JWT_SECRET"
	EnvJWTIssuer  = "ORDERDESK_JWT_ISSUER"
	EnvJWTExpMins = "ORDERDESK_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID       = "ORDERDESK_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "ORDERDESK_PUBSUB_ORDERS_TOPIC"
	EnvPubSubRealtimeSub  = "ORDERDESK_PUBSUB_REALTIME_SUBSCRIPTION"
	EnvPubSubBotSub       = "ORDERDESK_PUBSUB_BOT_SUBSCRIPTION"
	EnvBotToken           = "ORDERDESK_BOT_TOKEN"
	EnvBotAPIBaseURL      = "ORDERDESK_BOT_API_BASE_URL"
	EnvBotCouriersChannel = "ORDERDESK_BOT_COURIERS_CHANNEL_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
