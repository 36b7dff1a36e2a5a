package config

const (
	EnvPrefix = "TRADEFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "TRADEFLOW_APP_ENV"
	EnvPort      = "TRADEFLOW_APP_PORT"
	EnvLogLevel  = "TRADEFLOW_LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvServiceKind = "TRADEFLOW_SERVICE_KIND"

	EnvDBDSN      = "TRADEFLOW_DB_DSN"
	EnvDBHost     = "TRADEFLOW_DB_HOST"
	EnvDBPort     = "TRADEFLOW_DB_PORT"
	EnvDBUser     = "TRADEFLOW_DB_USER"
	EnvDBPassword = "TRADEFLOW_DB_PASSWORD"
	EnvDBName     = "TRADEFLOW_DB_NAME"

	EnvRedisURL = "TRADEFLOW_REDIS_URL"

	EnvGatewayBaseURL       = "TRADEFLOW_GATEWAY_BASE_URL"
	EnvGatewaySecretKey     = "TRADEFLOW_GATEWAY_SECRET_KEY"
	EnvGatewayWebhookSecret = "TRADEFLOW_GATEWAY_WEBHOOK_SECRET"
	EnvGatewayTimeout       = "TRADEFLOW_GATEWAY_TIMEOUT"

	EnvPaymentsReferencePrefix       = "TRADEFLOW_PAYMENTS_REFERENCE_PREFIX"
	EnvPaymentsMaxInitiationAttempts = "TRADEFLOW_PAYMENTS_MAX_INITIATION_ATTEMPTS"
	EnvPaymentsReturnTokenSecret     = "TRADEFLOW_PAYMENTS_RETURN_TOKEN_SECRET"

	EnvGCPProjectID = "TRADEFLOW_GCP_PROJECT_ID"

	EnvPubSubNotificationTopic = "TRADEFLOW_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "TRADEFLOW_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
