package config

// EnvPrefix is handed to envconfig; every variable also carries an explicit
// VENDIA_ tag so the names stay greppable.
const EnvPrefix = "vendia"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "VENDIA_APP_ENV"
	EnvPort                   = "VENDIA_APP_PORT"
	EnvDBDSN                  = "VENDIA_DB_DSN"
	EnvDBHost                 = "VENDIA_DB_HOST"
	EnvDBUser                 = "VENDIA_DB_USER"
	EnvDBName                 = "VENDIA_DB_NAME"
	EnvRedisURL               = "VENDIA_REDIS_URL"
	EnvJWTSecret              = "VENDIA_JWT_SECRET"
	EnvJWTIssuer              = "VENDIA_JWT_ISSUER"
	EnvJWTExpMins             = "VENDIA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "VENDIA_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "VENDIA_GCP_PROJECT_ID"
	EnvPubSubEventsTopic      = "VENDIA_PUBSUB_EVENTS_TOPIC"
	EnvPubSubEventsSub        = "VENDIA_PUBSUB_EVENTS_SUBSCRIPTION"
	EnvPubSubRealtimeSub      = "VENDIA_PUBSUB_REALTIME_SUBSCRIPTION"
	EnvLedgerTolerance        = "VENDIA_LEDGER_TOLERANCE"
	EnvLedgerReminderAfter    = "VENDIA_LEDGER_REMINDER_AFTER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
