package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Ledger        LedgerConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Realtime      RealtimeConfig
	Notifications NotificationsConfig
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
	Env          string `envconfig:"VENDIA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDIA_DB_DSN"`
	Driver string `envconfig:"VENDIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDIA_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDIA_DB_USER"`
	LegacyPassword string `envconfig:"VENDIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDIA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"VENDIA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"VENDIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"VENDIA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"VENDIA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VENDIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VENDIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VENDIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VENDIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VENDIA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"VENDIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"VENDIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"VENDIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"VENDIA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"VENDIA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"VENDIA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDIA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"VENDIA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// LedgerConfig tunes payment reconciliation. Tolerance is the absolute USD
// amount by which a verified total may fall short of the order total and
// still count as paid in full.
type LedgerConfig struct {
	Tolerance     decimal.Decimal `envconfig:"VENDIA_LEDGER_TOLERANCE" default:"0.01"`
	ReminderAfter time.Duration   `envconfig:"VENDIA_LEDGER_REMINDER_AFTER" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDIA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"VENDIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic          string `envconfig:"VENDIA_PUBSUB_EVENTS_TOPIC" required:"true"`
	EventsSubscription   string `envconfig:"VENDIA_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
	RealtimeSubscription string `envconfig:"VENDIA_PUBSUB_REALTIME_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"VENDIA_OUTBOX_RETENTION_DAYS" default:"14"`
}

type RealtimeConfig struct {
	PingInterval    time.Duration `envconfig:"VENDIA_REALTIME_PING_INTERVAL" default:"30s"`
	PongWait        time.Duration `envconfig:"VENDIA_REALTIME_PONG_WAIT" default:"60s"`
	WriteWait       time.Duration `envconfig:"VENDIA_REALTIME_WRITE_WAIT" default:"10s"`
	MaxMessageBytes int64         `envconfig:"VENDIA_REALTIME_MAX_MESSAGE_BYTES" default:"4096"`
	AllowedOrigins  []string      `envconfig:"VENDIA_REALTIME_ALLOWED_ORIGINS"`
}

type NotificationsConfig struct {
	PollInterval  time.Duration `envconfig:"VENDIA_NOTIFICATIONS_POLL_INTERVAL" default:"30s"`
	RetentionDays int           `envconfig:"VENDIA_NOTIFICATIONS_RETENTION_DAYS" default:"90"`
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
