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
	HTTP         HTTPConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
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
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZAARSETU_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAARSETU_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BAZAARSETU_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAARSETU_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind            string        `envconfig:"BAZAARSETU_SERVICE_KIND" default:"api"`
	ShutdownTimeout time.Duration `envconfig:"BAZAARSETU_SHUTDOWN_TIMEOUT" default:"15s"`
}

type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"BAZAARSETU_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadHeaderTimeout  time.Duration `envconfig:"BAZAARSETU_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout       time.Duration `envconfig:"BAZAARSETU_HTTP_WRITE_TIMEOUT" default:"30s"`
	RegisterRateLimit  int           `envconfig:"BAZAARSETU_HTTP_REGISTER_RATE_LIMIT" default:"5"`
	RegisterRateWindow time.Duration `envconfig:"BAZAARSETU_HTTP_REGISTER_RATE_WINDOW" default:"10m"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAARSETU_DB_DSN"`
	Driver string `envconfig:"BAZAARSETU_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAARSETU_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAARSETU_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAARSETU_DB_USER"`
	LegacyPassword string `envconfig:"BAZAARSETU_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAARSETU_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAARSETU_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAARSETU_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAARSETU_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAARSETU_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAARSETU_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// UsesSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) UsesSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAARSETU_REDIS_URL"`
	Address      string        `envconfig:"BAZAARSETU_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAARSETU_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAARSETU_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAARSETU_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAARSETU_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAARSETU_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAARSETU_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAARSETU_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAARSETU_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAARSETU_JWT_ISSUER" default:"bazaarsetu"`
	ExpirationMinutes int    `envconfig:"BAZAARSETU_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZAARSETU_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZAARSETU_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZAARSETU_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZAARSETU_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZAARSETU_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZAARSETU_AUTO_MIGRATE" default:"false"`
	Metrics     bool `envconfig:"BAZAARSETU_METRICS_ENABLED" default:"true"`
}

// OrdersConfig tunes checkout and order lifecycle behaviour.
type OrdersConfig struct {
	ExpectedDeliveryDays   int           `envconfig:"BAZAARSETU_ORDERS_EXPECTED_DELIVERY_DAYS" default:"3"`
	CheckoutIdempotencyTTL time.Duration `envconfig:"BAZAARSETU_ORDERS_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	CheckoutRateLimit      int           `envconfig:"BAZAARSETU_ORDERS_CHECKOUT_RATE_LIMIT" default:"10"`
	CheckoutRateWindow     time.Duration `envconfig:"BAZAARSETU_ORDERS_CHECKOUT_RATE_WINDOW" default:"1m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BAZAARSETU_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"BAZAARSETU_PUBSUB_ORDERS_TOPIC" default:"bzs-order-events"`
	NotificationTopic  string `envconfig:"BAZAARSETU_PUBSUB_NOTIFICATION_TOPIC" default:"bzs-notification-events"`
	OrdersSubscription string `envconfig:"BAZAARSETU_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZAARSETU_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZAARSETU_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZAARSETU_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.UsesSQLite() {
		db.DSN = "file:bazaarsetu.db?cache=shared&_foreign_keys=on"
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

// CronConfig drives cmd/cron-worker housekeeping.
type CronConfig struct {
	Interval            time.Duration `envconfig:"BAZAARSETU_CRON_INTERVAL" default:"24h"`
	LockTTL             time.Duration `envconfig:"BAZAARSETU_CRON_LOCK_TTL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"BAZAARSETU_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	ParkedRetentionDays int           `envconfig:"BAZAARSETU_CRON_PARKED_RETENTION_DAYS" default:"90"`
}
