package config

const (
	// EnvPrefix is empty because every field declares its full variable name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv    = "BAZAARSETU_APP_ENV"
	EnvPort      = "BAZAARSETU_APP_PORT"
	EnvDBDSN     = "BAZAARSETU_DB_DSN"
	EnvDBDriver  = "BAZAARSETU_DB_DRIVER"
	EnvDBHost    = "BAZAARSETU_DB_HOST"
	EnvDBUser    = "BAZAARSETU_DB_USER"
	EnvDBName    = "BAZAARSETU_DB_NAME"
	EnvRedisURL  = "BAZAARSETU_REDIS_URL"
	EnvJWTSecret = "BAZAARSETU_JWT_SECRET"
	EnvJWTIssuer = "BAZAARSETU_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
