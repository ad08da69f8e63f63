package config

const EnvPrefix = "SHELFTRACK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "SHELFTRACK_APP_ENV"
	EnvPort     = "SHELFTRACK_APP_PORT"
	EnvLogLevel = "SHELFTRACK_LOG_LEVEL"

	EnvDBDSN    = "SHELFTRACK_DB_DSN"
	EnvDBDriver = "SHELFTRACK_DB_DRIVER"
	EnvDBHost   = "SHELFTRACK_DB_HOST"
	EnvDBUser   = "SHELFTRACK_DB_USER"
	EnvDBName   = "SHELFTRACK_DB_NAME"

	EnvRedisURL = "SHELFTRACK_REDIS_URL"

	EnvLoanPeriod             = "SHELFTRACK_LOAN_PERIOD"
	EnvFinePerDay             = "SHELFTRACK_FINE_PER_DAY"
	EnvMaxReservationsPerUser = "SHELFTRACK_MAX_RESERVATIONS_PER_USER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
