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
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Circulation  CirculationConfig
	Journal      JournalConfig
	Cron         CronConfig
	Notify       NotifyConfig
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
	if err := cfg.Circulation.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHELFTRACK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHELFTRACK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SHELFTRACK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SHELFTRACK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SHELFTRACK_LOG_WARN_STACK" default:"false"`

	// CORSOrigins is a comma-separated list; empty disables CORS handling.
	CORSOrigins []string `envconfig:"SHELFTRACK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHELFTRACK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHELFTRACK_DB_DSN"`
	Driver string `envconfig:"SHELFTRACK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHELFTRACK_DB_HOST"`
	LegacyPort     int    `envconfig:"SHELFTRACK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHELFTRACK_DB_USER"`
	LegacyPassword string `envconfig:"SHELFTRACK_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHELFTRACK_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHELFTRACK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHELFTRACK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHELFTRACK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHELFTRACK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHELFTRACK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the threshold above which queries are logged; 0 disables it.
	SlowQuery time.Duration `envconfig:"SHELFTRACK_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SHELFTRACK_REDIS_URL"`
	Address      string        `envconfig:"SHELFTRACK_REDIS_ADDR"`
	Password     string        `envconfig:"SHELFTRACK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHELFTRACK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHELFTRACK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHELFTRACK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHELFTRACK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHELFTRACK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHELFTRACK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// CirculationConfig holds the lending policy constants.
type CirculationConfig struct {
	LoanPeriod             time.Duration `envconfig:"SHELFTRACK_LOAN_PERIOD" default:"336h"`
	FinePerDay             string        `envconfig:"SHELFTRACK_FINE_PER_DAY" default:"0.25"`
	MaxReservationsPerUser int           `envconfig:"SHELFTRACK_MAX_RESERVATIONS_PER_USER" default:"0"`
	ActivityTailSize       int           `envconfig:"SHELFTRACK_ACTIVITY_TAIL_SIZE" default:"500"`
}

// FineRate parses FinePerDay; validate has already rejected malformed values.
func (c CirculationConfig) FineRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.FinePerDay))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c CirculationConfig) validate() error {
	if c.LoanPeriod <= 0 {
		return fmt.Errorf("%s must be positive", EnvLoanPeriod)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(c.FinePerDay))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvFinePerDay, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvFinePerDay)
	}
	if c.MaxReservationsPerUser < 0 {
		return fmt.Errorf("%s must not be negative", EnvMaxReservationsPerUser)
	}
	return nil
}

type JournalConfig struct {
	FlushInterval time.Duration `envconfig:"SHELFTRACK_JOURNAL_FLUSH_INTERVAL" default:"250ms"`
	BatchSize     int           `envconfig:"SHELFTRACK_JOURNAL_BATCH_SIZE" default:"100"`
	WriteTimeout  time.Duration `envconfig:"SHELFTRACK_JOURNAL_WRITE_TIMEOUT" default:"5s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SHELFTRACK_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"SHELFTRACK_CRON_LOCK_TTL" default:"2h"`
}

type NotifyConfig struct {
	HoldChannel    string        `envconfig:"SHELFTRACK_NOTIFY_HOLD_CHANNEL" default:"holds"`
	OverdueChannel string        `envconfig:"SHELFTRACK_NOTIFY_OVERDUE_CHANNEL" default:"overdue"`
	Timeout        time.Duration `envconfig:"SHELFTRACK_NOTIFY_TIMEOUT" default:"2s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHELFTRACK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
