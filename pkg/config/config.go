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
	DB           DBConfig
	Redis        RedisConfig
	Webhook      WebhookConfig
	Matching     MatchingConfig
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
	if err := cfg.Matching.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RECON_APP_ENV" required:"true"`
	Port         string `envconfig:"RECON_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RECON_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECON_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RECON_DB_DSN"`
	Driver string `envconfig:"RECON_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RECON_DB_HOST"`
	Port     int    `envconfig:"RECON_DB_PORT" default:"5432"`
	User     string `envconfig:"RECON_DB_USER"`
	Password string `envconfig:"RECON_DB_PASSWORD"`
	Name     string `envconfig:"RECON_DB_NAME"`
	SSLMode  string `envconfig:"RECON_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECON_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECON_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECON_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECON_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECON_REDIS_URL"`
	Address      string        `envconfig:"RECON_REDIS_ADDR"`
	Password     string        `envconfig:"RECON_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECON_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECON_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECON_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECON_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECON_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECON_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type WebhookConfig struct {
	Secret        string        `envconfig:"RECON_WEBHOOK_SECRET" required:"true"`
	IngestTimeout time.Duration `envconfig:"RECON_WEBHOOK_INGEST_TIMEOUT" default:"5s"`
	EventGuardTTL time.Duration `envconfig:"RECON_WEBHOOK_EVENT_GUARD_TTL" default:"24h"`
}

// MatchingConfig carries the reconciliation thresholds. The matching
// algorithm treats all of these as externally supplied knobs.
type MatchingConfig struct {
	RefSimilarityThreshold  float64         `envconfig:"RECON_MATCH_REF_SIMILARITY" default:"0.85"`
	NameSimilarityThreshold float64         `envconfig:"RECON_MATCH_NAME_SIMILARITY" default:"0.80"`
	FeeTolerancePct         decimal.Decimal `envconfig:"RECON_MATCH_FEE_TOLERANCE_PCT" default:"0.5"`
	FeeToleranceFlat        decimal.Decimal `envconfig:"RECON_MATCH_FEE_TOLERANCE_FLAT" default:"0"`
}

func (m MatchingConfig) validate() error {
	if m.RefSimilarityThreshold <= 0 || m.RefSimilarityThreshold > 1 {
		return fmt.Errorf("%s must be in (0, 1]", EnvMatchRefSimilarity)
	}
	if m.NameSimilarityThreshold <= 0 || m.NameSimilarityThreshold > 1 {
		return fmt.Errorf("%s must be in (0, 1]", EnvMatchNameSimilarity)
	}
	if m.FeeTolerancePct.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvMatchFeeTolerancePct)
	}
	if m.FeeToleranceFlat.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvMatchFeeToleranceFlat)
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RECON_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RECON_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
