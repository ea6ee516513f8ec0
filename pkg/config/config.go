package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "ORPOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "ORPOS_APP_ENV"
	EnvDBDSN  = "ORPOS_DB_DSN"
	EnvDBHost = "ORPOS_DB_HOST"
	EnvDBUser = "ORPOS_DB_USER"
	EnvDBName = "ORPOS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	Audit         AuditConfig
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
	Env          string `envconfig:"ORPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"ORPOS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORPOS_DB_DSN"`
	Driver string `envconfig:"ORPOS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORPOS_DB_HOST"`
	LegacyPort     int    `envconfig:"ORPOS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORPOS_DB_USER"`
	LegacyPassword string `envconfig:"ORPOS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORPOS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORPOS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORPOS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORPOS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORPOS_REDIS_ADDR"`
	Password     string        `envconfig:"ORPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ORPOS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ORPOS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ORPOS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ORPOS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ORPOS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ORPOS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ORPOS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ORPOS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ORPOS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"ORPOS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"5m"`
	LoginEmailLimit int           `envconfig:"ORPOS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"ORPOS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORPOS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORPOS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ORPOS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORPOS_GOOGLE_APPLICATION_CREDENTIALS"`
}

// AuditConfig drives the fire-and-forget audit sink. The pub/sub topic
// is optional; when it is empty only the audit_logs table is written.
type AuditConfig struct {
	Topic        string        `envconfig:"ORPOS_AUDIT_PUBSUB_TOPIC"`
	WriteTimeout time.Duration `envconfig:"ORPOS_AUDIT_WRITE_TIMEOUT" default:"5s"`
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
