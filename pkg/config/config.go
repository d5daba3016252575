package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FULFIL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FULFIL_DB_DSN"
	EnvDBHost = "FULFIL_DB_HOST"
	EnvDBUser = "FULFIL_DB_USER"
	EnvDBName = "FULFIL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Geocoder     GeocoderConfig
	Routing      RoutingConfig
	Shipping     ShippingConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FULFIL_APP_ENV" required:"true"`
	Port         string   `envconfig:"FULFIL_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"FULFIL_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FULFIL_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FULFIL_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FULFIL_DB_DSN"`
	Driver string `envconfig:"FULFIL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FULFIL_DB_HOST"`
	LegacyPort     int    `envconfig:"FULFIL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FULFIL_DB_USER"`
	LegacyPassword string `envconfig:"FULFIL_DB_PASSWORD"`
	LegacyName     string `envconfig:"FULFIL_DB_NAME"`
	LegacySSLMode  string `envconfig:"FULFIL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FULFIL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FULFIL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FULFIL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FULFIL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FULFIL_REDIS_URL"`
	Address      string        `envconfig:"FULFIL_REDIS_ADDR"`
	Password     string        `envconfig:"FULFIL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FULFIL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FULFIL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FULFIL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FULFIL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FULFIL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FULFIL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all. The geocode
// hot cache is optional and the resolver degrades to the DB cache without it.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type GeocoderConfig struct {
	Endpoint  string        `envconfig:"FULFIL_GEOCODER_URL" default:"https://nominatim.openstreetmap.org/search"`
	Timeout   time.Duration `envconfig:"FULFIL_GEOCODER_TIMEOUT" default:"4s"`
	UserAgent string        `envconfig:"FULFIL_GEOCODER_USER_AGENT" default:"BrunoMarketplace/1.0 (routing geocoder)"`
	CacheTTL  time.Duration `envconfig:"FULFIL_GEOCODER_HOT_CACHE_TTL" default:"24h"`
}

type RoutingConfig struct {
	Strategy string `envconfig:"FULFIL_ROUTING_STRATEGY" default:"distance_first"`
}

type ShippingConfig struct {
	Provider     string `envconfig:"FULFIL_SHIPPING_PROVIDER" default:"ctt"`
	LabelBaseURL string `envconfig:"FULFIL_SHIPPING_LABEL_BASE_URL"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FULFIL_AUTO_MIGRATE" default:"false"`
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
