package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FIREFLASK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "FIREFLASK_APP_ENV"
	EnvPort                   = "FIREFLASK_APP_PORT"
	EnvConnectorsURL          = "FIREFLASK_APP_CONNECTORS_URL"
	EnvDBDSN                  = "FIREFLASK_DB_DSN"
	EnvDBHost                 = "FIREFLASK_DB_HOST"
	EnvDBUser                 = "FIREFLASK_DB_USER"
	EnvDBName                 = "FIREFLASK_DB_NAME"
	EnvRedisURL               = "FIREFLASK_REDIS_URL"
	EnvJWTSecret              = "FIREFLASK_JWT_SECRET"
	EnvJWTIssuer              = "FIREFLASK_JWT_ISSUER"
	EnvJWTExpMins             = "FIREFLASK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "FIREFLASK_REFRESH_TOKEN_TTL_MINUTES"
	EnvSessionSecret          = "FIREFLASK_SESSION_SECRET"
	EnvFacebookClientID       = "FIREFLASK_FACEBOOK_CLIENT_ID"
	EnvFacebookClientSecret   = "FIREFLASK_FACEBOOK_CLIENT_SECRET"
	EnvFacebookRedirectURL    = "FIREFLASK_FACEBOOK_REDIRECT_URL"
	EnvFacebookHTTPTimeout    = "FIREFLASK_FACEBOOK_HTTP_TIMEOUT"
	EnvAnalyticsFunctionURL   = "FIREFLASK_ANALYTICS_FUNCTION_URL"
	EnvAnalyticsTimeout       = "FIREFLASK_ANALYTICS_TIMEOUT"
	EnvCORSAllowedOrigins     = "FIREFLASK_CORS_ALLOWED_ORIGINS"

	envDotFilePathOverride = "FIREFLASK_DOTENV_PATH"
	defaultDotEnvFile      = ".env"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Facebook      FacebookConfig
	Analytics     AnalyticsConfig
	CORS          CORSConfig
}

// Load reads the process environment into a Config. In dev the .env file is
// loaded first; values already present in the environment win.
func Load() (*Config, error) {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(EnvAppEnv)), AppEnvDev) {
		path := os.Getenv(envDotFilePathOverride)
		if path == "" {
			path = defaultDotEnvFile
		}
		_ = godotenv.Load(path)
	}

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
	Env           string `envconfig:"FIREFLASK_APP_ENV" required:"true"`
	Port          string `envconfig:"FIREFLASK_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"FIREFLASK_LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"FIREFLASK_LOG_FORMAT" default:"json"`
	LogWarnStack  bool   `envconfig:"FIREFLASK_LOG_WARN_STACK" default:"false"`
	ConnectorsURL string `envconfig:"FIREFLASK_APP_CONNECTORS_URL" default:"http://localhost:3000/connectors"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Name string `envconfig:"FIREFLASK_SERVICE_NAME" default:"fireflask-api"`
}

type DBConfig struct {
	DSN string `envconfig:"FIREFLASK_DB_DSN"`

	LegacyHost     string `envconfig:"FIREFLASK_DB_HOST"`
	LegacyPort     int    `envconfig:"FIREFLASK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FIREFLASK_DB_USER"`
	LegacyPassword string `envconfig:"FIREFLASK_DB_PASSWORD"`
	LegacyName     string `envconfig:"FIREFLASK_DB_NAME"`
	LegacySSLMode  string `envconfig:"FIREFLASK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIREFLASK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FIREFLASK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FIREFLASK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIREFLASK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIREFLASK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FIREFLASK_REDIS_ADDR"`
	Password     string        `envconfig:"FIREFLASK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIREFLASK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIREFLASK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIREFLASK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIREFLASK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIREFLASK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIREFLASK_REDIS_WRITE_TIMEOUT" default:"5s"`
	ResetTTL     time.Duration `envconfig:"FIREFLASK_AUTH_RESET_TTL" default:"1h"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FIREFLASK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FIREFLASK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FIREFLASK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FIREFLASK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL is the lifetime of a minted access token and of its cookie.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// SessionConfig drives the browser cookies: the access-token cookie and the
// short-lived OAuth state cookie.
type SessionConfig struct {
	Secret       string `envconfig:"FIREFLASK_SESSION_SECRET" required:"true"`
	CookieSecure bool   `envconfig:"FIREFLASK_SESSION_COOKIE_SECURE" default:"true"`
	CookieDomain string `envconfig:"FIREFLASK_SESSION_COOKIE_DOMAIN"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FIREFLASK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FIREFLASK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FIREFLASK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FIREFLASK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FIREFLASK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"FIREFLASK_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FIREFLASK_AUTO_MIGRATE" default:"false"`
}

// FacebookConfig holds the OAuth application credentials for the Facebook
// Ads connector.
type FacebookConfig struct {
	ClientID      string        `envconfig:"FIREFLASK_FACEBOOK_CLIENT_ID" required:"true"`
	ClientSecret  string        `envconfig:"FIREFLASK_FACEBOOK_CLIENT_SECRET" required:"true"`
	RedirectURL   string        `envconfig:"FIREFLASK_FACEBOOK_REDIRECT_URL" required:"true"`
	Scopes        []string      `envconfig:"FIREFLASK_FACEBOOK_SCOPES" default:"ads_read"`
	GraphVersion  string        `envconfig:"FIREFLASK_FACEBOOK_GRAPH_VERSION" default:"v19.0"`
	GraphBaseURL  string        `envconfig:"FIREFLASK_FACEBOOK_GRAPH_BASE_URL" default:"https://graph.facebook.com"`
	DialogBaseURL string        `envconfig:"FIREFLASK_FACEBOOK_DIALOG_BASE_URL" default:"https://www.facebook.com"`
	HTTPTimeout   time.Duration `envconfig:"FIREFLASK_FACEBOOK_HTTP_TIMEOUT" default:"10s"`
}

type AnalyticsConfig struct {
	FunctionURL  string        `envconfig:"FIREFLASK_ANALYTICS_FUNCTION_URL" required:"true"`
	Timeout      time.Duration `envconfig:"FIREFLASK_ANALYTICS_TIMEOUT" default:"15s"`
	MaxRangeDays int           `envconfig:"FIREFLASK_ANALYTICS_MAX_RANGE_DAYS" default:"90"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FIREFLASK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
