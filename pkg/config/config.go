package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Tokens        TokenConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Sendgrid      SendgridConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"MOVIEGATE_APP_ENV" required:"true"`
	Port         string `envconfig:"MOVIEGATE_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"MOVIEGATE_APP_BASE_URL" default:"http://localhost:8000"`
	LogLevel     string `envconfig:"MOVIEGATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOVIEGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MOVIEGATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MOVIEGATE_DB_DSN"`
	Driver string `envconfig:"MOVIEGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOVIEGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"MOVIEGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOVIEGATE_DB_USER"`
	LegacyPassword string `envconfig:"MOVIEGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOVIEGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOVIEGATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOVIEGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOVIEGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOVIEGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOVIEGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOVIEGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOVIEGATE_REDIS_ADDR"`
	Password     string        `envconfig:"MOVIEGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOVIEGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOVIEGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOVIEGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOVIEGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOVIEGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOVIEGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MOVIEGATE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MOVIEGATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MOVIEGATE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MOVIEGATE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MOVIEGATE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MOVIEGATE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MOVIEGATE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MOVIEGATE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MOVIEGATE_ARGON_KEY_LEN" default:"32"`
}

// TokenConfig controls the lifetime of one-shot account tokens
// (activation links and password reset links).
type TokenConfig struct {
	ActivationTTL    time.Duration `envconfig:"MOVIEGATE_ACTIVATION_TOKEN_TTL" default:"24h"`
	PasswordResetTTL time.Duration `envconfig:"MOVIEGATE_PASSWORD_RESET_TOKEN_TTL" default:"24h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"MOVIEGATE_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOVIEGATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MOVIEGATE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"MOVIEGATE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookGuardTTL      time.Duration `envconfig:"MOVIEGATE_WEBHOOK_GUARD_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MOVIEGATE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MOVIEGATE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MOVIEGATE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"MOVIEGATE_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"MOVIEGATE_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"MOVIEGATE_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	AvatarMaxUploadMB int `envconfig:"MOVIEGATE_MEDIA_AVATAR_MAX_UPLOAD_MB" default:"5"`
	PosterMaxUploadMB int `envconfig:"MOVIEGATE_MEDIA_POSTER_MAX_UPLOAD_MB" default:"20"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"MOVIEGATE_PUBSUB_NOTIFICATION_TOPIC" default:"mg-notification-events"`
	NotificationSubscription string `envconfig:"MOVIEGATE_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"mg-notification-events-worker"`
	DeadLetterTopic          string `envconfig:"MOVIEGATE_PUBSUB_DEAD_LETTER_TOPIC" default:"mg-dead-letter"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOVIEGATE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOVIEGATE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOVIEGATE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"MOVIEGATE_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"MOVIEGATE_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"MOVIEGATE_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"MOVIEGATE_STRIPE_CURRENCY" default:"usd"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"MOVIEGATE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"MOVIEGATE_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"MOVIEGATE_SENDGRID_FROM_NAME" default:"MovieGate"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"MOVIEGATE_CRON_INTERVAL" default:"1m"`
	LockTTL               time.Duration `envconfig:"MOVIEGATE_CRON_LOCK_TTL" default:"5m"`
	NotificationRetention time.Duration `envconfig:"MOVIEGATE_CRON_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"MOVIEGATE_CRON_OUTBOX_RETENTION" default:"168h"`
	OrderExpiry           time.Duration `envconfig:"MOVIEGATE_CRON_ORDER_EXPIRY" default:"48h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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
