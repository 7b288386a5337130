package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers understood by the document repository factory.
const (
	StoreDriverFile     = "file"
	StoreDriverMemory   = "memory"
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Session drivers.
const (
	SessionDriverMemory = "memory"
	SessionDriverRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Session   SessionConfig
	JWT       JWTConfig
	Auth      AuthConfig
	OTP       OTPConfig
	Mail      MailConfig
	Chat      ChatConfig
	Tracing   TracingConfig
	Rollbar   RollbarConfig
	Timetable TimetableConfig
	CORS      CORSConfig
	Log       LogConfig
}

// StoreConfig selects where the persisted document lives.
type StoreConfig struct {
	Driver         string
	FileDir        string
	DocumentKey    string
	Identity       string
	ResetOnCorrupt bool
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// SQLiteConfig points at the local database file used by the sqlite driver.
type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig governs the volatile session handle storage.
type SessionConfig struct {
	Driver string
	TTL    time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// AuthConfig covers credential handling and external sign-in.
type AuthConfig struct {
	PasswordScheme     string
	GoogleClientID     string
	PendingSignupTTL   time.Duration
	MaxRequestsPerMin  int
	RateLimitBurstSize int
}

// OTPConfig governs one-time code issuance.
type OTPConfig struct {
	TTL           time.Duration
	Workers       int
	DeliveryRetry int
}

// MailConfig selects the outbound mailer.
type MailConfig struct {
	SendGridAPIKey string
	FromName       string
	FromAddress    string
}

// ChatConfig configures the academic assistant proxy.
type ChatConfig struct {
	APIKey         string
	BaseURL        string
	APIVersion     string
	Model          string
	Timeout        time.Duration
	RequestsPerMin int
}

// TracingConfig toggles OpenTelemetry export to stdout.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// RollbarConfig forwards error logs to Rollbar when a token is set.
type RollbarConfig struct {
	Token       string
	Environment string
}

// TimetableConfig points at an optional skeleton override.
type TimetableConfig struct {
	SkeletonPath string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:         strings.ToLower(v.GetString("STORE_DRIVER")),
		FileDir:        v.GetString("STORE_FILE_DIR"),
		DocumentKey:    v.GetString("STORE_DOCUMENT_KEY"),
		Identity:       strings.ToLower(v.GetString("STORE_IDENTITY")),
		ResetOnCorrupt: v.GetBool("STORE_RESET_ON_CORRUPT"),
	}

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Driver: strings.ToLower(v.GetString("SESSION_DRIVER")),
		TTL:    parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{
		PasswordScheme:     strings.ToLower(v.GetString("PASSWORD_SCHEME")),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		PendingSignupTTL:   parseDuration(v.GetString("PENDING_SIGNUP_TTL"), 5*time.Minute),
		MaxRequestsPerMin:  v.GetInt("AUTH_RATE_LIMIT_PER_MIN"),
		RateLimitBurstSize: v.GetInt("AUTH_RATE_LIMIT_BURST"),
	}

	cfg.OTP = OTPConfig{
		TTL:           parseDuration(v.GetString("OTP_TTL"), 5*time.Minute),
		Workers:       v.GetInt("OTP_WORKERS"),
		DeliveryRetry: v.GetInt("OTP_DELIVERY_RETRIES"),
	}

	cfg.Mail = MailConfig{
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
	}

	cfg.Chat = ChatConfig{
		APIKey:         v.GetString("GEMINI_API_KEY"),
		BaseURL:        v.GetString("GEMINI_BASE_URL"),
		APIVersion:     v.GetString("GEMINI_API_VERSION"),
		Model:          v.GetString("GEMINI_MODEL"),
		Timeout:        parseDuration(v.GetString("CHAT_TIMEOUT"), 30*time.Second),
		RequestsPerMin: v.GetInt("CHAT_RATE_LIMIT_PER_MIN"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("TRACING_ENABLED"),
		ServiceName: v.GetString("TRACING_SERVICE_NAME"),
	}

	cfg.Rollbar = RollbarConfig{
		Token:       v.GetString("ROLLBAR_TOKEN"),
		Environment: v.GetString("ROLLBAR_ENVIRONMENT"),
	}
	if cfg.Rollbar.Environment == "" {
		cfg.Rollbar.Environment = cfg.Env
	}

	cfg.Timetable = TimetableConfig{SkeletonPath: v.GetString("TIMETABLE_SKELETON_PATH")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverFile)
	v.SetDefault("STORE_FILE_DIR", "./data")
	v.SetDefault("STORE_DOCUMENT_KEY", "dtu_data_v2")
	v.SetDefault("STORE_IDENTITY", "id")
	v.SetDefault("STORE_RESET_ON_CORRUPT", false)

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campus_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("SQLITE_PATH", "./data/timetable.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_DRIVER", SessionDriverMemory)
	v.SetDefault("SESSION_TTL", "12h")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "campus-timetable-api")

	v.SetDefault("PASSWORD_SCHEME", "plain")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("PENDING_SIGNUP_TTL", "5m")
	v.SetDefault("AUTH_RATE_LIMIT_PER_MIN", 30)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 10)

	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_WORKERS", 1)
	v.SetDefault("OTP_DELIVERY_RETRIES", 3)

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "DTU Timetable")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@dtu.ac.in")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/")
	v.SetDefault("GEMINI_API_VERSION", "v1beta")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("CHAT_TIMEOUT", "30s")
	v.SetDefault("CHAT_RATE_LIMIT_PER_MIN", 20)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "campus-timetable-api")

	v.SetDefault("ROLLBAR_TOKEN", "")
	v.SetDefault("ROLLBAR_ENVIRONMENT", "")

	v.SetDefault("TIMETABLE_SKELETON_PATH", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// isMissingFile treats an absent .env as "no overrides"; viper reports it as a
// path error rather than ConfigFileNotFoundError when SetConfigFile is used.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
