package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	StorageDisk = "disk"
	StorageS3   = "s3"

	AnalyzerProcess = "process"
	AnalyzerHTTP    = "http"
)

type DBConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

type ServerConfig struct {
	Port               string
	Env                string
	FrontendURL        string
	RateLimitPerMinute int
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

type StorageConfig struct {
	Backend        string
	UploadDir      string
	MaxUploadBytes int64
	// S3/R2
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicURL       string
	Endpoint        string
	Region          string
}

type AnalyzerConfig struct {
	Mode         string
	URL          string
	Interpreter  string
	Script       string
	WorkDir      string
	Timeout      time.Duration
	MaxDimension int
}

type OAuthConfig struct {
	GoogleKey    string
	GoogleSecret string
	CallbackURL  string
}

func (c OAuthConfig) Enabled() bool {
	return c.GoogleKey != "" && c.GoogleSecret != ""
}

type Config struct {
	ServiceName string
	LogLevel    string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Storage     StorageConfig
	Analyzer    AnalyzerConfig
	OAuth       OAuthConfig
}

func (c *Config) Development() bool {
	return c.Server.Env == "development"
}

// Load reads the process environment, after loading .env when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "beauty-advisor"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DB: DBConfig{
			DSN:             getEnv("DSN", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "warn"),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "3000"),
			Env:                getEnv("APP_ENV", "development"),
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3001"),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Storage: StorageConfig{
			Backend:         strings.ToLower(getEnv("STORAGE_BACKEND", StorageDisk)),
			UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 5<<20)),
			AccountID:       getEnv("ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("ACCESS_KEY_SECRET", ""),
			Bucket:          getEnv("BUCKET_NAME", ""),
			PublicURL:       getEnv("PUBLIC_URL", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "auto"),
		},
		Analyzer: AnalyzerConfig{
			Mode:         strings.ToLower(getEnv("ANALYZER", AnalyzerProcess)),
			URL:          getEnv("ML_API_URL", ""),
			Interpreter:  getEnv("MODEL_INTERPRETER", "python"),
			Script:       getEnv("MODEL_SCRIPT", "./models/beauty_advisor_model.py"),
			WorkDir:      getEnv("MODEL_WORK_DIR", "./models/outputs"),
			Timeout:      getEnvAsDuration("ANALYZER_TIMEOUT", 60*time.Second),
			MaxDimension: getEnvAsInt("ANALYZER_MAX_DIMENSION", 1024),
		},
		OAuth: OAuthConfig{
			GoogleKey:    getEnv("GOOGLE_KEY", ""),
			GoogleSecret: getEnv("GOOGLE_SECRET", ""),
			CallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:3000/api/auth/google/callback"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.DB.DSN == "" {
		return errors.New("DSN is required")
	}
	if c.JWT.Secret == "" {
		if !c.Development() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWT.Secret = "default_secret_change_this_in_production"
	}
	if c.JWT.ExpirationHours <= 0 {
		return errors.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", c.JWT.ExpirationHours)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return errors.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.Storage.MaxUploadBytes)
	}

	switch c.Storage.Backend {
	case StorageDisk:
		if c.Storage.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the disk storage backend")
		}
	case StorageS3:
		if c.Storage.Bucket == "" || c.Storage.PublicURL == "" {
			return errors.New("BUCKET_NAME and PUBLIC_URL are required for the s3 storage backend")
		}
		if c.Storage.Endpoint == "" && c.Storage.AccountID == "" {
			return errors.New("S3_ENDPOINT or ACCOUNT_ID is required for the s3 storage backend")
		}
	default:
		return errors.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.Analyzer.Mode {
	case AnalyzerHTTP:
		if c.Analyzer.URL == "" {
			return errors.New("ML_API_URL is required for the http analyzer")
		}
	case AnalyzerProcess:
		if c.Analyzer.Interpreter == "" {
			return errors.New("MODEL_INTERPRETER is required for the process analyzer")
		}
	default:
		return errors.Errorf("unknown ANALYZER %q", c.Analyzer.Mode)
	}
	return nil
}

// LogFields returns the non-secret settings for the startup log line.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("port", c.Server.Port),
		zap.String("frontend_url", c.Server.FrontendURL),
		zap.String("storage_backend", c.Storage.Backend),
		zap.String("analyzer", c.Analyzer.Mode),
		zap.Bool("google_oauth", c.OAuth.Enabled()),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
