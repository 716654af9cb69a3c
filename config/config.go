package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
)

// DefaultMaxUploadSize is the video upload cap when UPLOAD_MAX_SIZE is unset.
const DefaultMaxUploadSize = "16M"

const (
	VideoStorageLocal = "local"
	VideoStorageS3    = "s3"
)

type Config struct {
	HTTP     HTTPConfig
	MySQL    MySQLConfig
	JWT      JWTConfig
	Tokens   TokenConfig
	Password PasswordConfig
	Auth     AuthConfig
	Mail     MailConfig
	Payment  PaymentConfig
	Course   CourseConfig
	Storage  StorageConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN         string
	AutoMigrate bool
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type TokenConfig struct {
	ResetTTL time.Duration
}

type PasswordConfig struct {
	Policy PasswordPolicy
}

type AuthConfig struct {
	RequireConfirmedEmail bool
}

type MailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
	FrontendURL    string
}

// Enabled reports whether a real mail transport is configured.
func (m MailConfig) Enabled() bool {
	return m.SendGridAPIKey != "" && m.FromAddress != ""
}

type PaymentConfig struct {
	AccessToken         string
	PublicKey           string
	BaseURL             string
	Timeout             time.Duration
	NotificationURL     string
	SuccessURL          string
	FailureURL          string
	PendingURL          string
	StatementDescriptor string
}

type CourseConfig struct {
	Title       string
	Description string
	Price       float64
	Currency    string
}

type StorageConfig struct {
	Driver      string
	UploadDir   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
	// MaxUploadSize bounds a video upload request, e.g. "16M" or "1G".
	MaxUploadSize string
}

type LogConfig struct {
	Level  string
	Format string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	storage := loadStorageConfig()
	if storage.Driver != VideoStorageLocal && storage.Driver != VideoStorageS3 {
		return nil, fmt.Errorf("unsupported VIDEO_STORAGE %q", storage.Driver)
	}
	if storage.Driver == VideoStorageS3 && storage.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET environment variable is required when VIDEO_STORAGE=s3")
	}

	if size, err := bytes.Parse(storage.MaxUploadSize); err != nil || size <= 0 {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_SIZE %q", storage.MaxUploadSize)
	}

	frontendURL := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/")

	return &Config{
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", ""),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:         mysqlDSN,
			AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
			TTL:    getDurationEnv("JWT_TTL", 24*time.Hour),
		},
		Tokens: TokenConfig{
			ResetTTL: getDurationEnv("RESET_TOKEN_TTL", 1*time.Hour),
		},
		Password: PasswordConfig{
			Policy: loadPasswordPolicy(),
		},
		Auth: AuthConfig{
			RequireConfirmedEmail: getBoolEnv("AUTH_REQUIRE_CONFIRMED_EMAIL", false),
		},
		Mail: MailConfig{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromAddress:    os.Getenv("MAIL_FROM"),
			FromName:       getEnv("MAIL_FROM_NAME", "Course Team"),
			FrontendURL:    frontendURL,
		},
		Payment: PaymentConfig{
			AccessToken:         os.Getenv("MP_ACCESS_TOKEN"),
			PublicKey:           os.Getenv("MP_PUBLIC_KEY"),
			BaseURL:             strings.TrimRight(getEnv("MP_BASE_URL", "https://api.mercadopago.com"), "/"),
			Timeout:             getDurationEnv("MP_TIMEOUT", 10*time.Second),
			NotificationURL:     os.Getenv("MP_NOTIFICATION_URL"),
			SuccessURL:          getEnv("MP_SUCCESS_URL", frontendURL+"/payment-success"),
			FailureURL:          getEnv("MP_FAILURE_URL", frontendURL+"/payment-failure"),
			PendingURL:          getEnv("MP_PENDING_URL", frontendURL+"/payment-pending"),
			StatementDescriptor: getEnv("MP_STATEMENT_DESCRIPTOR", "ONLINE COURSE"),
		},
		Course: CourseConfig{
			Title:       getEnv("COURSE_TITLE", "Online course"),
			Description: getEnv("COURSE_DESCRIPTION", "Full access to the online course"),
			Price:       getFloatEnv("COURSE_PRICE", 10000),
			Currency:    getEnv("COURSE_CURRENCY", "ARS"),
		},
		Storage: storage,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQL.DSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv accepts either a plain number of minutes or a Go duration string.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 6),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:        strings.ToLower(getEnv("VIDEO_STORAGE", VideoStorageLocal)),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:   strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),
		MaxUploadSize: getEnv("UPLOAD_MAX_SIZE", DefaultMaxUploadSize),
	}
}
