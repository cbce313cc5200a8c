package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// AppEnv is the running environment (development/production).
	AppEnv string `yaml:"app_env"`
	// ServerPort is the HTTP port to listen on.
	ServerPort string `yaml:"server_port"`
	// AWSRegion is the AWS region for S3 storage.
	AWSRegion string `yaml:"aws_region"`
	// S3Bucket holds uploaded workbooks and rendered PDFs.
	S3Bucket string `yaml:"s3_bucket"`
	// S3Endpoint is an optional custom endpoint (MinIO and other S3 compatibles).
	S3Endpoint string `yaml:"s3_endpoint"`
	// S3PathStyle enables path-style addressing.
	S3PathStyle bool `yaml:"s3_path_style"`
	// Static S3 credentials; empty means anonymous access.
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
	// StorageType is "local" or "s3".
	StorageType string `yaml:"storage_type"`
	// LocalStoragePath is the root directory for local storage.
	LocalStoragePath string `yaml:"local_storage_path"`
	// DBDriver selects the job history backend: mysql, postgres, sqlite3, mongo, or empty for none.
	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`
	// SMTP settings for completion emails.
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	SMTPFrom     string `yaml:"smtp_from"`
	// WorkerCount is the number of goroutines pulling conversion jobs.
	WorkerCount int `yaml:"worker_count"`
	// MaxConcurrentConversions caps conversions running at once, across workers
	// and synchronous requests.
	MaxConcurrentConversions int64 `yaml:"max_concurrent_conversions"`
	// DefaultTimeout bounds a single conversion job.
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// Compression gzips stored PDFs.
	Compression bool `yaml:"compression"`
	// AttachFile sends the PDF as an email attachment when small enough.
	AttachFile bool `yaml:"attach_file"`
	// APISecret is the shared secret for HMAC-SHA256 request signing.
	APISecret string `yaml:"api_secret"`
	// AllowedOrigins is a list of CORS allowed domains.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxUploadBytes caps the size of an uploaded workbook.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	// SpacingMode is "fit" or "legacy", see layout.SpacingMode.
	SpacingMode string `yaml:"spacing_mode"`
	// FontFamily is the PDF core font used for cell text.
	FontFamily string `yaml:"font_family"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		AppEnv:                   "development",
		ServerPort:               "8080",
		AWSRegion:                "us-east-1",
		S3Bucket:                 "sheet2pdf",
		StorageType:              "local",
		LocalStoragePath:         "./data",
		SMTPPort:                 587,
		SMTPFrom:                 "noreply@example.com",
		WorkerCount:              4,
		MaxConcurrentConversions: 2,
		DefaultTimeout:           5 * time.Minute,
		AllowedOrigins:           []string{"*"},
		MaxUploadBytes:           32 << 20,
		SpacingMode:              "fit",
		FontFamily:               "Helvetica",
	}
}

// Load reads the optional YAML file named by CONFIG_FILE and applies
// environment overrides on top.
func Load() (*Config, error) {
	cfg := Defaults()
	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile merges a YAML document into cfg. Keys absent from the file keep
// their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.AllowedOrigins = getEnvSlice("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3PathStyle = getEnvBool("S3_PATH_STYLE", c.S3PathStyle)
	c.AWSAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", c.AWSAccessKeyID)
	c.AWSSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", c.AWSSecretAccessKey)
	c.StorageType = getEnv("STORAGE_TYPE", c.StorageType)
	c.LocalStoragePath = getEnv("LOCAL_STORAGE_PATH", c.LocalStoragePath)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DBDSN = getEnv("DB_DSN", c.DBDSN)
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnvInt("SMTP_PORT", c.SMTPPort)
	c.SMTPUser = getEnv("SMTP_USER", c.SMTPUser)
	c.SMTPPassword = getEnv("SMTP_PASS", c.SMTPPassword)
	c.SMTPFrom = getEnv("SMTP_FROM", c.SMTPFrom)
	c.WorkerCount = getEnvInt("WORKER_COUNT", c.WorkerCount)
	c.MaxConcurrentConversions = int64(getEnvInt("MAX_CONCURRENT_CONVERSIONS", int(c.MaxConcurrentConversions)))
	c.DefaultTimeout = getEnvDuration("DEFAULT_TIMEOUT", c.DefaultTimeout)
	c.Compression = getEnvBool("COMPRESSION", c.Compression)
	c.AttachFile = getEnvBool("EMAIL_ATTACH_FILE", c.AttachFile)
	c.APISecret = getEnv("API_SECRET", c.APISecret)
	c.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.SpacingMode = getEnv("SPACING_MODE", c.SpacingMode)
	c.FontFamily = getEnv("FONT_FAMILY", c.FontFamily)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		var result []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
		return result
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
