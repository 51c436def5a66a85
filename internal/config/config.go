// Package config reads both services' settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	ObjectStoreMinio = "minio"
	ObjectStoreLocal = "local"
)

var (
	ErrNoJWTSecret     = errors.New("JWT_SECRET is required")
	ErrNoSigningSecret = errors.New("SIGNING_SECRET is required for the local object store")
	ErrUnknownBackend  = errors.New("unknown OBJECT_STORE")
	ErrNoS3Settings    = errors.New("S3_ENDPOINT and S3_BUCKET are required for the minio object store")
)

type Config struct {
	SharePort string `mapstructure:"SHARE_PORT"`
	BlobPort  string `mapstructure:"BLOB_PORT"`
	DBFile    string `mapstructure:"DB_FILE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`

	ObjectStore string `mapstructure:"OBJECT_STORE"`

	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3AccessKey string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL    bool   `mapstructure:"S3_USE_SSL"`

	BlobBaseURL   string `mapstructure:"BLOB_BASE_URL"`
	BlobDir       string `mapstructure:"BLOB_DIR"`
	BlobMaxSize   int64  `mapstructure:"BLOB_MAX_SIZE"`
	SigningSecret string `mapstructure:"SIGNING_SECRET"`

	UploadURLTTL    time.Duration `mapstructure:"UPLOAD_URL_TTL"`
	DownloadURLTTL  time.Duration `mapstructure:"DOWNLOAD_URL_TTL"`
	URLCacheSize    int           `mapstructure:"URL_CACHE_SIZE"`
	StoreMaxRetries uint64        `mapstructure:"STORE_MAX_RETRIES"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"SHARE_PORT":        "8080",
	"BLOB_PORT":         "8081",
	"DB_FILE":           "share-service.db",
	"JWT_SECRET":        "",
	"JWT_ISSUER":        "file-share",
	"OBJECT_STORE":      ObjectStoreLocal,
	"S3_ENDPOINT":       "",
	"S3_REGION":         "us-east-1",
	"S3_BUCKET":         "",
	"S3_ACCESS_KEY":     "",
	"S3_SECRET_KEY":     "",
	"S3_USE_SSL":        false,
	"BLOB_BASE_URL":     "http://localhost:8081",
	"BLOB_DIR":          "data",
	"BLOB_MAX_SIZE":     int64(1 << 30),
	"SIGNING_SECRET":    "",
	"UPLOAD_URL_TTL":    15 * time.Minute,
	"DOWNLOAD_URL_TTL":  time.Hour,
	"URL_CACHE_SIZE":    1024,
	"STORE_MAX_RETRIES": 3,
	"LOG_LEVEL":         "info",
	"LOG_FORMAT":        "text",
}

// Load reads .env when it exists, then the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ObjectStore = strings.ToLower(cfg.ObjectStore)
	return &cfg, nil
}

// ValidateShare checks what the share-service needs to start.
func (c *Config) ValidateShare() error {
	if c.JWTSecret == "" {
		return ErrNoJWTSecret
	}
	switch c.ObjectStore {
	case ObjectStoreLocal:
		if c.SigningSecret == "" {
			return ErrNoSigningSecret
		}
	case ObjectStoreMinio:
		if c.S3Endpoint == "" || c.S3Bucket == "" {
			return ErrNoS3Settings
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.ObjectStore)
	}
	return nil
}

// ValidateBlob checks what the blob-service needs to start.
func (c *Config) ValidateBlob() error {
	if c.SigningSecret == "" {
		return ErrNoSigningSecret
	}
	return nil
}

// Logger builds the root log entry for a service. An unknown level falls back
// to info.
func (c *Config) Logger(service string) *log.Entry {
	logger := log.New()
	if lvl, err := log.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger.WithField("service", service)
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  SharePort: %s\n", c.SharePort)
	fmt.Fprintf(&sb, "  BlobPort: %s\n", c.BlobPort)
	fmt.Fprintf(&sb, "  DBFile: %s\n", c.DBFile)
	fmt.Fprintf(&sb, "  JWTIssuer: %s\n", c.JWTIssuer)
	fmt.Fprintf(&sb, "  ObjectStore: %s\n", c.ObjectStore)
	fmt.Fprintf(&sb, "  S3Endpoint: %s\n", c.S3Endpoint)
	fmt.Fprintf(&sb, "  S3Bucket: %s\n", c.S3Bucket)
	fmt.Fprintf(&sb, "  BlobBaseURL: %s\n", c.BlobBaseURL)
	fmt.Fprintf(&sb, "  BlobDir: %s\n", c.BlobDir)
	fmt.Fprintf(&sb, "  UploadURLTTL: %s\n", c.UploadURLTTL)
	fmt.Fprintf(&sb, "  DownloadURLTTL: %s\n", c.DownloadURLTTL)
	for name, secret := range map[string]string{
		"JWTSecret":     c.JWTSecret,
		"SigningSecret": c.SigningSecret,
		"S3SecretKey":   c.S3SecretKey,
	} {
		if secret != "" {
			fmt.Fprintf(&sb, "  %s: ********\n", name)
		} else {
			fmt.Fprintf(&sb, "  %s: (empty)\n", name)
		}
	}
	return sb.String()
}
