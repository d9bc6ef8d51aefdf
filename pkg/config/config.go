package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultLogExtension is the flight-controller log file extension.
	DefaultLogExtension = ".bin"

	// DefaultKeyPrefix is the default object key prefix for uploads.
	DefaultKeyPrefix = "logs"

	// DefaultListen is the default web server listen address.
	DefaultListen = ":5000"

	// DefaultMaxUploadBytes caps form uploads at 100 MiB.
	DefaultMaxUploadBytes = 100 << 20
)

// defaultMountBaseDirs are the places removable flight-controller storage
// is commonly auto-mounted. $USER is expanded at scan time.
var defaultMountBaseDirs = []string{
	"/media/pi",
	"/media/$USER",
	"/mnt",
	"/run/media/$USER",
}

// defaultVendorTokens match volume names used by flight-controller firmware.
var defaultVendorTokens = []string{"PIXHAWK", "APM", "PX4", "FMUV", "MINDPX"}

// Config is the root configuration for loglift.
type Config struct {
	Global  GlobalConfig  `yaml:"global"`
	Locator LocatorConfig `yaml:"locator"`
	Storage StorageConfig `yaml:"storage"`
	Batch   BatchConfig   `yaml:"batch"`
	Web     *WebConfig    `yaml:"web,omitempty"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// LocatorConfig controls where flight logs are searched for.
type LocatorConfig struct {
	LogsDir       string   `yaml:"logs_dir"`
	Extension     string   `yaml:"extension,omitempty"`
	MountBaseDirs []string `yaml:"mount_base_dirs,omitempty"`
	VendorTokens  []string `yaml:"vendor_tokens,omitempty"`
}

// StorageConfig contains remote storage settings.
type StorageConfig struct {
	S3 *S3Config `yaml:"s3"`
}

// S3Config contains S3-compatible storage settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region,omitempty"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	StorageClass    string `yaml:"storage_class,omitempty"`
	ACL             string `yaml:"acl,omitempty"`
}

// BatchConfig contains settings for the batch upload command.
type BatchConfig struct {
	TaskID       string `yaml:"task_id"`
	ArchiveDir   string `yaml:"archive_dir,omitempty"`
	ArchiveOwner string `yaml:"archive_owner,omitempty"`
}

// WebConfig contains web form server settings.
type WebConfig struct {
	Listen         string          `yaml:"listen"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes,omitempty"`
	CORSOrigins    []string        `yaml:"cors_origins,omitempty"`
	RateLimit      RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig configures per-IP rate limiting on the upload endpoint.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// Load reads and parses a configuration file from the given path.
// A .env file in the working directory is loaded first so that
// LOGLIFT_* environment overrides can live alongside the binary.
func Load(path string) (*Config, error) {
	// Missing .env is fine; overrides may come from the real environment.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnvOverrides lets LOGLIFT_* environment variables override file
// values. Credentials and task IDs are the usual candidates.
func (c *Config) applyEnvOverrides() {
	overrideString("LOGLIFT_GLOBAL_LOG_LEVEL", &c.Global.LogLevel)
	overrideString("LOGLIFT_LOCATOR_LOGS_DIR", &c.Locator.LogsDir)
	overrideString("LOGLIFT_BATCH_TASK_ID", &c.Batch.TaskID)

	if c.Storage.S3 == nil {
		if _, ok := os.LookupEnv("LOGLIFT_STORAGE_S3_BUCKET"); ok {
			c.Storage.S3 = &S3Config{}
		}
	}

	if s3 := c.Storage.S3; s3 != nil {
		overrideString("LOGLIFT_STORAGE_S3_BUCKET", &s3.Bucket)
		overrideString("LOGLIFT_STORAGE_S3_REGION", &s3.Region)
		overrideString("LOGLIFT_STORAGE_S3_ENDPOINT_URL", &s3.EndpointURL)
		overrideString("LOGLIFT_STORAGE_S3_ACCESS_KEY_ID", &s3.AccessKeyID)
		overrideString("LOGLIFT_STORAGE_S3_SECRET_ACCESS_KEY", &s3.SecretAccessKey)
		overrideString("LOGLIFT_STORAGE_S3_PREFIX", &s3.Prefix)
	}

	if c.Web != nil {
		overrideString("LOGLIFT_WEB_LISTEN", &c.Web.Listen)
		overrideInt64("LOGLIFT_WEB_MAX_UPLOAD_BYTES", &c.Web.MaxUploadBytes)
	}
}

func overrideString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func overrideInt64(key string, dst *int64) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return
	}

	*dst = n
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Locator.Extension == "" {
		c.Locator.Extension = DefaultLogExtension
	}

	if len(c.Locator.MountBaseDirs) == 0 {
		c.Locator.MountBaseDirs = append([]string(nil), defaultMountBaseDirs...)
	}

	if len(c.Locator.VendorTokens) == 0 {
		c.Locator.VendorTokens = append([]string(nil), defaultVendorTokens...)
	}

	if c.Storage.S3 != nil && c.Storage.S3.Prefix == "" {
		c.Storage.S3.Prefix = DefaultKeyPrefix
	}

	if c.Web != nil {
		if c.Web.Listen == "" {
			c.Web.Listen = DefaultListen
		}

		if c.Web.MaxUploadBytes == 0 {
			c.Web.MaxUploadBytes = DefaultMaxUploadBytes
		}
	}
}

// Validate checks settings shared by all commands.
func (c *Config) Validate() error {
	if c.Storage.S3 == nil {
		return fmt.Errorf("storage.s3 section is required")
	}

	if c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required")
	}

	if (c.Storage.S3.AccessKeyID == "") != (c.Storage.S3.SecretAccessKey == "") {
		return fmt.Errorf("storage.s3: access_key_id and secret_access_key must be set together")
	}

	return nil
}

// ValidateBatch checks settings the batch upload command needs.
func (c *Config) ValidateBatch() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Batch.TaskID == "" {
		return fmt.Errorf("batch.task_id is required (or set LOGLIFT_BATCH_TASK_ID)")
	}

	if c.Locator.LogsDir == "" {
		return fmt.Errorf("locator.logs_dir is required")
	}

	return nil
}

// ValidateWeb checks settings the web form server needs.
func (c *Config) ValidateWeb() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Web == nil {
		return fmt.Errorf("web section is required")
	}

	if c.Web.RateLimit.Enabled && c.Web.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("web.rate_limit.requests_per_minute must be positive when enabled")
	}

	return nil
}
