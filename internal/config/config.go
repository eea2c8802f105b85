// Package config loads service configuration with the precedence
// runtime overrides > environment > config file > defaults.
package config

import "time"

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Codegen CodegenConfig `mapstructure:"codegen"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Storage StorageConfig `mapstructure:"storage"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// JobsConfig configures the job registry and worker queue.
type JobsConfig struct {
	DataDir        string        `mapstructure:"data_dir"`
	Workers        int           `mapstructure:"workers"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// CodegenConfig configures the code-generation service client.
type CodegenConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	ServiceRetries    int           `mapstructure:"service_retries"`
}

// SandboxConfig configures generated-script execution.
type SandboxConfig struct {
	Interpreter string        `mapstructure:"interpreter"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects and configures the artifact store.
// Backend is "local" or "s3".
type StorageConfig struct {
	Backend  string          `mapstructure:"backend"`
	LocalDir string          `mapstructure:"local_dir"`
	S3       S3StorageConfig `mapstructure:"s3"`
}

// S3StorageConfig configures the S3 artifact store backend.
type S3StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// defaults maps config keys to their default values.
func defaults() map[string]any {
	return map[string]any{
		"server.host":             "localhost",
		"server.port":             8080,
		"server.read_timeout":     30 * time.Second,
		"server.write_timeout":    30 * time.Second,
		"server.idle_timeout":     120 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,

		"logging.level":   "info",
		"logging.profile": "STRUCTURED",

		"jobs.data_dir":         "data/jobs",
		"jobs.workers":          2,
		"jobs.poll_interval":    2 * time.Second,
		"jobs.retry_base_delay": 5 * time.Second,

		"codegen.base_url":            "https://api.openai.com/v1",
		"codegen.model":               "gpt-4o-mini",
		"codegen.temperature":         0.0,
		"codegen.timeout":             60 * time.Second,
		"codegen.requests_per_second": 1.0,
		"codegen.service_retries":     2,

		"sandbox.interpreter": "python3",
		"sandbox.timeout":     2 * time.Minute,

		"storage.backend":   "local",
		"storage.local_dir": "data/artifacts",
	}
}

// envBindings maps config keys to their environment variable names.
func envBindings() map[string]string {
	return map[string]string{
		"server.host":             "NAVCONV_HOST",
		"server.port":             "NAVCONV_PORT",
		"server.read_timeout":     "NAVCONV_READ_TIMEOUT",
		"server.write_timeout":    "NAVCONV_WRITE_TIMEOUT",
		"server.shutdown_timeout": "NAVCONV_SHUTDOWN_TIMEOUT",

		"logging.level":   "NAVCONV_LOG_LEVEL",
		"logging.profile": "NAVCONV_LOG_PROFILE",

		"jobs.data_dir": "NAVCONV_DATA_DIR",
		"jobs.workers":  "NAVCONV_WORKERS",

		"codegen.base_url": "NAVCONV_CODEGEN_BASE_URL",
		"codegen.api_key":  "NAVCONV_CODEGEN_API_KEY",
		"codegen.model":    "NAVCONV_CODEGEN_MODEL",

		"sandbox.interpreter": "NAVCONV_SANDBOX_INTERPRETER",
		"sandbox.timeout":     "NAVCONV_SANDBOX_TIMEOUT",

		"storage.backend":              "NAVCONV_STORAGE_BACKEND",
		"storage.local_dir":            "NAVCONV_STORAGE_LOCAL_DIR",
		"storage.s3.bucket":            "NAVCONV_S3_BUCKET",
		"storage.s3.prefix":            "NAVCONV_S3_PREFIX",
		"storage.s3.region":            "NAVCONV_S3_REGION",
		"storage.s3.endpoint":          "NAVCONV_S3_ENDPOINT",
		"storage.s3.access_key_id":     "NAVCONV_S3_ACCESS_KEY_ID",
		"storage.s3.secret_access_key": "NAVCONV_S3_SECRET_ACCESS_KEY",
		"storage.s3.force_path_style":  "NAVCONV_S3_FORCE_PATH_STYLE",
	}
}
