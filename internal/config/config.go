// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Upload     UploadConfig
	Search     SearchConfig
	Pagination PaginationConfig
	Dataset    DatasetConfig
	Export     ExportConfig
	History    HistoryConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 5001)
	// PORT is what most hosting platforms set; SERVER_PORT is accepted too.
	Port int `env:"PORT" envAlt:"SERVER_PORT" default:"5001"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 120s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds the optional load-history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. When empty, load history is
	// kept in memory. Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds file ingestion settings.
type UploadConfig struct {
	// Dir is where uploaded files are kept (default: uploads)
	Dir string `env:"UPLOAD_DIR" default:"uploads"`

	// MaxFileSize is the maximum allowed file size, e.g. "16MiB" (default: 16MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"16MiB" unit:"bytes"`

	// MaxCells caps rows*columns of a loaded table (default: 20M)
	MaxCells int `env:"UPLOAD_MAX_CELLS" default:"20000000"`

	// MaxConcurrent is the maximum number of files parsed at once (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// KeepFiles saves each accepted upload under Dir (default: true)
	KeepFiles bool `env:"UPLOAD_KEEP_FILES" default:"true"`

	// RawCellValues reads xlsx stored values instead of formatted text (default: false)
	RawCellValues bool `env:"UPLOAD_RAW_CELL_VALUES" default:"false"`

	// KeepMissingMarkers keeps cells like "NA" or "null" as text (default: false)
	KeepMissingMarkers bool `env:"UPLOAD_KEEP_MISSING_MARKERS" default:"false"`
}

// SearchConfig tunes the parallel row scan.
type SearchConfig struct {
	// Workers is the number of chunks scanned at once (default: 0 = GOMAXPROCS)
	Workers int `env:"SEARCH_WORKERS" default:"0"`

	// ChunkRows is the number of rows per scan task (default: 4096)
	ChunkRows int `env:"SEARCH_CHUNK_ROWS" default:"4096"`
}

// PaginationConfig holds page size limits.
type PaginationConfig struct {
	// DefaultPerPage is used when per_page is absent or not positive (default: 50)
	DefaultPerPage int `env:"PAGINATION_DEFAULT_PER_PAGE" default:"50"`

	// MaxPerPage caps per_page (default: 100)
	MaxPerPage int `env:"PAGINATION_MAX_PER_PAGE" default:"100"`
}

// DatasetConfig lists the files tried at startup.
type DatasetConfig struct {
	// Files are tried in order, the full dataset first, then the sample
	Files []string `env:"DATASET_FILES" default:"nadiad_All_part_merged-filterd.xlsx,sample_data.xlsx"`

	// Dirs are searched in order for each file
	Dirs []string `env:"DATASET_DIRS" default:".,uploads"`
}

// ExportConfig selects where exported files are written.
type ExportConfig struct {
	// Backend is local, s3 or minio (default: local)
	Backend string `env:"EXPORT_BACKEND" default:"local"`

	// Dir is the local export directory (default: uploads/exports)
	Dir string `env:"EXPORT_DIR" default:"uploads/exports"`

	// Bucket is the s3/minio bucket
	Bucket string `env:"EXPORT_BUCKET"`

	// Prefix is prepended to s3/minio object keys (default: exports)
	Prefix string `env:"EXPORT_PREFIX" default:"exports"`

	// Region is the s3/minio region
	Region string `env:"EXPORT_REGION" envAlt:"AWS_REGION"`

	// Endpoint is the minio host:port
	Endpoint string `env:"MINIO_ENDPOINT"`

	// AccessKey and SecretKey are the minio credentials
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`

	// UseSSL enables TLS to minio (default: true)
	UseSSL bool `env:"MINIO_USE_SSL" default:"true"`

	// Retention is how long exports are kept (default: 24h)
	Retention time.Duration `env:"EXPORT_RETENTION" default:"24h"`

	// JanitorInterval is how often expired exports are purged (default: 1h)
	JanitorInterval time.Duration `env:"EXPORT_JANITOR_INTERVAL" default:"1h"`
}

// HistoryConfig holds load history settings.
type HistoryConfig struct {
	// Capacity is how many events the in-memory recorder keeps (default: 1000)
	Capacity int `env:"HISTORY_CAPACITY" default:"1000"`

	// Retention is how long events are kept before the janitor prunes them (default: 720h)
	Retention time.Duration `env:"HISTORY_RETENTION" default:"720h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// ExposeErrors returns internal error detail to clients (default: false)
	ExposeErrors bool `env:"SECURITY_EXPOSE_ERRORS" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
