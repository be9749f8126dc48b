package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Store      StoreConfig      `mapstructure:"store"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	// busy_timeout keeps concurrent writers from failing fast with SQLITE_BUSY
	return c.Path + "?_busy_timeout=5000"
}

// StoreConfig selects where lists and contacts live.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"` // database, http
	Endpoint EndpointConfig `mapstructure:"endpoint"`
}

// NormalizerConfig selects the normalization provider.
type NormalizerConfig struct {
	Provider string         `mapstructure:"provider"` // remote, local
	Endpoint EndpointConfig `mapstructure:"endpoint"`
}

type IngestConfig struct {
	Workers       int           `mapstructure:"workers"`
	RecordTimeout time.Duration `mapstructure:"record_timeout"`
	MaxUploadMB   int           `mapstructure:"max_upload_mb"`
}

type JobsConfig struct {
	Persist bool `mapstructure:"persist"`
}

// StorageConfig configures the S3-compatible archive for raw uploads.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"` // r2, s3, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment endpoints
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("store.endpoint.api_key", "STORE_API_KEY")
	v.BindEnv("store.endpoint.base_url", "STORE_BASE_URL")
	v.BindEnv("normalizer.endpoint.api_key", "NORMALIZER_API_KEY")
	v.BindEnv("normalizer.endpoint.base_url", "NORMALIZER_BASE_URL")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.Endpoint.ResolveEnvVars()
	cfg.Normalizer.Endpoint.ResolveEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/leadflow.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("store.driver", "database")
	v.SetDefault("store.endpoint.name", "store")
	v.SetDefault("store.endpoint.timeout", "10s")
	v.SetDefault("normalizer.provider", "remote")
	v.SetDefault("normalizer.endpoint.name", "normalizer")
	v.SetDefault("normalizer.endpoint.base_url", "http://localhost:8090")
	v.SetDefault("normalizer.endpoint.timeout", "60s")
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.record_timeout", "5s")
	v.SetDefault("ingest.max_upload_mb", 20)
	v.SetDefault("jobs.persist", true)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "leadflow-uploads")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks cross-field constraints after unmarshalling.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}

	switch c.Store.Driver {
	case "database":
	case "http":
		if err := c.Store.Endpoint.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}

	switch c.Normalizer.Provider {
	case "local":
	case "remote":
		if err := c.Normalizer.Endpoint.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("normalizer: unknown provider %q", c.Normalizer.Provider)
	}

	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest: workers must be positive")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage: bucket is required when enabled")
	}
	return nil
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *IngestConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
