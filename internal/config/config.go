package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Log       LogConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Session   SessionConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Export    ExportConfig
	Printer   PrinterConfig
	Backup    BackupConfig
	Seed      SeedConfig

	// ConfigFileErr is set when the .env file could not be read
	ConfigFileErr error
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// StorageConfig selects the durable key-value backend for catalog collections
type StorageConfig struct {
	Driver      string // sqlite, postgres, bolt or redis
	Path        string // sqlite database file
	BoltPath    string
	RedisURL    string
	RedisPrefix string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type ExportConfig struct {
	StoreName    string
	Address      string
	Phone        string
	FontURL      string
	FontPath     string
	FontFamily   string
	FetchTimeout time.Duration
}

type PrinterConfig struct {
	Type      string
	USBPath   string
	Address   string
	CharWidth int
}

type BackupConfig struct {
	Schedule string
	Dir      string
}

type SeedConfig struct {
	Demo bool
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	fileErr := viper.ReadInConfig()

	viper.SetDefault("APP_NAME", "pharmacy-invoice")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("LOG_MAX_SIZE_MB", 50)
	viper.SetDefault("LOG_MAX_BACKUPS", 5)
	viper.SetDefault("LOG_MAX_AGE_DAYS", 30)
	viper.SetDefault("STORAGE_DRIVER", "sqlite")
	viper.SetDefault("STORAGE_PATH", "./storage/pharmacy.db")
	viper.SetDefault("STORAGE_BOLT_PATH", "./storage/pharmacy.bolt")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("REDIS_PREFIX", "pharmacy:")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "pharmacy")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("SESSION_TTL_MINUTES", 120)
	viper.SetDefault("SESSION_CLEANUP_MINUTES", 10)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("EXPORT_STORE_NAME", "صيدلية")
	viper.SetDefault("EXPORT_STORE_ADDRESS", "")
	viper.SetDefault("EXPORT_STORE_PHONE", "")
	viper.SetDefault("EXPORT_FONT_URL", "")
	viper.SetDefault("EXPORT_FONT_PATH", "")
	viper.SetDefault("EXPORT_FONT_FAMILY", "Amiri")
	viper.SetDefault("EXPORT_FONT_TIMEOUT_SECONDS", 15)
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_USB_PATH", "/dev/usb/lp0")
	viper.SetDefault("PRINTER_ADDRESS", "")
	viper.SetDefault("PRINTER_CHAR_WIDTH", 32)
	viper.SetDefault("BACKUP_SCHEDULE", "")
	viper.SetDefault("BACKUP_DIR", "./storage/backups")
	viper.SetDefault("SEED_DEMO", false)

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Log: LogConfig{
			Level:      viper.GetString("LOG_LEVEL"),
			File:       viper.GetString("LOG_FILE"),
			MaxSizeMB:  viper.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: viper.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: viper.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Storage: StorageConfig{
			Driver:      viper.GetString("STORAGE_DRIVER"),
			Path:        viper.GetString("STORAGE_PATH"),
			BoltPath:    viper.GetString("STORAGE_BOLT_PATH"),
			RedisURL:    viper.GetString("REDIS_URL"),
			RedisPrefix: viper.GetString("REDIS_PREFIX"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		Session: SessionConfig{
			TTL:             time.Duration(viper.GetInt("SESSION_TTL_MINUTES")) * time.Minute,
			CleanupInterval: time.Duration(viper.GetInt("SESSION_CLEANUP_MINUTES")) * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Export: ExportConfig{
			StoreName:    viper.GetString("EXPORT_STORE_NAME"),
			Address:      viper.GetString("EXPORT_STORE_ADDRESS"),
			Phone:        viper.GetString("EXPORT_STORE_PHONE"),
			FontURL:      viper.GetString("EXPORT_FONT_URL"),
			FontPath:     viper.GetString("EXPORT_FONT_PATH"),
			FontFamily:   viper.GetString("EXPORT_FONT_FAMILY"),
			FetchTimeout: time.Duration(viper.GetInt("EXPORT_FONT_TIMEOUT_SECONDS")) * time.Second,
		},
		Printer: PrinterConfig{
			Type:      viper.GetString("PRINTER_TYPE"),
			USBPath:   viper.GetString("PRINTER_USB_PATH"),
			Address:   viper.GetString("PRINTER_ADDRESS"),
			CharWidth: viper.GetInt("PRINTER_CHAR_WIDTH"),
		},
		Backup: BackupConfig{
			Schedule: viper.GetString("BACKUP_SCHEDULE"),
			Dir:      viper.GetString("BACKUP_DIR"),
		},
		Seed: SeedConfig{
			Demo: viper.GetBool("SEED_DEMO"),
		},
		ConfigFileErr: fileErr,
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
