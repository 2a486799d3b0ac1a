// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	Bluetooth BluetoothConfig `mapstructure:"bluetooth"`
	Serial    SerialConfig    `mapstructure:"serial"`
	USB       USBConfig       `mapstructure:"usb"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	App       AppConfig       `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StorageConfig selects where printer identities and the receipt
// counter live. The file driver needs no external services; the
// postgres driver shares state between POS stations.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	FilePath string         `mapstructure:"file_path"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig represents PostgreSQL configuration
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// PrinterConfig represents document rendering defaults
type PrinterConfig struct {
	PaperWidth int  `mapstructure:"paper_width"`
	Density    int  `mapstructure:"density"`
	CutPaper   bool `mapstructure:"cut_paper"`
	PartialCut bool `mapstructure:"partial_cut"`
	OpenDrawer bool `mapstructure:"open_drawer"`
	FeedLines  int  `mapstructure:"feed_lines"`
	// ExchangeRate is the CRC per USD rate used on closure reports.
	ExchangeRate float64 `mapstructure:"exchange_rate"`
}

// BluetoothConfig represents BLE link configuration
type BluetoothConfig struct {
	ScanTimeout    time.Duration `mapstructure:"scan_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	ChunkDelay     time.Duration `mapstructure:"chunk_delay"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// SerialConfig represents serial line configuration
type SerialConfig struct {
	BaudRate     int           `mapstructure:"baud_rate"`
	DataBits     int           `mapstructure:"data_bits"`
	StopBits     int           `mapstructure:"stop_bits"`
	Parity       string        `mapstructure:"parity"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// USBConfig represents USB device configuration
type USBConfig struct {
	VendorID  uint16 `mapstructure:"vendor_id"`
	ProductID uint16 `mapstructure:"product_id"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables. A
// missing config file is not an error; the service runs on defaults
// so a POS station needs no setup beyond plugging in the printer.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/printer-service")

	// Environment variable support
	viper.SetEnvPrefix("PRINTER_SERVICE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", "8086")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Storage defaults
	viper.SetDefault("storage.driver", "file")
	viper.SetDefault("storage.file_path", "./data/printers.json")
	viper.SetDefault("storage.database.host", "localhost")
	viper.SetDefault("storage.database.port", 5432)
	viper.SetDefault("storage.database.user", "postgres")
	viper.SetDefault("storage.database.password", "postgres")
	viper.SetDefault("storage.database.dbname", "printer_service")
	viper.SetDefault("storage.database.sslmode", "disable")
	viper.SetDefault("storage.database.max_open_conns", 10)
	viper.SetDefault("storage.database.max_idle_conns", 2)
	viper.SetDefault("storage.database.max_lifetime", "5m")

	// Printer defaults: 58mm paper, mid density
	viper.SetDefault("printer.paper_width", 32)
	viper.SetDefault("printer.density", 3)
	viper.SetDefault("printer.cut_paper", true)
	viper.SetDefault("printer.partial_cut", false)
	viper.SetDefault("printer.open_drawer", false)
	viper.SetDefault("printer.feed_lines", 3)
	viper.SetDefault("printer.exchange_rate", 520.0)

	// Bluetooth defaults
	viper.SetDefault("bluetooth.scan_timeout", "30s")
	viper.SetDefault("bluetooth.connect_timeout", "15s")
	viper.SetDefault("bluetooth.chunk_size", 20)
	viper.SetDefault("bluetooth.chunk_delay", "10ms")
	viper.SetDefault("bluetooth.retry_attempts", 3)
	viper.SetDefault("bluetooth.retry_delay", "200ms")

	// Serial defaults
	viper.SetDefault("serial.baud_rate", 9600)
	viper.SetDefault("serial.data_bits", 8)
	viper.SetDefault("serial.stop_bits", 1)
	viper.SetDefault("serial.parity", "none")
	viper.SetDefault("serial.write_timeout", "5s")

	// Security defaults: the service is a localhost sidecar for the
	// POS frontend
	viper.SetDefault("security.allowed_origins", []string{"http://localhost:3000"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("logging.compress", true)

	// App defaults
	viper.SetDefault("app.name", "printer-service")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	switch config.Storage.Driver {
	case "file", "postgres":
	default:
		return fmt.Errorf("storage.driver must be file or postgres, got %q", config.Storage.Driver)
	}
	if config.Storage.Driver == "postgres" && config.Storage.Database.Host == "" {
		return fmt.Errorf("storage.database.host is required with the postgres driver")
	}

	if config.Printer.PaperWidth < 16 {
		return fmt.Errorf("printer.paper_width must be at least 16, got %d", config.Printer.PaperWidth)
	}
	if config.Printer.ExchangeRate <= 0 {
		return fmt.Errorf("printer.exchange_rate must be positive")
	}
	if config.Bluetooth.ChunkSize <= 0 {
		return fmt.Errorf("bluetooth.chunk_size must be positive")
	}
	if config.Bluetooth.RetryAttempts < 1 {
		return fmt.Errorf("bluetooth.retry_attempts must be at least 1")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	isValidEnv := false
	for _, env := range validEnvs {
		if config.App.Environment == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	isValidLevel := false
	for _, level := range validLevels {
		if config.Logging.Level == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	db := c.Storage.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode)
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
