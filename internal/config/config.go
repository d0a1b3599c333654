package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Mail     MailConfig     `mapstructure:"mail"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// GraphConfig holds the Microsoft Graph application credentials
type GraphConfig struct {
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// MailConfig holds outbound mail configuration
type MailConfig struct {
	// SharedMailboxes is a comma-separated list of sender addresses that
	// /api/email/send accepts. Empty means any sender is allowed.
	SharedMailboxes string `mapstructure:"shared_mailboxes"`
}

// PollerConfig holds reply poller configuration
type PollerConfig struct {
	Mailbox         string `mapstructure:"mailbox"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

// StorageConfig holds Azure Blob storage configuration for invoice documents
type StorageConfig struct {
	Account   string `mapstructure:"account"`
	Key       string `mapstructure:"key"`
	Container string `mapstructure:"container"`
	BaseDir   string `mapstructure:"base_dir"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "require")

	viper.SetDefault("poller.interval_seconds", 60)
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")
	viper.BindEnv("database.sslmode", "DB_SSLMODE")

	// Microsoft Graph
	viper.BindEnv("graph.tenant_id", "GRAPH_TENANT_ID")
	viper.BindEnv("graph.client_id", "GRAPH_CLIENT_ID")
	viper.BindEnv("graph.client_secret", "GRAPH_CLIENT_SECRET")

	// Mail
	viper.BindEnv("mail.shared_mailboxes", "SHARED_MAILBOXES")

	// Poller
	viper.BindEnv("poller.mailbox", "REPLY_MAILBOX")
	viper.BindEnv("poller.interval_seconds", "POLLER_INTERVAL_SECONDS")

	// Azure Blob storage
	viper.BindEnv("storage.account", "AZURE_STORAGE_ACCOUNT")
	viper.BindEnv("storage.key", "AZURE_STORAGE_ACCOUNT_KEY")
	viper.BindEnv("storage.container", "AZURE_STORAGE_CONTAINER")
	viper.BindEnv("storage.base_dir", "AZURE_BLOB_BASE_DIR")
}

// GetDSN returns the postgres connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// AllowedMailboxes returns the normalized sender allow-list
func (c *MailConfig) AllowedMailboxes() []string {
	var out []string
	for _, s := range strings.Split(c.SharedMailboxes, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SenderAllowed reports whether addr may be used as the From address
func (c *MailConfig) SenderAllowed(addr string) bool {
	allowed := c.AllowedMailboxes()
	if len(allowed) == 0 {
		return true
	}
	addr = strings.ToLower(strings.TrimSpace(addr))
	for _, a := range allowed {
		if a == addr {
			return true
		}
	}
	return false
}

// Mailbox returns the monitored mailbox address, falling back to the first
// shared mailbox when poller.mailbox is not set
func (c *Config) Mailbox() string {
	if mb := strings.TrimSpace(c.Poller.Mailbox); mb != "" {
		return mb
	}
	shared := c.Mail.AllowedMailboxes()
	if len(shared) > 0 {
		return shared[0]
	}
	return ""
}

// PollerEnabled reports whether the reply poller should run at all. The
// poller needs the monitored mailbox and the full Graph credential triple;
// missing any of them means disabled, not failing.
func (c *Config) PollerEnabled() bool {
	return c.Mailbox() != "" &&
		c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != ""
}

// StorageEnabled reports whether SAS minting credentials are configured
func (c *StorageConfig) StorageEnabled() bool {
	return c.Account != "" && c.Key != "" && c.Container != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if c.Poller.IntervalSeconds <= 0 {
		return fmt.Errorf("poller interval must be greater than 0")
	}

	return nil
}
