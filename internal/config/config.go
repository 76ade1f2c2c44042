package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultHost       = "localhost"
	DefaultPort       = 5432
	DefaultUser       = "odoo"
	DefaultOutputPath = "./backups"
	DefaultSchedule   = "0 2 * * *"
)

// Config holds one run's settings. Connection and path fields stay empty
// when nothing resolved them, so the app knows which ones still need a
// prompt (interactive) or a default (non-interactive).
type Config struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	FilestorePath  string `mapstructure:"filestore-path"`
	OutputPath     string `mapstructure:"output-path"`
	SetupCron      bool   `mapstructure:"setup-cron"`
	NonInteractive bool   `mapstructure:"non-interactive"`
	CronSchedule   string `mapstructure:"cron-schedule"`
	LogLevel       string `mapstructure:"log-level"`
	LogFile        string `mapstructure:"log-file"`

	Uploads []UploadTarget `mapstructure:"uploads"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

// Resolve merges settings in precedence order: flags, then OBX_* environment
// variables, then an optional YAML config file. Keys match flag names, so
// --filestore-path, OBX_FILESTORE_PATH and "filestore-path:" all feed the
// same field.
func Resolve(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	v.SetEnvPrefix("OBX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.SetConfigName("obx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "obx"))
		}
		v.AddConfigPath("/etc/obx")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port != 0 && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// ApplyDefaults fills the connection and output fields that prompting would
// otherwise cover. Password stays empty: peer or trust auth is assumed.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.OutputPath == "" {
		c.OutputPath = DefaultOutputPath
	}
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Uploads {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}

// ReplayArgs reproduces this run's resolved settings as command line
// arguments for a crontab entry. Values that may contain spaces are single
// quoted for the shell.
func (c *Config) ReplayArgs() []string {
	args := []string{
		"--host", c.Host,
		"--port", strconv.Itoa(c.Port),
		"--user", c.User,
		"--database", c.Database,
	}
	if c.FilestorePath != "" {
		args = append(args, "--filestore-path", shellQuote(c.FilestorePath))
	}
	args = append(args, "--output-path", shellQuote(c.OutputPath), "--non-interactive")
	if c.Password != "" {
		args = append(args, "--password", shellQuote(c.Password))
	}
	return args
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// DefaultFilestorePath is the conventional Linux filestore location, used
// when detection finds nothing and the user supplies no path.
func DefaultFilestorePath(database string) string {
	return filepath.Join("/opt/odoo/data/filestore", database)
}
