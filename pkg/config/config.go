// pkg/config/config.go

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix scopes environment overrides, e.g. KYKLOS_SOCKET_PATH.
	EnvPrefix = "KYKLOS"

	DefaultAgentID        = "kyklos"
	DefaultPasswordLength = 20
	DefaultPause          = time.Second
)

// Settings holds everything the commands need to reach the vault daemon
// and the on-disk state directories.
type Settings struct {
	SocketPath     string        `mapstructure:"socket_path" validate:"required"`
	SitesPath      string        `mapstructure:"sites_path" validate:"required"`
	HistoryDir     string        `mapstructure:"history_dir" validate:"required"`
	BackupDir      string        `mapstructure:"backup_dir" validate:"required"`
	AgentID        string        `mapstructure:"agent_id" validate:"required"`
	PasswordLength int           `mapstructure:"password_length" validate:"min=4,max=128"`
	Pause          time.Duration `mapstructure:"pause" validate:"min=0"`
	Headless       bool          `mapstructure:"headless"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults returns the settings kyklos runs with when no config file or
// environment overrides exist. The daemon socket lives under pandora's
// data directory; kyklos keeps its own state alongside it.
func Defaults() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	share := filepath.Join(home, ".local", "share")
	return Settings{
		SocketPath:     filepath.Join(share, "pandora", "vaultd.sock"),
		SitesPath:      filepath.Join(home, ".config", "kyklos", "sites.yaml"),
		HistoryDir:     filepath.Join(share, "kyklos", "history"),
		BackupDir:      filepath.Join(share, "kyklos", "backups"),
		AgentID:        DefaultAgentID,
		PasswordLength: DefaultPasswordLength,
		Pause:          DefaultPause,
		Headless:       true,
	}
}

// Load reads settings in precedence order: defaults, then the optional
// config file (~/.config/kyklos/config.yaml unless overridden), then
// KYKLOS_* environment variables.
func Load(configFile string) (Settings, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("socket_path", defaults.SocketPath)
	v.SetDefault("sites_path", defaults.SitesPath)
	v.SetDefault("history_dir", defaults.HistoryDir)
	v.SetDefault("backup_dir", defaults.BackupDir)
	v.SetDefault("agent_id", defaults.AgentID)
	v.SetDefault("password_length", defaults.PasswordLength)
	v.SetDefault("pause", defaults.Pause)
	v.SetDefault("headless", defaults.Headless)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, cerr.Wrapf(err, "read config %s", configFile)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "kyklos"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !cerr.As(err, &notFound) {
				return Settings{}, cerr.Wrap(err, "read config")
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, cerr.Wrap(err, "decode config")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return cerr.Wrap(err, "invalid configuration")
	}
	return nil
}
