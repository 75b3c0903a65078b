package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"catalog-backup/internal/backup"
	"catalog-backup/internal/logging"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable override,
	// e.g. CATALOG_BACKUP_BACKUP_ROOT_DIR.
	EnvPrefix = "CATALOG_BACKUP"
	// ConfigName is the file name searched for when no file is given.
	ConfigName = "catalog-backup"
)

// SetDefaults registers default values for every key. Registering each key
// also lets AutomaticEnv overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backup.root_dir", "")
	v.SetDefault("backup.shard_depth", 0)
	v.SetDefault("backup.workers", backup.DefaultWorkers)
	v.SetDefault("backup.audit_log_file", "")

	v.SetDefault("codec.compression.algorithm", strings.ToLower(string(backup.CompressionTypeNone)))
	v.SetDefault("codec.compression.level", 0)
	v.SetDefault("codec.encryption.enabled", false)
	v.SetDefault("codec.encryption.key_source", "")
	v.SetDefault("codec.encryption.key_path", "")
	v.SetDefault("codec.encryption.key_env_var", "")
	v.SetDefault("codec.encryption.passphrase", "")

	v.SetDefault("logging.level", string(logging.LogLevelNormal))
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.show_caller", false)
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("metrics.file", "")
}

// NewViper creates a viper instance with defaults, environment overrides and
// the configuration file. An explicit configFile must exist; otherwise the
// standard locations are searched and a missing file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, backup.NewConfigurationError(fmt.Sprintf("failed to read config file: %v", err), err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, backup.NewConfigurationError("failed to unmarshal configuration", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile is a convenience wrapper around NewViper and Load.
func LoadFile(configFile string) (*Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	return Load(v)
}

// SampleConfig is printed by the config command.
const SampleConfig = `# catalog-backup configuration

backup:
  root_dir: /var/lib/catalog/backup   # absolute path, required for every operation
  shard_depth: 2                      # two-character directory levels per ID
  workers: 1000                       # worker pool size, fixed at startup
  audit_log_file: ""                  # optional JSON audit trail of per-metacard outcomes

codec:
  compression:
    algorithm: none                   # none, gzip, lz4, zstd
    level: 0                          # 0 uses the algorithm default
  encryption:
    enabled: false
    key_source: env                   # env, file, passphrase
    key_env_var: CATALOG_BACKUP_KEY   # hex encoded 32 byte key
    key_path: ""                      # file holding a raw 32 byte key
    # passphrase is read from CATALOG_BACKUP_CODEC_ENCRYPTION_PASSPHRASE

logging:
  level: normal                       # quiet, normal, verbose, debug
  format: text                        # text, json
  file: ""                            # rotated with max_size_mb/max_backups/max_age_days
  show_caller: false

metrics:
  file: ""                            # write prometheus text format after each command
`
