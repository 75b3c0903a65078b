package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"catalog-backup/internal/backup"
	"catalog-backup/internal/logging"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete catalog-backup configuration
type Config struct {
	Backup  BackupConfig  `mapstructure:"backup" yaml:"backup"`
	Codec   CodecConfig   `mapstructure:"codec" yaml:"codec"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// BackupConfig locates the backup tree and sizes the worker pool
type BackupConfig struct {
	RootDir      string `mapstructure:"root_dir" yaml:"root_dir"`
	ShardDepth   int    `mapstructure:"shard_depth" yaml:"shard_depth" validate:"gte=0,lte=16"`
	Workers      int    `mapstructure:"workers" yaml:"workers" validate:"gte=1"`
	AuditLogFile string `mapstructure:"audit_log_file" yaml:"audit_log_file"`
}

// CodecConfig controls how snapshots are encoded on disk
type CodecConfig struct {
	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Encryption  EncryptionConfig  `mapstructure:"encryption" yaml:"encryption"`
}

// CompressionConfig defines compression settings
type CompressionConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int    `mapstructure:"level" yaml:"level" validate:"gte=0,lte=22"`
}

// EncryptionConfig defines encryption settings
type EncryptionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	KeySource  string `mapstructure:"key_source" yaml:"key_source" validate:"omitempty,oneof=env file passphrase"`
	KeyPath    string `mapstructure:"key_path" yaml:"key_path"`
	KeyEnvVar  string `mapstructure:"key_env_var" yaml:"key_env_var"`
	Passphrase string `mapstructure:"passphrase" yaml:"-"`
}

// LoggingConfig defines log output
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=quiet normal verbose debug"`
	Format     string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
	File       string `mapstructure:"file" yaml:"file"`
	ShowCaller bool   `mapstructure:"show_caller" yaml:"show_caller"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// MetricsConfig defines where batch metrics are exported
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules. A blank root
// directory passes; the coordinator rejects it per operation.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errs = append(errs, fieldMessage(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if root := strings.TrimSpace(c.Backup.RootDir); root != "" && !filepath.IsAbs(root) {
		errs = append(errs, fmt.Sprintf("backup.root_dir must be an absolute path, got %q", c.Backup.RootDir))
	}
	if _, err := backup.ParseCompressionType(c.Codec.Compression.Algorithm); err != nil {
		errs = append(errs, fmt.Sprintf("codec.compression.algorithm: %v", err))
	}
	if c.Codec.Encryption.Enabled {
		encryption := c.encryption()
		if err := encryption.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("codec.encryption: %v", err))
		}
	}

	if len(errs) > 0 {
		return backup.NewConfigurationError("invalid configuration: "+strings.Join(errs, "; "), nil)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s (value %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// BackupOptions converts the configuration into coordinator settings
func (c *Config) BackupOptions() (backup.Config, error) {
	compression, err := backup.ParseCompressionType(c.Codec.Compression.Algorithm)
	if err != nil {
		return backup.Config{}, err
	}

	return backup.Config{
		RootDir:    strings.TrimSpace(c.Backup.RootDir),
		ShardDepth: c.Backup.ShardDepth,
		Workers:    c.Backup.Workers,
		Codec: backup.CodecConfig{
			Compression:      compression,
			CompressionLevel: c.Codec.Compression.Level,
			Encryption:       c.encryption(),
		},
	}, nil
}

func (c *Config) encryption() backup.EncryptionConfig {
	return backup.EncryptionConfig{
		Enabled:    c.Codec.Encryption.Enabled,
		KeySource:  c.Codec.Encryption.KeySource,
		KeyPath:    c.Codec.Encryption.KeyPath,
		KeyEnvVar:  c.Codec.Encryption.KeyEnvVar,
		Passphrase: c.Codec.Encryption.Passphrase,
	}
}

// LoggerOptions converts the configuration into logger settings. verbose and
// quiet come from the command line and override the configured level.
func (c *Config) LoggerOptions(verbose, quiet bool) (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	switch {
	case quiet:
		level = logging.LogLevelQuiet
	case verbose && level != logging.LogLevelDebug:
		level = logging.LogLevelVerbose
	}

	return logging.Config{
		Level:      level,
		Format:     c.Logging.Format,
		ShowCaller: c.Logging.ShowCaller,
		LogFile:    c.Logging.File,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  c.Logging.MaxSizeMB,
			MaxBackups: c.Logging.MaxBackups,
			MaxAgeDays: c.Logging.MaxAgeDays,
			Compress:   c.Logging.Compress,
		},
	}, nil
}
