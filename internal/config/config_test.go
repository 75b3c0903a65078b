package config

import (
	"os"
	"path/filepath"
	"testing"

	"catalog-backup/internal/backup"
	"catalog-backup/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog-backup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Backup.RootDir)
	assert.Equal(t, 0, cfg.Backup.ShardDepth)
	assert.Equal(t, backup.DefaultWorkers, cfg.Backup.Workers)
	assert.Equal(t, "none", cfg.Codec.Compression.Algorithm)
	assert.Equal(t, "normal", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFile_FromYAML(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, `
backup:
  root_dir: `+root+`
  shard_depth: 2
  workers: 16
codec:
  compression:
    algorithm: zstd
    level: 9
logging:
  level: debug
  format: json
metrics:
  file: /tmp/catalog_backup.prom
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Backup.RootDir)
	assert.Equal(t, 2, cfg.Backup.ShardDepth)
	assert.Equal(t, 16, cfg.Backup.Workers)
	assert.Equal(t, "zstd", cfg.Codec.Compression.Algorithm)
	assert.Equal(t, 9, cfg.Codec.Compression.Level)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/catalog_backup.prom", cfg.Metrics.File)

	opts, err := cfg.BackupOptions()
	require.NoError(t, err)
	assert.Equal(t, backup.Config{
		RootDir:    root,
		ShardDepth: 2,
		Workers:    16,
		Codec: backup.CodecConfig{
			Compression:      backup.CompressionTypeZstd,
			CompressionLevel: 9,
		},
	}, opts)
}

func TestLoadFile_EnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, "backup:\n  workers: 8\n")

	t.Setenv("CATALOG_BACKUP_BACKUP_ROOT_DIR", root)
	t.Setenv("CATALOG_BACKUP_BACKUP_WORKERS", "32")
	t.Setenv("CATALOG_BACKUP_CODEC_ENCRYPTION_ENABLED", "true")
	t.Setenv("CATALOG_BACKUP_CODEC_ENCRYPTION_KEY_SOURCE", "passphrase")
	t.Setenv("CATALOG_BACKUP_CODEC_ENCRYPTION_PASSPHRASE", "s3cret")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Backup.RootDir)
	assert.Equal(t, 32, cfg.Backup.Workers)
	assert.True(t, cfg.Codec.Encryption.Enabled)
	assert.Equal(t, "s3cret", cfg.Codec.Encryption.Passphrase)
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, backup.IsConfigurationError(err))
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Backup:  BackupConfig{RootDir: "/var/backup", ShardDepth: 2, Workers: 10},
			Codec:   CodecConfig{Compression: CompressionConfig{Algorithm: "gzip", Level: 6}},
			Logging: LoggingConfig{Level: "normal", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"blank root allowed", func(c *Config) { c.Backup.RootDir = "" }, ""},
		{"relative root", func(c *Config) { c.Backup.RootDir = "backups" }, "absolute path"},
		{"negative depth", func(c *Config) { c.Backup.ShardDepth = -1 }, "backup.sharddepth"},
		{"zero workers", func(c *Config) { c.Backup.Workers = 0 }, "backup.workers"},
		{"unknown compression", func(c *Config) { c.Codec.Compression.Algorithm = "brotli" }, "codec.compression.algorithm"},
		{"compression level", func(c *Config) { c.Codec.Compression.Level = 40 }, "level"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"unknown key source", func(c *Config) { c.Codec.Encryption.KeySource = "vault" }, "keysource"},
		{"encryption without key", func(c *Config) {
			c.Codec.Encryption = EncryptionConfig{Enabled: true, KeySource: "file"}
		}, "key_path"},
		{"encryption with env key", func(c *Config) {
			c.Codec.Encryption = EncryptionConfig{Enabled: true, KeySource: "env", KeyEnvVar: "KEY"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, backup.IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_LoggerOptions(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{
		Level:      "normal",
		Format:     "json",
		File:       "/var/log/catalog-backup.log",
		MaxSizeMB:  10,
		MaxBackups: 2,
	}}

	opts, err := cfg.LoggerOptions(false, false)
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelNormal, opts.Level)
	assert.Equal(t, "json", opts.Format)
	assert.Equal(t, "/var/log/catalog-backup.log", opts.LogFile)
	assert.Equal(t, 10, opts.Rotation.MaxSizeMB)

	opts, err = cfg.LoggerOptions(true, false)
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelVerbose, opts.Level)

	opts, err = cfg.LoggerOptions(false, true)
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelQuiet, opts.Level)

	cfg.Logging.Level = "debug"
	opts, err = cfg.LoggerOptions(true, false)
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelDebug, opts.Level)
}

func TestSampleConfig_Loads(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(SampleConfig), &cfg))
	assert.NoError(t, cfg.Validate())

	path := writeConfig(t, SampleConfig)
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/catalog/backup", loaded.Backup.RootDir)
	assert.Equal(t, 2, loaded.Backup.ShardDepth)
}
