package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all server configuration, parsed from CHOREBANK_* environment
// variables.
type Config struct {
	Port      string `env:"CHOREBANK_PORT" envDefault:"8080"`
	DBPath    string `env:"CHOREBANK_DB_PATH" envDefault:"chorebank.db"`
	LogLevel  string `env:"CHOREBANK_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CHOREBANK_LOG_FORMAT" envDefault:"text"`

	// Hour of day (0-23, server local time) at which the daily generation
	// cycle runs.
	GenerationHour int `env:"CHOREBANK_GENERATION_HOUR" envDefault:"4"`

	Backup BackupConfig
}

// BackupConfig holds encrypted offsite backup settings. Backups are disabled
// unless bucket, access key, and secret key are all set.
type BackupConfig struct {
	S3Endpoint string `env:"CHOREBANK_BACKUP_S3_ENDPOINT"`
	S3Bucket   string `env:"CHOREBANK_BACKUP_S3_BUCKET"`
	S3Region   string `env:"CHOREBANK_BACKUP_S3_REGION" envDefault:"auto"`
	AccessKey  string `env:"CHOREBANK_BACKUP_ACCESS_KEY"`
	SecretKey  string `env:"CHOREBANK_BACKUP_SECRET_KEY"`
	Passphrase string `env:"CHOREBANK_BACKUP_PASSPHRASE"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.GenerationHour < 0 || cfg.GenerationHour > 23 {
		return Config{}, fmt.Errorf("generation hour %d out of range", cfg.GenerationHour)
	}
	return cfg, nil
}
