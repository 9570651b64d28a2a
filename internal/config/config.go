// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package config loads restorer and sealer options from a YAML file and
// BACKUPSEAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/carabiner-dev/backupseal/options"
)

// EnvPrefix is prepended to every environment override, for example
// BACKUPSEAL_RESTORE_MAX_ITERATIONS
const EnvPrefix = "BACKUPSEAL"

// Config holds both option sets
type Config struct {
	Restore options.Restorer `mapstructure:"restore"`
	Backup  options.Sealer   `mapstructure:"backup"`
}

// Load reads the configuration. When path is empty the usual locations are
// searched and a missing file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("backupseal")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.backupseal")
		v.AddConfigPath("/etc/backupseal")
	}

	setDefaults(v)

	// Allow environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Restore.Validate(); err != nil {
		return nil, fmt.Errorf("invalid restore configuration: %w", err)
	}
	if err := cfg.Backup.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backup configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	r := options.DefaultRestorer
	v.SetDefault("restore.debug", r.Debug)
	v.SetDefault("restore.allow_empty_password", r.AllowEmptyPassword)
	v.SetDefault("restore.envvar_password", r.EnvVarPassword)
	v.SetDefault("restore.envvar_debug", r.EnvVarDebug)
	v.SetDefault("restore.min_iterations", r.MinIterations)
	v.SetDefault("restore.max_iterations", r.MaxIterations)
	v.SetDefault("restore.max_container_size", r.MaxContainerSize)

	s := options.DefaultSealer
	v.SetDefault("backup.debug", s.Debug)
	v.SetDefault("backup.allow_empty_password", s.AllowEmptyPassword)
	v.SetDefault("backup.envvar_password", s.EnvVarPassword)
	v.SetDefault("backup.envvar_debug", s.EnvVarDebug)
	v.SetDefault("backup.min_backup_iterations", s.MinBackupIterations)
	v.SetDefault("backup.max_backup_iterations", s.MaxBackupIterations)
}
