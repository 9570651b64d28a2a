// SPDX-FileCopyrightText: Copyright 2025 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package options

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultMinIterations is the weakest PBKDF2 iteration count accepted on restore
	DefaultMinIterations uint32 = 10_000
	// DefaultMaxIterations caps the work a backup file can force on restore
	DefaultMaxIterations uint32 = 1_000_000
	// DefaultMinBackupIterations and DefaultMaxBackupIterations are the range
	// new backups pick their iteration count from
	DefaultMinBackupIterations uint32 = 140_000
	DefaultMaxBackupIterations uint32 = 160_000
	// MaxIterationCount is the largest iteration count any option may carry,
	// PBKDF2 takes the count as an int
	MaxIterationCount uint32 = math.MaxInt32
	// DefaultMaxContainerSize is the largest backup buffer accepted
	DefaultMaxContainerSize int64 = 64 * 1024 * 1024
)

// Common options for restorer and sealer option sets
type Common struct {
	Debug              bool   `json:"debug" mapstructure:"debug"`
	AllowEmptyPassword bool   `json:"allow_empty_password" mapstructure:"allow_empty_password"`
	EnvVarPassword     string `json:"envvar_password" mapstructure:"envvar_password"`
	EnvVarDebug        string `json:"envvar_debug" mapstructure:"envvar_debug"`
}

// Restorer options set
type Restorer struct {
	Common           `mapstructure:",squash"`
	MinIterations    uint32 `json:"min_iterations" mapstructure:"min_iterations"`
	MaxIterations    uint32 `json:"max_iterations" mapstructure:"max_iterations"`
	MaxContainerSize int64  `json:"max_container_size" mapstructure:"max_container_size"` // bytes, 0 = no limit
}

// Sealer options set
type Sealer struct {
	Common              `mapstructure:",squash"`
	MinBackupIterations uint32 `json:"min_backup_iterations" mapstructure:"min_backup_iterations"`
	MaxBackupIterations uint32 `json:"max_backup_iterations" mapstructure:"max_backup_iterations"`
}

// defaultCommon default common options shared by the default option sets
var defaultCommon = Common{
	Debug:              false,
	AllowEmptyPassword: false,
	EnvVarPassword:     "BACKUPSEAL_PASSWORD",
	EnvVarDebug:        "BACKUPSEAL_DEBUG",
}

// DefaultRestorer default restorer options
var DefaultRestorer = &Restorer{
	Common:           defaultCommon,
	MinIterations:    DefaultMinIterations,
	MaxIterations:    DefaultMaxIterations,
	MaxContainerSize: DefaultMaxContainerSize,
}

// DefaultSealer default sealer options
var DefaultSealer = &Sealer{
	Common:              defaultCommon,
	MinBackupIterations: DefaultMinBackupIterations,
	MaxBackupIterations: DefaultMaxBackupIterations,
}

// NewRestorer returns a copy of the default restorer options with fns applied
func NewRestorer(fns ...RestorerOptFn) (*Restorer, error) {
	opts := *DefaultRestorer
	for _, fn := range fns {
		if err := fn(&opts); err != nil {
			return nil, err
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// NewSealer returns a copy of the default sealer options with fns applied
func NewSealer(fns ...SealerOptFn) (*Sealer, error) {
	opts := *DefaultSealer
	for _, fn := range fns {
		if err := fn(&opts); err != nil {
			return nil, err
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Validate checks the restorer options are coherent
func (r *Restorer) Validate() error {
	var errs []error
	if r.MinIterations == 0 {
		errs = append(errs, errors.New("minimum iterations must be positive"))
	}
	if r.MaxIterations < r.MinIterations {
		errs = append(errs, fmt.Errorf("maximum iterations (%d) below minimum (%d)", r.MaxIterations, r.MinIterations))
	}
	if r.MaxIterations > MaxIterationCount {
		errs = append(errs, fmt.Errorf("maximum iterations (%d) above %d", r.MaxIterations, MaxIterationCount))
	}
	if r.MaxContainerSize < 0 {
		errs = append(errs, fmt.Errorf("invalid maximum container size %d", r.MaxContainerSize))
	}
	return errors.Join(errs...)
}

// Validate checks the sealer options are coherent
func (s *Sealer) Validate() error {
	var errs []error
	if s.MinBackupIterations == 0 {
		errs = append(errs, errors.New("minimum backup iterations must be positive"))
	}
	if s.MaxBackupIterations < s.MinBackupIterations {
		errs = append(errs, fmt.Errorf("maximum backup iterations (%d) below minimum (%d)",
			s.MaxBackupIterations, s.MinBackupIterations))
	}
	if s.MaxBackupIterations > MaxIterationCount {
		errs = append(errs, fmt.Errorf("maximum backup iterations (%d) above %d", s.MaxBackupIterations, MaxIterationCount))
	}
	return errors.Join(errs...)
}

// RestorerOptFn mutates a restorer options set
type RestorerOptFn func(*Restorer) error

// SealerOptFn mutates a sealer options set
type SealerOptFn func(*Sealer) error

// WithIterationBounds sets the accepted restore iteration range
func WithIterationBounds(minIter, maxIter uint32) RestorerOptFn {
	return func(r *Restorer) error {
		if minIter == 0 || maxIter < minIter {
			return fmt.Errorf("invalid iteration bounds [%d, %d]", minIter, maxIter)
		}
		r.MinIterations = minIter
		r.MaxIterations = maxIter
		return nil
	}
}

// WithMaxContainerSize caps the size of restored buffers
func WithMaxContainerSize(size int64) RestorerOptFn {
	return func(r *Restorer) error {
		if size < 0 {
			return fmt.Errorf("invalid maximum container size %d", size)
		}
		r.MaxContainerSize = size
		return nil
	}
}

// WithAllowEmptyPassword toggles acceptance of empty passwords on restore
func WithAllowEmptyPassword(allow bool) RestorerOptFn {
	return func(r *Restorer) error {
		r.AllowEmptyPassword = allow
		return nil
	}
}

// WithDebug toggles debug logging on restore
func WithDebug(debug bool) RestorerOptFn {
	return func(r *Restorer) error {
		r.Debug = debug
		return nil
	}
}

// WithBackupIterations sets the range new backups pick iterations from
func WithBackupIterations(minIter, maxIter uint32) SealerOptFn {
	return func(s *Sealer) error {
		if minIter == 0 || maxIter < minIter {
			return fmt.Errorf("invalid backup iteration range [%d, %d]", minIter, maxIter)
		}
		s.MinBackupIterations = minIter
		s.MaxBackupIterations = maxIter
		return nil
	}
}

// WithSealerAllowEmptyPassword toggles acceptance of empty passwords on backup
func WithSealerAllowEmptyPassword(allow bool) SealerOptFn {
	return func(s *Sealer) error {
		s.AllowEmptyPassword = allow
		return nil
	}
}
