// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"

	"github.com/jeranaias/bqprobe/internal/probe"
)

// EnvPrefix prefixes every environment override (BQPROBE_PROJECT_ID, ...).
const EnvPrefix = "BQPROBE"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete bqprobe configuration.
type Config struct {
	// ProjectID is the GCP project that owns the dataset.
	ProjectID string `toml:"project_id" json:"project_id" split_words:"true"`
	// DatasetID is the dataset under test.
	DatasetID string `toml:"dataset_id" json:"dataset_id" split_words:"true"`
	// TableID is the well-known table read, delete and upload checks target.
	TableID string `toml:"table_id" json:"table_id" split_words:"true"`
	// Location is the job location (US, EU, ...). Empty lets the service pick.
	Location string `toml:"location" json:"location" split_words:"true"`
	// CredentialsFile overrides Application Default Credentials lookup.
	CredentialsFile string `toml:"credentials_file" json:"credentials_file" split_words:"true"`

	Probe    ProbeConfig    `toml:"probe" json:"probe" split_words:"true"`
	Pipeline PipelineConfig `toml:"pipeline" json:"pipeline" split_words:"true"`
	Log      LogConfig      `toml:"log" json:"log" split_words:"true"`
}

// ProbeConfig contains access probe settings.
type ProbeConfig struct {
	// TempTablePrefix prefixes the per-run transient table.
	TempTablePrefix string `toml:"temp_table_prefix" json:"temp_table_prefix" split_words:"true"`
	// Timeout bounds each individual probe.
	Timeout time.Duration `toml:"timeout" json:"timeout" split_words:"true"`
	// CleanupTimeout bounds the transient table drop.
	CleanupTimeout time.Duration `toml:"cleanup_timeout" json:"cleanup_timeout" split_words:"true"`
}

// PipelineConfig contains pipeline check settings.
type PipelineConfig struct {
	// ProcessedTableID receives the derived feature rows.
	ProcessedTableID string `toml:"processed_table_id" json:"processed_table_id" split_words:"true"`
	// LookbackDays limits which transcripts are read for processing.
	LookbackDays int `toml:"lookback_days" json:"lookback_days" split_words:"true"`
	// MonitorDays is the window of the processing history query.
	MonitorDays int `toml:"monitor_days" json:"monitor_days" split_words:"true"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level" split_words:"true"`
	// Format is console or json.
	Format string `toml:"format" json:"format" split_words:"true"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		DatasetID: "test_data",
		TableID:   probe.DefaultProbeTable,

		Probe: ProbeConfig{
			TempTablePrefix: probe.DefaultTempTablePrefix,
			Timeout:         probe.DefaultProbeTimeout,
			CleanupTimeout:  probe.DefaultCleanupTimeout,
		},

		Pipeline: PipelineConfig{
			ProcessedTableID: "transcripts_processed",
			LookbackDays:     30,
			MonitorDays:      7,
		},

		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// DatasetRef returns the configured dataset reference.
func (c *Config) DatasetRef() probe.DatasetRef {
	return probe.DatasetRef{ProjectID: c.ProjectID, DatasetID: c.DatasetID}
}

// TableRef returns the configured probe table reference.
func (c *Config) TableRef() probe.TableRef {
	return c.DatasetRef().Table(c.TableID)
}

// =============================================================================
// LOADING
// =============================================================================

// Loader reads configuration files from a filesystem.
type Loader struct {
	Fs afero.Fs
	// HomeDir locates the user config directory.
	HomeDir func() (string, error)
}

// NewLoader returns a Loader over the real filesystem.
func NewLoader() *Loader {
	return &Loader{Fs: afero.NewOsFs(), HomeDir: os.UserHomeDir}
}

// SearchPaths returns the files Load looks at when no path is given.
func (l *Loader) SearchPaths() []string {
	paths := []string{"bqprobe.toml"}
	if l.HomeDir != nil {
		if home, err := l.HomeDir(); err == nil && home != "" {
			dir := filepath.Join(home, ".bqprobe")
			paths = append(paths, filepath.Join(dir, "config.toml"), filepath.Join(dir, "config.json"))
		}
	}
	return paths
}

// Load builds the effective configuration: defaults, then the config file,
// then environment overrides. An explicit path must exist; the search paths
// are optional. Validate is left to the caller so command-line flags can be
// applied first.
func (l *Loader) Load(path string) (*Config, string, error) {
	cfg := Default()

	source := ""
	if path != "" {
		if err := l.LoadFile(cfg, path); err != nil {
			return nil, "", err
		}
		source = path
	} else {
		for _, candidate := range l.SearchPaths() {
			ok, err := afero.Exists(l.Fs, candidate)
			if err != nil || !ok {
				continue
			}
			if err := l.LoadFile(cfg, candidate); err != nil {
				return nil, "", err
			}
			source = candidate
			break
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, "", err
	}
	return cfg, source, nil
}

// LoadFile decodes one TOML or JSON file over cfg.
func (l *Loader) LoadFile(cfg *Config, path string) error {
	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
		return nil
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnvOverrides overlays BQPROBE_* environment variables onto c.
//
// Environment variables:
//   - BQPROBE_PROJECT_ID (falls back to GOOGLE_CLOUD_PROJECT)
//   - BQPROBE_DATASET_ID, BQPROBE_TABLE_ID, BQPROBE_LOCATION
//   - BQPROBE_CREDENTIALS_FILE
//   - BQPROBE_PROBE_TIMEOUT, BQPROBE_PROBE_CLEANUP_TIMEOUT, BQPROBE_PROBE_TEMP_TABLE_PREFIX
//   - BQPROBE_PIPELINE_PROCESSED_TABLE_ID, BQPROBE_PIPELINE_LOOKBACK_DAYS, BQPROBE_PIPELINE_MONITOR_DAYS
//   - BQPROBE_LOG_LEVEL, BQPROBE_LOG_FORMAT
func (c *Config) ApplyEnvOverrides() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.ProjectID == "" {
		errs = append(errs, ValidationError{
			Field:   "project_id",
			Message: "required (use --project-id, BQPROBE_PROJECT_ID or GOOGLE_CLOUD_PROJECT)",
		})
	} else if err := c.DatasetRef().Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "project_id/dataset_id", Message: err.Error()})
	}

	tables := map[string]string{
		"table_id":                    c.TableID,
		"pipeline.processed_table_id": c.Pipeline.ProcessedTableID,
		"probe.temp_table_prefix":     c.Probe.TempTablePrefix,
	}
	for _, field := range []string{"table_id", "pipeline.processed_table_id", "probe.temp_table_prefix"} {
		ref := probe.TableRef{ProjectID: "placeholder-project", DatasetID: "placeholder", TableID: tables[field]}
		if err := ref.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid table name %q", tables[field])})
		}
	}

	if c.Probe.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "probe.timeout", Message: "must be positive"})
	}
	if c.Probe.CleanupTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "probe.cleanup_timeout", Message: "must be positive"})
	}
	if c.Pipeline.LookbackDays <= 0 {
		errs = append(errs, ValidationError{Field: "pipeline.lookback_days", Message: "must be positive"})
	}
	if c.Pipeline.MonitorDays <= 0 {
		errs = append(errs, ValidationError{Field: "pipeline.monitor_days", Message: "must be positive"})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("# failed to encode config: %v\n", err)
	}
	return b.String()
}
