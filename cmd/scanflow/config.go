package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/helion-data/scanflow/internal/engine"
	"github.com/helion-data/scanflow/internal/scheduler"
	"github.com/helion-data/scanflow/pkg/schema"
)

// Config holds all scanflow configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath                  string `json:"db_path"`
	LogLevel                string `json:"log_level"`
	MaxConcurrentExecutions int    `json:"max_concurrent_executions"`
	MaxRetries              int    `json:"max_retries"`
	RetryDelay              string `json:"retry_delay"`
	Timeout                 string `json:"timeout"`
	CacheTimeout            string `json:"cache_timeout"`

	CPULimit     float64 `json:"cpu_limit"`
	MemoryLimit  float64 `json:"memory_limit"`
	NetworkLimit float64 `json:"network_limit"`
	DiskLimit    float64 `json:"disk_limit"`

	EnableCaching      bool `json:"enable_caching"`
	EnableAnalytics    bool `json:"enable_analytics"`
	EnableOptimization bool `json:"enable_optimization"`
	EnableMonitoring   bool `json:"enable_monitoring"`

	Jobs []JobConfig `json:"jobs,omitempty"`
}

// JobConfig is one recurring workflow entry from settings.json. A nil
// Enabled defaults to enabled.
type JobConfig struct {
	ID       string           `json:"id"`
	CronExpr string           `json:"cron_expr"`
	Workflow *schema.Workflow `json:"workflow"`
	Inputs   map[string]any   `json:"inputs,omitempty"`
	Enabled  *bool            `json:"enabled,omitempty"`
}

func defaultConfig() Config {
	base := engine.DefaultConfig()
	return Config{
		DBPath:                  filepath.Join(scanflowDir(), "scanflow.db"),
		LogLevel:                "info",
		MaxConcurrentExecutions: base.MaxConcurrentExecutions,
		MaxRetries:              base.MaxRetries,
		RetryDelay:              base.RetryDelay.String(),
		Timeout:                 base.Timeout.String(),
		CacheTimeout:            base.CacheTimeout.String(),
		CPULimit:                base.Limits.CPU,
		MemoryLimit:             base.Limits.Memory,
		NetworkLimit:            base.Limits.Network,
		DiskLimit:               base.Limits.Disk,
		EnableCaching:           base.EnableCaching,
		EnableMonitoring:        base.EnableMonitoring,
	}
}

func scanflowDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scanflow"
	}
	return filepath.Join(home, ".scanflow")
}

func settingsPath() string {
	return filepath.Join(scanflowDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("SCANFLOW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SCANFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCANFLOW_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentExecutions = n
		}
	}
	if v := os.Getenv("SCANFLOW_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("SCANFLOW_RETRY_DELAY"); v != "" {
		cfg.RetryDelay = v
	}
	if v := os.Getenv("SCANFLOW_TIMEOUT"); v != "" {
		cfg.Timeout = v
	}
	if v := os.Getenv("SCANFLOW_CACHE_TIMEOUT"); v != "" {
		cfg.CacheTimeout = v
	}
	if v := os.Getenv("SCANFLOW_ENABLE_CACHING"); v != "" {
		cfg.EnableCaching = v == "true" || v == "1"
	}
	if v := os.Getenv("SCANFLOW_ENABLE_ANALYTICS"); v != "" {
		cfg.EnableAnalytics = v == "true" || v == "1"
	}
	if v := os.Getenv("SCANFLOW_ENABLE_OPTIMIZATION"); v != "" {
		cfg.EnableOptimization = v == "true" || v == "1"
	}
	if v := os.Getenv("SCANFLOW_ENABLE_MONITORING"); v != "" {
		cfg.EnableMonitoring = v == "true" || v == "1"
	}

	return cfg
}

// scheduledJobs converts the settings entries into scheduler jobs.
func (c Config) scheduledJobs() []*scheduler.Job {
	jobs := make([]*scheduler.Job, 0, len(c.Jobs))
	for _, j := range c.Jobs {
		jobs = append(jobs, &scheduler.Job{
			ID:       j.ID,
			CronExpr: j.CronExpr,
			Workflow: j.Workflow,
			Inputs:   j.Inputs,
			Enabled:  j.Enabled == nil || *j.Enabled,
		})
	}
	return jobs
}

// engineConfig converts the file/env layer into the engine's typed config.
// Malformed durations fall back to the defaults.
func (c Config) engineConfig() engine.Config {
	out := engine.DefaultConfig()
	out.MaxConcurrentExecutions = c.MaxConcurrentExecutions
	out.MaxRetries = c.MaxRetries
	if d, err := time.ParseDuration(c.RetryDelay); err == nil {
		out.RetryDelay = d
	}
	if d, err := time.ParseDuration(c.Timeout); err == nil {
		out.Timeout = d
	}
	if d, err := time.ParseDuration(c.CacheTimeout); err == nil {
		out.CacheTimeout = d
	}
	out.Limits.CPU = c.CPULimit
	out.Limits.Memory = c.MemoryLimit
	out.Limits.Network = c.NetworkLimit
	out.Limits.Disk = c.DiskLimit
	out.EnableCaching = c.EnableCaching
	out.EnableAnalytics = c.EnableAnalytics
	out.EnableOptimization = c.EnableOptimization
	out.EnableMonitoring = c.EnableMonitoring
	return out
}
