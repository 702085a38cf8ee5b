package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dominggo/ai-osp/internal/models"
)

const configFile = ".aiosp/config.json"

// Built-in defaults matching the reference deployment: target A answers on
// :8000 within single-digit seconds, target B on :8001 with a long budget.
const (
	DefaultTargetAURL = "http://localhost:8000"
	DefaultTargetBURL = "http://localhost:8001"
	DefaultAPIURL     = "http://localhost:5000"

	DefaultPlanTimeoutA  = 5 * time.Second
	DefaultPlanTimeoutB  = 10 * time.Minute
	DefaultProbeTimeout  = 3 * time.Second
	DefaultProbeInterval = 30 * time.Second
)

// Load reads the config from disk. A missing file yields a zero config, not
// an error; env overrides are applied on top either way.
func Load(baseDir string) (*models.Config, error) {
	configPath := filepath.Join(baseDir, configFile)

	cfg := &models.Config{}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(baseDir string, cfg *models.Config) error {
	configPath := filepath.Join(baseDir, configFile)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, configPath)
}

// applyEnv overlays AIOSP_* environment variables onto cfg.
func applyEnv(cfg *models.Config) {
	if v := os.Getenv("AIOSP_TARGET_A_URL"); v != "" {
		cfg.TargetAURL = v
	}
	if v := os.Getenv("AIOSP_TARGET_B_URL"); v != "" {
		cfg.TargetBURL = v
	}
	if v := os.Getenv("AIOSP_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("AIOSP_PROBE_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ProbeInterval = n
		}
	}
}

// TargetURL resolves the base URL for a target, falling back to defaults.
func TargetURL(cfg *models.Config, target models.Target) string {
	switch target {
	case models.TargetA:
		if cfg.TargetAURL != "" {
			return cfg.TargetAURL
		}
		return DefaultTargetAURL
	case models.TargetB:
		if cfg.TargetBURL != "" {
			return cfg.TargetBURL
		}
		return DefaultTargetBURL
	}
	return ""
}

// APIURL resolves the layer-server base URL.
func APIURL(cfg *models.Config) string {
	if cfg.APIURL != "" {
		return cfg.APIURL
	}
	return DefaultAPIURL
}

// PlanTimeout resolves the planning submission timeout for a target.
func PlanTimeout(cfg *models.Config, target models.Target) time.Duration {
	switch target {
	case models.TargetA:
		if cfg.PlanTimeoutA > 0 {
			return time.Duration(cfg.PlanTimeoutA) * time.Second
		}
		return DefaultPlanTimeoutA
	case models.TargetB:
		if cfg.PlanTimeoutB > 0 {
			return time.Duration(cfg.PlanTimeoutB) * time.Second
		}
		return DefaultPlanTimeoutB
	}
	return DefaultPlanTimeoutA
}

// ProbeTimeout resolves the health probe timeout (same for both targets).
func ProbeTimeout(cfg *models.Config) time.Duration {
	if cfg.ProbeTimeout > 0 {
		return time.Duration(cfg.ProbeTimeout) * time.Second
	}
	return DefaultProbeTimeout
}

// ProbeInterval resolves the health probe cycle interval.
func ProbeInterval(cfg *models.Config) time.Duration {
	if cfg.ProbeInterval > 0 {
		return time.Duration(cfg.ProbeInterval) * time.Second
	}
	return DefaultProbeInterval
}
