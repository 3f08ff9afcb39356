// Package config loads and saves the editor's JSON configuration file.
// A missing file or missing keys fall back to defaults; a damaged file is
// reported, never silently replaced.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the config file name looked up next to the executable
// or in the directory passed to Load.
const DefaultFileName = "slidekit_config.json"

// Defaults restate the constants of the packages they configure
// (imaging.DefaultCacheCapacity, pool.DefaultWorkers, ocr.DefaultLanguage)
// so config stays buildable without the cgo OCR toolchain.
const (
	defaultCacheCapacity = 20
	defaultPoolWorkers   = 4
	defaultOCRLanguage   = "eng"
)

// Config holds all user-tunable settings.
type Config struct {
	// CacheCapacity is the maximum number of decoded images held in memory.
	CacheCapacity int `json:"cache_capacity"`

	// PoolWorkers is the worker count of the shared task pool.
	PoolWorkers int `json:"pool_workers"`

	// TempRoot is the directory for managed temp files. Empty means the
	// platform temp directory.
	TempRoot string `json:"temp_root"`

	// OCRLanguage is the Tesseract language passed to text extraction.
	OCRLanguage string `json:"ocr_language"`

	// AIAPIURL is the base URL of the image-replacement endpoint.
	AIAPIURL string `json:"ai_api_url"`

	// AIEnabled gates the AI replacement feature without dropping the URL.
	AIEnabled bool `json:"ai_enabled"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		CacheCapacity: defaultCacheCapacity,
		PoolWorkers:   defaultPoolWorkers,
		TempRoot:      "",
		OCRLanguage:   defaultOCRLanguage,
		AIAPIURL:      "http://127.0.0.1:8080",
		AIEnabled:     true,
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// keys absent from the file keep their default values. A file that exists
// but cannot be parsed is an error so a typo never silently resets settings.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

// Save writes cfg to path atomically: the file is written to a sibling temp
// file first and renamed into place, so a crash mid-write never leaves a
// truncated config behind.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config %s: %w", path, err)
	}
	return nil
}

// Validate reports settings that cannot be used at all. Out-of-range values
// that have a safe fallback are handled by normalized instead.
func (c Config) Validate() error {
	if c.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be at least 1, got %d", c.CacheCapacity)
	}
	if c.PoolWorkers < 1 {
		return fmt.Errorf("pool_workers must be at least 1, got %d", c.PoolWorkers)
	}
	if c.OCRLanguage == "" {
		return fmt.Errorf("ocr_language must not be empty")
	}
	if c.AIEnabled && c.AIAPIURL == "" {
		return fmt.Errorf("ai_api_url required when ai_enabled is true")
	}
	return nil
}

// normalized replaces unusable values loaded from disk with their defaults.
func (c Config) normalized() Config {
	def := Default()
	if c.CacheCapacity < 1 {
		c.CacheCapacity = def.CacheCapacity
	}
	if c.PoolWorkers < 1 {
		c.PoolWorkers = def.PoolWorkers
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = def.OCRLanguage
	}
	return c
}
