package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	// Pinned to the constants the rest of the system defaults to.
	assert.Equal(t, 20, cfg.CacheCapacity)
	assert.Equal(t, 4, cfg.PoolWorkers)
	assert.Equal(t, "eng", cfg.OCRLanguage)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"pool_workers": 8}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.PoolWorkers)
	assert.Equal(t, Default().CacheCapacity, cfg.CacheCapacity)
	assert.Equal(t, Default().OCRLanguage, cfg.OCRLanguage)
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{pool_workers:`), 0o644))

	cfg, err := Load(path)
	require.Error(t, err)
	// Caller still gets something usable to fall back on.
	assert.Equal(t, Default(), cfg)
}

func TestLoad_NormalizesOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"cache_capacity": 0, "pool_workers": -3, "ocr_language": ""}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().CacheCapacity, cfg.CacheCapacity)
	assert.Equal(t, Default().PoolWorkers, cfg.PoolWorkers)
	assert.Equal(t, Default().OCRLanguage, cfg.OCRLanguage)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)

	want := Default()
	want.CacheCapacity = 50
	want.OCRLanguage = "deu"
	want.AIAPIURL = "http://ai.internal:9000"

	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSave_RejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)

	cfg := Default()
	cfg.PoolWorkers = 0
	assert.Error(t, Save(path, cfg))

	cfg = Default()
	cfg.AIEnabled = true
	cfg.AIAPIURL = ""
	assert.Error(t, Save(path, cfg))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	cfg := Default()
	cfg.CacheCapacity = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.OCRLanguage = ""
	assert.Error(t, cfg.Validate())
}
