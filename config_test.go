package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"depth": 10,
		"search_cap": 500,
		"confirm": false,
		"skip": ["node_modules", ".git"],
		"debug_log": "/tmp/duopane.log",
		"debug_log_max_bytes": 1048576
	}`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Depth)
	assert.Equal(t, 500, cfg.SearchCap)
	require.NotNil(t, cfg.Confirm)
	assert.False(t, *cfg.Confirm)
	assert.Equal(t, []string{"node_modules", ".git"}, cfg.Skip)
	assert.Equal(t, "/tmp/duopane.log", cfg.DebugLog)
	assert.Equal(t, int64(1048576), cfg.DebugLogMaxBytes)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestNormalizeConfigRejectsNegatives(t *testing.T) {
	_, err := normalizeConfig(Config{Depth: -1})
	assert.Error(t, err)
	_, err = normalizeConfig(Config{SearchCap: -1})
	assert.Error(t, err)
	_, err = normalizeConfig(Config{DebugLogMaxBytes: -1})
	assert.Error(t, err)
}

func TestSkipSet(t *testing.T) {
	assert.Nil(t, skipSet(nil))
	set := skipSet([]string{"a", "", "b", "a"})
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, set)
}
