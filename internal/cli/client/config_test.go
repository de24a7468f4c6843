package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overrideConfigPath(t *testing.T) string {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	oldGetConfigDir := getConfigDirFunc
	oldGetConfigPath := getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return tmpDir, nil }
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	t.Cleanup(func() {
		getConfigDirFunc = oldGetConfigDir
		getConfigPathFunc = oldGetConfigPath
	})

	return configPath
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "chronicle"))
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, "config.json"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	overrideConfigPath(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_ValidFile(t *testing.T) {
	configPath := overrideConfigPath(t)

	testConfig := GlobalConfig{
		UserID: 42,
		APIURL: "http://localhost:8080",
	}
	data, _ := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, int64(42), config.UserID)
	assert.Equal(t, "http://localhost:8080", config.APIURL)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := overrideConfigPath(t)
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	assert.Error(t, err)
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	configPath := overrideConfigPath(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{UserID: 7, APIURL: "http://example.com"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, int64(7), config.UserID)
	assert.Equal(t, "http://example.com", config.APIURL)
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestDeleteGlobalConfig(t *testing.T) {
	configPath := overrideConfigPath(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{UserID: 1}))
	require.NoError(t, DeleteGlobalConfig())

	_, err := os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing file is not an error
	require.NoError(t, DeleteGlobalConfig())
}
