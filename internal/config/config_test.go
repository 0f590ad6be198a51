package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the loader reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvDiscordToken, EnvDiscordChannel, EnvGitHubToken, EnvRepository, EnvUserMapping} {
		t.Setenv(name, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prthread.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "https://discord.com/api/v10", cfg.Discord.APIURL)
	assert.Equal(t, 5.0, cfg.Discord.RequestsPerSecond)
	assert.Equal(t, 3, cfg.Discord.MaxRetries)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[discord]
token = "file-token"
channel_id = "111"

[github]
token = "gh-file"
repository = "acme/widgets"

[users]
alice = "1001"
`)
	t.Setenv("PRTHREAD_DISCORD_CHANNEL_ID", "222")
	t.Setenv(EnvGitHubToken, "gh-actions")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "222", cfg.Discord.ChannelID)
	assert.Equal(t, "gh-actions", cfg.GitHub.Token)
	assert.Equal(t, "acme/widgets", cfg.GitHub.Repository)
	assert.Equal(t, map[string]string{"alice": "1001"}, cfg.Users)
	require.NoError(t, Validate(cfg))
}

func TestUserMapperMergesJSONOverTable(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvUserMapping, `{"alice": "9001", "bob": "1002"}`)
	path := writeConfig(t, "[users]\nalice = \"1001\"\ncarol = \"1003\"\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	users, err := cfg.UserMapper()
	require.NoError(t, err)

	for login, want := range map[string]string{"alice": "9001", "bob": "1002", "carol": "1003"} {
		got, ok := users.ChatID(login)
		assert.True(t, ok, login)
		assert.Equal(t, want, got, login)
	}
}

func TestValidateNamesEveryMissingField(t *testing.T) {
	err := Validate(&Config{})

	require.ErrorIs(t, err, ErrMissingConfig)
	for _, field := range []string{"discord.token", "discord.channel_id", "github.token", "github.repository"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestValidateRejectsMalformedValues(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Discord.Token = "t"
		cfg.Discord.ChannelID = "123"
		cfg.GitHub.Token = "g"
		cfg.GitHub.Repository = "acme/widgets"
		return cfg
	}
	require.NoError(t, Validate(valid()))

	cfg := valid()
	cfg.Discord.ChannelID = "general"
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.GitHub.Repository = "widgets"
	assert.Error(t, Validate(cfg))

	cfg = valid()
	cfg.UserMappingJSON = "{not json"
	assert.Error(t, Validate(cfg))
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prthread.toml")

	require.NoError(t, InitConfig(path))
	assert.Error(t, InitConfig(path), "refuses to overwrite")

	clearEnv(t)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", cfg.GitHub.Repository)
	assert.Equal(t, "111111111111111111", cfg.Users["octocat"])
}
