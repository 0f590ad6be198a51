package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "gh****yz", maskSecret("ghp_abcdefxyz"))
}

func TestCheckRequiredConfig(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token-123456")
	t.Setenv("DISCORD_CHANNEL_ID", "")
	t.Setenv("GITHUB_TOKEN", "ghs_0123456789")
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")
	t.Setenv("DISCORD_USER_MAPPING", "")

	result := CheckRequiredConfig()

	assert.Equal(t, []string{"DISCORD_CHANNEL_ID"}, result.Missing)
	assert.Equal(t, "bo****56", result.Present["DISCORD_BOT_TOKEN"])
	assert.Len(t, result.Warnings, 1)

	var buf bytes.Buffer
	PrintConfigCheck(&buf, result)
	assert.Contains(t, buf.String(), "DISCORD_CHANNEL_ID")
	assert.NotContains(t, buf.String(), "bot-token-123456")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nPRTHREAD_TEST_A=\"quoted value\"\nPRTHREAD_TEST_B = plain\nnot a pair\n"), 0o600))
	t.Setenv("PRTHREAD_TEST_A", "")
	t.Setenv("PRTHREAD_TEST_B", "")

	require.NoError(t, LoadEnvFile(path))

	assert.Equal(t, "quoted value", os.Getenv("PRTHREAD_TEST_A"))
	assert.Equal(t, "plain", os.Getenv("PRTHREAD_TEST_B"))
}
