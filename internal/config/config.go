package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Third-Cult/agile-automation-playground-sub000/internal/usermapping"
)

// EnvPrefix namespaces environment overrides, e.g. PRTHREAD_DISCORD_TOKEN -> discord.token.
const EnvPrefix = "PRTHREAD_"

// DefaultPaths are tried in order when no config file is given.
var DefaultPaths = []string{"./prthread.toml", "$HOME/.prthread.toml"}

// Environment variables set by the GitHub Actions workflow.
const (
	EnvDiscordToken   = "DISCORD_BOT_TOKEN"
	EnvDiscordChannel = "DISCORD_CHANNEL_ID"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvRepository     = "GITHUB_REPOSITORY"
	EnvUserMapping    = "DISCORD_USER_MAPPING"
)

// ErrMissingConfig is wrapped by Validate when required settings are absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Config represents the application configuration
type Config struct {
	Discord struct {
		Token             string  `koanf:"token"`
		ChannelID         string  `koanf:"channel_id"`
		APIURL            string  `koanf:"api_url"`
		RequestsPerSecond float64 `koanf:"requests_per_second"`
		Burst             int     `koanf:"burst"`
		MaxRetries        int     `koanf:"max_retries"`
	} `koanf:"discord"`

	GitHub struct {
		Token      string `koanf:"token"`
		Repository string `koanf:"repository"`
		APIURL     string `koanf:"api_url"`
	} `koanf:"github"`

	Server struct {
		Addr          string `koanf:"addr"`
		WebhookSecret string `koanf:"webhook_secret"`
	} `koanf:"server"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`

	// Users maps GitHub logins to Discord user ids.
	Users map[string]string `koanf:"users"`

	// UserMappingJSON is the raw DISCORD_USER_MAPPING value, merged over Users.
	UserMappingJSON string `koanf:"user_mapping_json"`
}

// Defaults applied before any file or environment layer.
var defaults = map[string]interface{}{
	"discord.api_url":             "https://discord.com/api/v10",
	"discord.requests_per_second": 5.0,
	"discord.burst":               5,
	"discord.max_retries":         3,
	"github.api_url":              "https://api.github.com/",
	"server.addr":                 ":8080",
	"log.level":                   "info",
	"log.format":                  "json",
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range DefaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
					return nil, fmt.Errorf("error loading config %s: %w", path, err)
				}
				break
			}
		}
	}

	// PRTHREAD_DISCORD_CHANNEL_ID -> discord.channel_id: the first underscore splits the section.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(key, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading %s environment: %w", EnvPrefix, err)
	}

	if err := k.Load(confmap.Provider(actionsEnv(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading workflow environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// actionsEnv maps the workflow's well-known variables onto config keys. Unset ones are skipped.
func actionsEnv() map[string]interface{} {
	keys := map[string]string{
		EnvDiscordToken:   "discord.token",
		EnvDiscordChannel: "discord.channel_id",
		EnvGitHubToken:    "github.token",
		EnvRepository:     "github.repository",
		EnvUserMapping:    "user_mapping_json",
	}
	out := make(map[string]interface{})
	for name, key := range keys {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			out[key] = v
		}
	}
	return out
}

// UserMapper builds the login -> Discord id mapper from the users table and the JSON mapping.
func (c *Config) UserMapper() (*usermapping.Mapper, error) {
	fromJSON, err := usermapping.ParseJSON(c.UserMappingJSON)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvUserMapping, err)
	}
	return usermapping.New(c.Users).Merge(fromJSON), nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# PR thread relay configuration

[discord]
token = "your-discord-bot-token"
channel_id = "123456789012345678"
# api_url = "https://discord.com/api/v10"
# requests_per_second = 5
# burst = 5
# max_retries = 3

[github]
token = "your-github-token"
repository = "owner/repo"
# api_url = "https://api.github.com/"

[server]
addr = ":8080"
webhook_secret = ""

[log]
level = "info"
format = "json"

# GitHub login = Discord user id
[users]
octocat = "111111111111111111"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration. Every missing field is named in one error.
func Validate(config *Config) error {
	var missing []string

	if strings.TrimSpace(config.Discord.Token) == "" {
		missing = append(missing, "discord.token ("+EnvDiscordToken+")")
	}
	if strings.TrimSpace(config.Discord.ChannelID) == "" {
		missing = append(missing, "discord.channel_id ("+EnvDiscordChannel+")")
	}
	if strings.TrimSpace(config.GitHub.Token) == "" {
		missing = append(missing, "github.token ("+EnvGitHubToken+")")
	}
	if strings.TrimSpace(config.GitHub.Repository) == "" {
		missing = append(missing, "github.repository ("+EnvRepository+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if _, err := strconv.ParseUint(strings.TrimSpace(config.Discord.ChannelID), 10, 64); err != nil {
		return fmt.Errorf("discord.channel_id must be a numeric snowflake, got %q", config.Discord.ChannelID)
	}
	if owner, repo, ok := strings.Cut(config.GitHub.Repository, "/"); !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return fmt.Errorf("github.repository must be owner/repo, got %q", config.GitHub.Repository)
	}
	if config.Discord.RequestsPerSecond < 0 || config.Discord.Burst < 0 || config.Discord.MaxRetries < 0 {
		return fmt.Errorf("discord rate and retry settings must not be negative")
	}
	if _, err := config.UserMapper(); err != nil {
		return err
	}

	return nil
}
