package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relayEnv points every collaborator at local test servers.
func relayEnv(t *testing.T, discordURL, githubURL string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DISCORD_BOT_TOKEN", "bot-token-123")
	t.Setenv("DISCORD_CHANNEL_ID", "123")
	t.Setenv("GITHUB_TOKEN", "ghs_test")
	t.Setenv("GITHUB_REPOSITORY", "acme/widgets")
	t.Setenv("DISCORD_USER_MAPPING", `{"carol": "1003"}`)
	t.Setenv("PRTHREAD_DISCORD_API_URL", discordURL)
	t.Setenv("PRTHREAD_DISCORD_MAX_RETRIES", "0")
	t.Setenv("PRTHREAD_GITHUB_API_URL", githubURL+"/")
	t.Setenv("PRTHREAD_LOG_LEVEL", "error")
}

func writePayload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := NewApp("test")
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	return app.Run(append([]string{"prthread"}, args...))
}

func unexpected(t *testing.T, name string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected %s call: %s %s", name, r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}))
}

func TestRelayOpenedEndToEnd(t *testing.T) {
	var parent string
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bot bot-token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /channels/123/messages":
			var body struct {
				Content string `json:"content"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			parent = body.Content
			io.WriteString(w, `{"id": "900", "channel_id": "123", "content": "x"}`)
		case "POST /channels/123/messages/900/threads":
			io.WriteString(w, `{"id": "901"}`)
		default:
			t.Errorf("unexpected Discord call: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer discord.Close()

	var stored string
	github := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /repos/acme/widgets/issues/7/comments":
			io.WriteString(w, `[]`)
		case "POST /repos/acme/widgets/issues/7/comments":
			var body struct {
				Body string `json:"body"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			stored = body.Body
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id": 1}`)
		default:
			t.Errorf("unexpected GitHub call: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer github.Close()

	relayEnv(t, discord.URL, github.URL)
	payload := writePayload(t, `{
	  "action": "opened",
	  "pull_request": {
	    "number": 7, "title": "Add retry", "html_url": "https://github.com/acme/widgets/pull/7",
	    "draft": true, "user": {"login": "carol"}, "head": {"ref": "feature"}, "base": {"ref": "main"}
	  },
	  "repository": {"full_name": "acme/widgets"},
	  "sender": {"login": "carol"}
	}`)

	err := runApp(t, "relay", "--event", "pull_request", "--payload", payload)
	require.NoError(t, err)

	assert.Contains(t, parent, "**Author:** <@1003>")
	assert.Contains(t, parent, "**Status**: :pencil: Draft - In Progress")
	assert.Contains(t, stored, "DISCORD_BOT_METADATA")
	assert.Contains(t, stored, `"message_id":"900"`)
	assert.Contains(t, stored, `"thread_id":"901"`)
}

func TestRelayIgnoresUnhandledEvents(t *testing.T) {
	discord, github := unexpected(t, "Discord"), unexpected(t, "GitHub")
	defer discord.Close()
	defer github.Close()
	relayEnv(t, discord.URL, github.URL)

	payload := writePayload(t, `{"action": "reopened", "pull_request": {"number": 7}}`)

	assert.NoError(t, runApp(t, "relay", "--event", "pull_request", "--payload", payload))
}

func TestRelayFailsFastOnMissingConfig(t *testing.T) {
	discord, github := unexpected(t, "Discord"), unexpected(t, "GitHub")
	defer discord.Close()
	defer github.Close()
	relayEnv(t, discord.URL, github.URL)
	t.Setenv("DISCORD_BOT_TOKEN", "")

	payload := writePayload(t, `{"action": "opened", "pull_request": {"number": 7}}`)

	err := runApp(t, "relay", "--event", "pull_request", "--payload", payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord.token")
}

func TestRelayRejectsUnreadablePayload(t *testing.T) {
	discord, github := unexpected(t, "Discord"), unexpected(t, "GitHub")
	defer discord.Close()
	defer github.Close()
	relayEnv(t, discord.URL, github.URL)

	err := runApp(t, "relay", "--event", "pull_request", "--payload", writePayload(t, `{"action": `))
	assert.Error(t, err)
}
