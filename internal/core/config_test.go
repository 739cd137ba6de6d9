package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indentKey renders the PEM key as an indented YAML block scalar body
func indentKey(pub string) string {
	lines := strings.Split(strings.TrimSpace(pub), "\n")
	return "      " + strings.Join(lines, "\n      ")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_ValidConfig_ReturnsConfigStruct(t *testing.T) {
	_, pub := signingKey(t)
	t.Setenv("TEST_BOT_SECRET", "secret-from-env")

	path := writeConfig(t, `
server:
  port: 8080
bots:
  - bot_id: "bot_abc"
    bot_secret: "${TEST_BOT_SECRET}"
    pub_key: |
`+indentKey(pub)+`
    callback_url: "https://example.com/villa/cb"
    wait_until_complete: true
replies:
  - startswith: ["ping"]
    prefix: ["/", "!"]
    text: "pong"
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, constants.DefaultHost, config.Server.Host)
	require.Len(t, config.Bots, 1)

	bot := config.Bots[0]
	assert.Equal(t, "bot_abc", bot.BotID)
	assert.Equal(t, "secret-from-env", bot.BotSecret)
	assert.True(t, bot.WaitUntilComplete)
	assert.True(t, bot.ShouldVerify())
	endpoint, err := bot.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "/villa/cb", endpoint)

	require.Len(t, config.Replies, 1)
	assert.Equal(t, []string{"/", "!"}, config.Replies[0].Prefix)
}

func TestLoadConfig_Defaults(t *testing.T) {
	_, pub := signingKey(t)
	config, err := ParseConfig([]byte(`
bots:
  - bot_id: "bot_abc"
    bot_secret: "s"
    pub_key: "` + consoleForm(pub) + `"
    verify_event: false
`))
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultPort, config.Server.Port)
	assert.Equal(t, "127.0.0.1:13350", config.Server.Addr())
	assert.Equal(t, constants.DefaultAPIBaseURL, config.API.BaseURL)
	assert.Equal(t, 10*time.Second, config.API.TimeoutDuration())
	assert.Equal(t, 5*time.Minute, config.LookupCache.TTLDuration())
	assert.Equal(t, uint64(constants.DefaultLookupCapacity), config.LookupCache.Capacity)
	assert.Equal(t, 1.0, config.Tracing.SampleRatio)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, constants.DefaultLogMaxSize, config.Logging.MaxSize)
	assert.True(t, config.Logging.EnableStdout)
	assert.False(t, config.Bots[0].ShouldVerify())

	endpoint, err := config.Bots[0].Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "/", endpoint)
}

func TestLoadConfig_MissingEnvVar_ReturnsError(t *testing.T) {
	os.Unsetenv("VILLABOT_UNSET_VAR")
	_, err := ParseConfig([]byte(`
bots:
  - bot_id: "bot_abc"
    bot_secret: "${VILLABOT_UNSET_VAR}"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VILLABOT_UNSET_VAR")
}

func TestLoadConfig_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig_Errors(t *testing.T) {
	_, pub := signingKey(t)
	key := consoleForm(pub)
	bot := func(extra string) string {
		return `
  - bot_id: "bot_abc"
    bot_secret: "s"
    pub_key: "` + key + `"
` + extra
	}

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"no bots", "server:\n  port: 1\n", "at least one bot must be configured"},
		{"missing id", "bots:\n  - bot_secret: s\n", "bot_id is required"},
		{"duplicate bot", "bots:" + bot("") + bot(""), "configured more than once"},
		{"missing secret", "bots:\n  - bot_id: b\n    pub_key: \"" + key + "\"\n", "bot_secret is required"},
		{"missing key", "bots:\n  - bot_id: b\n    bot_secret: s\n", "pub_key is required"},
		{"bad key", "bots:\n  - bot_id: b\n    bot_secret: s\n    pub_key: nope\n", "pub_key"},
		{"relative path", "bots:" + bot("    callback_path: \"villa\"\n"), "must start with '/'"},
		{"bad port", "server:\n  port: 70000\nbots:" + bot(""), "server.port"},
		{"bad timeout", "api:\n  timeout: soon\nbots:" + bot(""), "api.timeout"},
		{"negative concurrency", "dispatch:\n  bucket_concurrency: -1\nbots:" + bot(""), "bucket_concurrency"},
		{"bad ratio", "tracing:\n  sample_ratio: 2\nbots:" + bot(""), "sample_ratio"},
		{"reply without text", "bots:" + bot("") + "replies:\n  - keywords: [hi]\n", "text is required"},
		{"reply without trigger", "bots:" + bot("") + "replies:\n  - text: hi\n", "needs at least one of"},
		{"reply unknown bot", "bots:" + bot("") + "replies:\n  - bot_id: ghost\n    keywords: [hi]\n    text: x\n", "unknown bot"},
		{"reply prefix alone", "bots:" + bot("") + "replies:\n  - prefix: [\"/\"]\n    keywords: [hi]\n    text: x\n", "prefix requires startswith"},
		{"reply bad regex", "bots:" + bot("") + "replies:\n  - regex: \"(\"\n    text: x\n", "regex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBotConfig_Endpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  BotConfig
		want string
	}{
		{"nothing set", BotConfig{}, "/"},
		{"url path", BotConfig{CallbackURL: "https://example.com/a/b"}, "/a/b"},
		{"url without path", BotConfig{CallbackURL: "https://example.com"}, "/"},
		{"path wins", BotConfig{CallbackURL: "https://example.com/a", CallbackPath: "/p"}, "/p"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.Endpoint()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := BotConfig{CallbackURL: "http://[::1"}.Endpoint()
	assert.Error(t, err)
}

func TestConfig_RepliesFor(t *testing.T) {
	cfg := &Config{Replies: []ReplyConfig{
		{Text: "all"},
		{BotID: "a", Text: "only a"},
		{BotID: "b", Text: "only b"},
	}}

	var texts []string
	for _, r := range cfg.RepliesFor("a") {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{"all", "only a"}, texts)
}

func TestConfig_GetBotConfig(t *testing.T) {
	cfg := &Config{Bots: []BotConfig{{BotID: "a"}}}

	bot, err := cfg.GetBotConfig("a")
	require.NoError(t, err)
	assert.Equal(t, "a", bot.BotID)

	_, err = cfg.GetBotConfig("b")
	assert.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "abcd***6789", MaskSecret("abcdef0123456789"))
}
