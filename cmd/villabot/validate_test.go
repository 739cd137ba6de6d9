package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keepmind9/villabot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publicKeyLine returns a fresh RSA public key in the single-line form the platform console shows
func publicKeyLine(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pub := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	return strings.ReplaceAll(strings.TrimSpace(pub), "\n", " ")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func validConfig(t *testing.T) string {
	return `
server:
  host: "127.0.0.1"
  port: 18080
bots:
  - bot_id: "bot_main"
    bot_secret: "main-secret-value"
    pub_key: "` + publicKeyLine(t) + `"
    callback_path: "/callback"
  - bot_id: "bot_quiet"
    bot_secret: "quiet-secret-value"
    pub_key: "` + publicKeyLine(t) + `"
    callback_path: "/callback"
    verify_event: false
replies:
  - bot_id: "bot_main"
    startswith: ["ping"]
    prefix: ["/"]
    text: "pong"
    block: true
  - bot_id: "bot_main"
    keywords: ["hello"]
    text: "hi there"
`
}

func TestValidate_ValidConfig(t *testing.T) {
	path := writeConfig(t, validConfig(t))
	cfg, err := core.LoadConfig(path)
	require.NoError(t, err)

	result := validate(path, cfg, nil)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Bots)
	assert.Equal(t, 2, result.Replies)
	assert.Empty(t, result.Errors)
	assert.Contains(t, result.Warnings, "bot 'bot_quiet' accepts unsigned callbacks (verify_event: false)")
	assert.Contains(t, result.Warnings, "bot 'bot_quiet' has no reply rules")

	var buf bytes.Buffer
	require.NoError(t, printValidation(&buf, result, false))
	assert.Contains(t, buf.String(), "Configuration is valid")
	assert.Contains(t, buf.String(), "Bots configured: 2")
}

func TestValidate_LoadError(t *testing.T) {
	result := validate("broken.yaml", nil, errors.New("bots[0].bot_id is required"))
	assert.False(t, result.Valid)

	var buf bytes.Buffer
	err := printValidation(&buf, result, false)
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "bots[0].bot_id is required")
}

func TestPrintValidation_JSON(t *testing.T) {
	path := writeConfig(t, validConfig(t))
	cfg, err := core.LoadConfig(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printValidation(&buf, validate(path, cfg, nil), true))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, true, out["valid"])
	assert.Equal(t, float64(2), out["bots"])
	assert.NotContains(t, buf.String(), "main-secret-value")
}

func TestShowConfig_MasksSecrets(t *testing.T) {
	path := writeConfig(t, validConfig(t))
	cfg, err := core.LoadConfig(path)
	require.NoError(t, err)

	var buf bytes.Buffer
	showConfig(&buf, cfg)
	assert.Contains(t, buf.String(), "bot_main")
	assert.Contains(t, buf.String(), "/callback")
	assert.NotContains(t, buf.String(), "main-secret-value")
	assert.Contains(t, buf.String(), core.MaskSecret("main-secret-value"))
}

func TestFindConfig(t *testing.T) {
	got, err := findConfig("explicit.yaml")
	require.NoError(t, err)
	assert.Equal(t, "explicit.yaml", got)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	_, err = findConfig("")
	if _, statErr := os.Stat("/etc/villabot/config.yaml"); statErr != nil {
		assert.Error(t, err)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}"), 0600))
	got, err = findConfig("")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", got)
}

func TestBuildApp(t *testing.T) {
	cfg, err := core.LoadConfig(writeConfig(t, validConfig(t)))
	require.NoError(t, err)

	app, err := buildApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, b := range app.Bots() {
			b.Close()
		}
	})

	require.Len(t, app.Bots(), 2)
	primary, ok := app.Bot("bot_main")
	require.True(t, ok)
	assert.Equal(t, 2, primary.Registry().Len())
	assert.Equal(t, "/callback", primary.Endpoint())

	quiet, ok := app.Bot("bot_quiet")
	require.True(t, ok)
	assert.Equal(t, 0, quiet.Registry().Len())
	assert.False(t, quiet.VerifyEvent())
}
