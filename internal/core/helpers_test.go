package core

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/keepmind9/villabot/internal/api"
	"github.com/stretchr/testify/require"
)

const (
	testBotID  = "bot_test"
	testSecret = "s3cret-value"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
	testPEM string
)

// signingKey returns a process-wide RSA key and its PEM public key
func signingKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	keyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			panic(err)
		}
		testKey = key
		testPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	})
	return testKey, testPEM
}

// consoleForm renders a PEM key the way the developer console shows it: one line, spaces for newlines
func consoleForm(pemKey string) string {
	return strings.ReplaceAll(strings.TrimSpace(pemKey), "\n", " ")
}

// sign produces the signature header the platform would send for body
func sign(t *testing.T, body []byte, secret string) string {
	t.Helper()
	key, _ := signingKey(t)
	v := &Verifier{secret: secret}
	digest := sha256.Sum256(v.signedData(string(body)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func botConfig(t *testing.T) BotConfig {
	t.Helper()
	_, pub := signingKey(t)
	return BotConfig{
		BotID:       testBotID,
		BotSecret:   testSecret,
		PubKey:      pub,
		CallbackURL: "https://example.com/villa/callback",
	}
}

// platform is a fake REST platform recording sendMessage calls
type platform struct {
	mu    sync.Mutex
	sends []map[string]any
	srv   *httptest.Server
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	p := &platform{}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			p.mu.Lock()
			p.sends = append(p.sends, body)
			p.mu.Unlock()
			_, _ = io.WriteString(w, `{"retcode":0,"message":"OK","data":{"bot_msg_id":"bot-msg-1"}}`)
		case strings.HasSuffix(r.URL.Path, "/getMember"):
			_, _ = io.WriteString(w, `{"retcode":0,"message":"OK","data":{"member":{"basic":{"uid":7,"nickname":"Carol"}}}}`)
		default:
			_, _ = io.WriteString(w, `{"retcode":-1,"message":"unexpected","data":null}`)
		}
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *platform) sent() []map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]any(nil), p.sends...)
}

// sentContent decodes the msg_content of the i-th sendMessage call
func (p *platform) sentContent(t *testing.T, i int) map[string]any {
	t.Helper()
	sends := p.sent()
	require.Greater(t, len(sends), i)
	raw, ok := sends[i]["msg_content"].(string)
	require.True(t, ok)
	var content map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &content))
	return content
}

func newTestBot(t *testing.T, p *platform, cfg BotConfig) *Bot {
	t.Helper()
	var opts []BotOption
	if p != nil {
		opts = append(opts, WithAPIOptions(api.WithBaseURL(p.srv.URL)))
	}
	bot, err := NewBot(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(bot.Close)
	return bot
}

// messageCallback builds a SendMessage webhook body
func messageCallback(t *testing.T, botID, text string) []byte {
	t.Helper()
	content, err := json.Marshal(map[string]any{
		"content": map[string]any{"text": text, "entities": []any{}},
		"user":    map[string]any{"id": "7", "name": "Carol"},
	})
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"event": map[string]any{
			"robot": map[string]any{
				"villa_id": 100,
				"template": map[string]any{
					"id":       botID,
					"name":     "Tester",
					"desc":     "a test bot",
					"icon":     "https://img.example/icon.png",
					"commands": []any{map[string]any{"name": "/help", "desc": "show help"}},
				},
			},
			"type":       2,
			"id":         "ev-1",
			"created_at": 1690000000,
			"send_at":    1690000001,
			"extend_data": map[string]any{
				"EventData": map[string]any{
					"SendMessage": map[string]any{
						"content":      string(content),
						"from_user_id": 7,
						"send_at":      1690000000123,
						"room_id":      5,
						"object_name":  1,
						"nickname":     "Carol",
						"msg_uid":      "M-1",
						"villa_id":     100,
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return append(body, '\n')
}
