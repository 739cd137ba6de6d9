// Package core wires bots, configuration and the webhook server together.
//
// A Bot owns a handler registry, a REST client and a signature verifier. An
// App holds every Bot of the process and serves their callbacks over HTTP.
//
// # Configuration
//
// Configuration is loaded from a YAML file with the following main sections:
//
//   - server: webhook listen address
//   - api: REST base URL and timeout
//   - dispatch: handler concurrency within one priority
//   - lookup_cache: member and room name cache
//   - tracing: OpenTelemetry export
//   - logging: log configuration
//   - bots: bot credentials and callback paths
//   - replies: config-driven auto replies
//
// # Example Configuration
//
//	server:
//	  port: 13350
//	bots:
//	  - bot_id: "bot_xxx"
//	    bot_secret: "${VILLA_BOT_SECRET}"
//	    pub_key: "${VILLA_PUB_KEY}"
//	    callback_url: "https://example.com/villa"
//	replies:
//	  - startswith: ["ping"]
//	    prefix: ["/"]
//	    text: "pong"
package core

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/keepmind9/villabot/pkg/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLogLevel        = "info"
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true

	DefaultAPITimeout   = "10s"
	DefaultLookupTTL    = "5m"
	DefaultCallbackPath = "/"
	DefaultSampleRatio  = 1.0
)

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML bytes
func ParseConfig(data []byte) (*Config, error) {
	// Expand environment variables
	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	// Parse YAML
	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig fills defaults and validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Host == "" {
		config.Server.Host = constants.DefaultHost
	}
	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultPort
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (got %d)", config.Server.Port)
	}

	if config.API.BaseURL == "" {
		config.API.BaseURL = constants.DefaultAPIBaseURL
	}
	if config.API.Timeout == "" {
		config.API.Timeout = DefaultAPITimeout
	}
	if d, err := time.ParseDuration(config.API.Timeout); err != nil {
		return fmt.Errorf("invalid api.timeout: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("api.timeout must be positive (got %v)", d)
	}

	if config.Dispatch.BucketConcurrency < 0 {
		return fmt.Errorf("dispatch.bucket_concurrency cannot be negative (got %d)", config.Dispatch.BucketConcurrency)
	}

	if config.LookupCache.TTL == "" {
		config.LookupCache.TTL = DefaultLookupTTL
	}
	if _, err := time.ParseDuration(config.LookupCache.TTL); err != nil {
		return fmt.Errorf("invalid lookup_cache.ttl: %w", err)
	}
	if config.LookupCache.Capacity == 0 {
		config.LookupCache.Capacity = constants.DefaultLookupCapacity
	}

	if config.Tracing.SampleRatio == 0 {
		config.Tracing.SampleRatio = DefaultSampleRatio
	}
	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1 (got %v)", config.Tracing.SampleRatio)
	}

	// Set default logging configuration
	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = constants.DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}
	if !config.Logging.Compress {
		config.Logging.Compress = DefaultLogCompress
	}
	if !config.Logging.EnableStdout {
		config.Logging.EnableStdout = DefaultLogEnableStdout
	}

	// Validate at least one bot is configured
	if len(config.Bots) == 0 {
		return fmt.Errorf("at least one bot must be configured")
	}

	seen := make(map[string]bool, len(config.Bots))
	for i := range config.Bots {
		bot := &config.Bots[i]
		if bot.BotID == "" {
			return fmt.Errorf("bots[%d].bot_id is required", i)
		}
		if seen[bot.BotID] {
			return fmt.Errorf("bot '%s' is configured more than once", bot.BotID)
		}
		seen[bot.BotID] = true

		if bot.VerifyEvent == nil {
			verify := true
			bot.VerifyEvent = &verify
		}
		if bot.BotSecret == "" {
			return fmt.Errorf("bot '%s': bot_secret is required", bot.BotID)
		}
		if bot.PubKey == "" {
			return fmt.Errorf("bot '%s': pub_key is required", bot.BotID)
		}
		if _, err := ParsePublicKey(bot.PubKey); err != nil {
			return fmt.Errorf("bot '%s': %w", bot.BotID, err)
		}

		path, err := bot.Endpoint()
		if err != nil {
			return fmt.Errorf("bot '%s': %w", bot.BotID, err)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("bot '%s': callback path must start with '/' (got %q)", bot.BotID, path)
		}
	}

	for i, reply := range config.Replies {
		if reply.BotID != "" && !seen[reply.BotID] {
			return fmt.Errorf("replies[%d] references unknown bot '%s'", i, reply.BotID)
		}
		if reply.Text == "" {
			return fmt.Errorf("replies[%d].text is required", i)
		}
		if len(reply.StartsWith) == 0 && len(reply.EndsWith) == 0 && len(reply.Keywords) == 0 && reply.Regex == "" {
			return fmt.Errorf("replies[%d] needs at least one of startswith, endswith, keywords or regex", i)
		}
		if len(reply.Prefix) > 0 && len(reply.StartsWith) == 0 {
			return fmt.Errorf("replies[%d].prefix requires startswith", i)
		}
		if reply.Regex != "" {
			if _, err := regexp.Compile(reply.Regex); err != nil {
				return fmt.Errorf("replies[%d].regex: %w", i, err)
			}
		}
	}

	return nil
}

// Addr returns the listen address of the webhook server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// TimeoutDuration returns the parsed REST timeout
func (a APIConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return constants.DefaultAPITimeout
	}
	return d
}

// TTLDuration returns the parsed cache TTL
func (l LookupCacheConfig) TTLDuration() time.Duration {
	d, err := time.ParseDuration(l.TTL)
	if err != nil || d <= 0 {
		return constants.DefaultLookupTTL
	}
	return d
}

// Endpoint returns the webhook path of the bot. callback_path wins over the
// path of callback_url; with neither set the bot is served at "/".
func (b BotConfig) Endpoint() (string, error) {
	if b.CallbackPath != "" {
		return b.CallbackPath, nil
	}
	if b.CallbackURL == "" {
		return DefaultCallbackPath, nil
	}
	u, err := url.Parse(b.CallbackURL)
	if err != nil {
		return "", fmt.Errorf("invalid callback_url: %w", err)
	}
	if u.Path == "" {
		return DefaultCallbackPath, nil
	}
	return u.Path, nil
}

// ShouldVerify reports whether callbacks for the bot must carry a valid signature
func (b BotConfig) ShouldVerify() bool {
	return b.VerifyEvent == nil || *b.VerifyEvent
}

// GetBotConfig retrieves configuration for a specific bot
func (c *Config) GetBotConfig(botID string) (BotConfig, error) {
	for _, bot := range c.Bots {
		if bot.BotID == botID {
			return bot, nil
		}
	}
	return BotConfig{}, fmt.Errorf("bot %s not found in configuration", botID)
}

// RepliesFor returns the reply rules that apply to botID
func (c *Config) RepliesFor(botID string) []ReplyConfig {
	var out []ReplyConfig
	for _, r := range c.Replies {
		if r.BotID == "" || r.BotID == botID {
			out = append(out, r)
		}
	}
	return out
}

// MaskSecret masks a secret for logs and config dumps
func MaskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}
