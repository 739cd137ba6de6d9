package core

import (
	"github.com/keepmind9/villabot/internal/observability"
)

// Config represents the complete villabot configuration structure
type Config struct {
	Server      ServerConfig         `yaml:"server"`
	API         APIConfig            `yaml:"api"`
	Dispatch    DispatchConfig       `yaml:"dispatch"`
	LookupCache LookupCacheConfig    `yaml:"lookup_cache"`
	Tracing     observability.Config `yaml:"tracing"`
	Logging     LoggingConfig        `yaml:"logging"`
	Bots        []BotConfig          `yaml:"bots"`
	Replies     []ReplyConfig        `yaml:"replies"`
}

// ServerConfig is where the webhook server listens
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// APIConfig configures the outbound REST client
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // e.g. "10s"
}

// DispatchConfig configures the event dispatch engine
type DispatchConfig struct {
	// BucketConcurrency bounds the handlers of one priority running at once. 0 is unbounded.
	BucketConcurrency int `yaml:"bucket_concurrency"`
}

// LookupCacheConfig configures the member and room name cache
type LookupCacheConfig struct {
	TTL      string `yaml:"ttl"`
	Capacity uint64 `yaml:"capacity"`
}

// BotConfig represents one bot served by the process
type BotConfig struct {
	BotID     string `yaml:"bot_id"`
	BotSecret string `yaml:"bot_secret"`
	PubKey    string `yaml:"pub_key"`
	// CallbackURL is the public callback address; only its path is used.
	// CallbackPath takes precedence when both are set.
	CallbackURL       string `yaml:"callback_url"`
	CallbackPath      string `yaml:"callback_path"`
	WaitUntilComplete bool   `yaml:"wait_until_complete"`
	// VerifyEvent defaults to true when omitted
	VerifyEvent *bool `yaml:"verify_event"`
}

// ReplyConfig is one auto-reply rule
type ReplyConfig struct {
	// BotID limits the rule to one bot; empty applies it to every bot
	BotID      string   `yaml:"bot_id"`
	StartsWith []string `yaml:"startswith"`
	EndsWith   []string `yaml:"endswith"`
	Keywords   []string `yaml:"keywords"`
	Regex      string   `yaml:"regex"`
	// Prefix is combined with every startswith word
	Prefix        []string `yaml:"prefix"`
	Text          string   `yaml:"text"`
	Priority      int      `yaml:"priority"`
	Block         bool     `yaml:"block"`
	MentionSender bool     `yaml:"mention_sender"`
	Quote         bool     `yaml:"quote"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	File         string `yaml:"file"`          // Log file path
	MaxSize      int    `yaml:"max_size"`      // Single file max size in MB (default: 100)
	MaxBackups   int    `yaml:"max_backups"`   // Number of backups to keep (default: 5)
	MaxAge       int    `yaml:"max_age"`       // Maximum days to retain (default: 30)
	Compress     bool   `yaml:"compress"`      // Whether to compress old logs (default: true)
	EnableStdout bool   `yaml:"enable_stdout"` // Also output to stdout (default: true)
}
