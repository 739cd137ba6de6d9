package constants

import "time"

// Platform endpoints
const (
	// DefaultAPIBaseURL is the bot platform REST root; endpoint names are appended to it
	DefaultAPIBaseURL = "https://bbs-api.miyoushe.com/vila/api/bot/platform/"
	// DefaultAPITimeout is the timeout applied to every outbound REST call
	DefaultAPITimeout = 10 * time.Second
)

// Request and response headers
const (
	// HeaderBotID carries the bot id on every REST call
	HeaderBotID = "x-rpc-bot_id"
	// HeaderBotSecret carries the HMAC-encrypted bot secret
	HeaderBotSecret = "x-rpc-bot_secret"
	// HeaderBotVillaID scopes a REST call to a villa (empty when unscoped)
	HeaderBotVillaID = "x-rpc-bot_villa_id"
	// HeaderBotSign carries the base64 RSA signature of a webhook callback
	HeaderBotSign = "x-rpc-bot_sign"
	// HeaderRequestID correlates a webhook delivery across log lines
	HeaderRequestID = "X-Request-ID"
)

// Message object names accepted by sendMessage
const (
	ObjectNameText  = "MHY:Text"
	ObjectNameImage = "MHY:Image"
	ObjectNamePost  = "MHY:Post"
)

// Message content defaults
const (
	// DefaultMentionAllText is the display text of an @all mention
	DefaultMentionAllText = "全体成员"
	// PlaceholderText is sent as the text body of image-only or card-only messages
	PlaceholderText = "\u200b"
)

// Server defaults
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 13350
	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout = 5 * time.Second
)

// Lookup cache defaults
const (
	// DefaultLookupTTL is how long a resolved member or room name stays cached
	DefaultLookupTTL = 5 * time.Minute
	// DefaultLookupCapacity bounds the number of cached names
	DefaultLookupCapacity = 10000
)

// Secret masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply masking
	MinSecretLengthForMasking = 8
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
	// DefaultLogMaxBackups is the default number of rotated files to keep
	DefaultLogMaxBackups = 5
)
