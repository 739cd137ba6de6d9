package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/keepmind9/villabot/internal/api"
	"github.com/keepmind9/villabot/internal/codec"
	"github.com/keepmind9/villabot/internal/dispatch"
	"github.com/keepmind9/villabot/internal/event"
	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/internal/message"
	"github.com/keepmind9/villabot/internal/model"
	"github.com/sirupsen/logrus"
)

// ErrBotNotConnected is returned by robot info accessors before the first callback arrives
var ErrBotNotConnected = errors.New("bot not connected")

// Bot is one platform bot: its credentials, handlers and API client
type Bot struct {
	id                string
	endpoint          string
	verifyEvent       bool
	waitUntilComplete bool

	verifier  *Verifier
	client    *api.Client
	directory *api.CachedDirectory
	encoder   *codec.Encoder
	registry  *dispatch.Registry
	engine    *dispatch.Engine

	mu        sync.RWMutex
	robot     *model.Robot
	closeOnce sync.Once
}

type botOptions struct {
	apiOptions     []api.Option
	concurrency    int
	lookupTTL      time.Duration
	lookupCapacity uint64
}

// BotOption configures a Bot
type BotOption func(*botOptions)

// WithAPIOptions passes options to the REST client of the bot
func WithAPIOptions(opts ...api.Option) BotOption {
	return func(o *botOptions) { o.apiOptions = append(o.apiOptions, opts...) }
}

// WithBucketConcurrency bounds how many handlers of one priority run at once
func WithBucketConcurrency(n int) BotOption {
	return func(o *botOptions) { o.concurrency = n }
}

// WithLookupCache sets the TTL and capacity of the member and room name cache
func WithLookupCache(ttl time.Duration, capacity uint64) BotOption {
	return func(o *botOptions) {
		o.lookupTTL = ttl
		o.lookupCapacity = capacity
	}
}

// NewBot creates a bot from its configuration
func NewBot(cfg BotConfig, opts ...BotOption) (*Bot, error) {
	if cfg.BotID == "" {
		return nil, fmt.Errorf("bot_id is required")
	}
	o := &botOptions{}
	for _, opt := range opts {
		opt(o)
	}

	verifier, err := NewVerifier(cfg.PubKey, cfg.BotSecret)
	if err != nil {
		return nil, fmt.Errorf("bot %s: %w", cfg.BotID, err)
	}
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, fmt.Errorf("bot %s: %w", cfg.BotID, err)
	}

	client := api.NewClient(cfg.BotID, EncryptSecret(cfg.PubKey, cfg.BotSecret), o.apiOptions...)
	directory := api.NewCachedDirectory(client, o.lookupTTL, o.lookupCapacity)
	registry := dispatch.NewRegistry()

	b := &Bot{
		id:                cfg.BotID,
		endpoint:          endpoint,
		verifyEvent:       cfg.ShouldVerify(),
		waitUntilComplete: cfg.WaitUntilComplete,
		verifier:          verifier,
		client:            client,
		directory:         directory,
		encoder:           codec.NewEncoder(directory),
		registry:          registry,
		engine:            dispatch.NewEngine(registry, dispatch.WithConcurrency(o.concurrency)),
	}

	logger.WithFields(logrus.Fields{
		"bot_id":   b.id,
		"secret":   MaskSecret(cfg.BotSecret),
		"endpoint": endpoint,
		"verify":   b.verifyEvent,
	}).Info("bot-created")

	return b, nil
}

// ID returns the bot id
func (b *Bot) ID() string { return b.id }

// Endpoint returns the webhook path the bot is served at
func (b *Bot) Endpoint() string { return b.endpoint }

// VerifyEvent reports whether callbacks must be signed
func (b *Bot) VerifyEvent() bool { return b.verifyEvent }

// WaitUntilComplete reports whether the webhook answers only after every handler finished
func (b *Bot) WaitUntilComplete() bool { return b.waitUntilComplete }

// Client returns the REST client of the bot
func (b *Bot) Client() *api.Client { return b.client }

// Registry returns the handler registry of the bot
func (b *Bot) Registry() *dispatch.Registry { return b.registry }

// Verify checks the signature of a callback body
func (b *Bot) Verify(body []byte, sign string) error {
	return b.verifier.Verify(body, sign)
}

// Dispatch runs ev through the handlers of the bot
func (b *Bot) Dispatch(ctx context.Context, ev event.Event) dispatch.Result {
	return b.engine.Dispatch(ctx, ev)
}

// Close releases the cache and idle connections of the bot. It is safe to call more than once.
func (b *Bot) Close() {
	b.closeOnce.Do(func() {
		b.directory.Close()
		b.client.Close()
	})
}

func (b *Bot) setRobot(robot model.Robot) {
	b.mu.Lock()
	b.robot = &robot
	b.mu.Unlock()
}

// Robot returns the bot information carried by the latest callback
func (b *Bot) Robot() (model.Robot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.robot == nil {
		return model.Robot{}, ErrBotNotConnected
	}
	return *b.robot, nil
}

// Nickname returns the bot display name
func (b *Bot) Nickname() (string, error) {
	r, err := b.Robot()
	return r.Template.Name, err
}

// AvatarIcon returns the bot avatar URL
func (b *Bot) AvatarIcon() (string, error) {
	r, err := b.Robot()
	return r.Template.Icon, err
}

// Description returns the bot description
func (b *Bot) Description() (string, error) {
	r, err := b.Robot()
	return r.Template.Desc, err
}

// Commands returns the commands of the bot template
func (b *Bot) Commands() ([]model.Command, error) {
	r, err := b.Robot()
	return r.Template.Commands, err
}

// CurrentVillaID returns the villa of the latest callback
func (b *Bot) CurrentVillaID() (int64, error) {
	r, err := b.Robot()
	return r.VillaID, err
}

// Send encodes msg and sends it to a room, returning the bot message id
func (b *Bot) Send(ctx context.Context, villaID, roomID int64, msg *message.Message) (string, error) {
	info, err := b.encoder.Encode(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}
	content, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("failed to serialize message: %w", err)
	}

	msgID, err := b.client.SendMessage(ctx, villaID, roomID, info.Content.ObjectName(), string(content))
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"bot_id":   b.id,
		"villa_id": villaID,
		"room_id":  roomID,
		"msg_id":   msgID,
	}).Debug("message-sent")
	return msgID, nil
}

// ReplyOptions control how Reply decorates the reply
type ReplyOptions struct {
	// MentionSender mentions the author of the received message first
	MentionSender bool
	// QuoteMessage quotes the received message
	QuoteMessage bool
}

// Reply sends msg to the room ev came from
func (b *Bot) Reply(ctx context.Context, ev *event.SendMessage, msg *message.Message, opts ReplyOptions) (string, error) {
	out := message.New(msg.Segments()...)
	if opts.MentionSender {
		if ev.Nickname != "" {
			out.Insert(0, message.MentionUser{UserID: ev.FromUserID, UserName: ev.Nickname})
		} else {
			out.Insert(0, message.MentionUser{UserID: ev.FromUserID, VillaID: ev.VillaID})
		}
	}
	if opts.QuoteMessage {
		out.Append(message.Quote{QuotedMessageID: ev.MsgUID, QuotedSendTime: ev.SendAt})
	}
	return b.Send(ctx, ev.VillaID, ev.RoomID, out)
}
