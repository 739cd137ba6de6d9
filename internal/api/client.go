// Package api is the client for the bot platform REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/internal/model"
	"github.com/keepmind9/villabot/internal/observability"
	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 8 << 20

// Client calls the platform on behalf of one bot
type Client struct {
	httpClient      *http.Client
	baseURL         string
	botID           string
	encryptedSecret string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the platform REST root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout sets the timeout of every call
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client authenticating as botID. encryptedSecret is the
// HMAC form of the bot secret sent in every request.
func NewClient(botID, encryptedSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: constants.DefaultAPITimeout},
		baseURL:         constants.DefaultAPIBaseURL,
		botID:           botID,
		encryptedSecret: encryptedSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c
}

// BotID returns the id the client authenticates as
func (c *Client) BotID() string {
	return c.botID
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Headers returns the authentication headers for a call scoped to villaID.
// A zero villaID sends an empty villa header.
func (c *Client) Headers(villaID int64) http.Header {
	h := http.Header{}
	h.Set(constants.HeaderBotID, c.botID)
	h.Set(constants.HeaderBotSecret, c.encryptedSecret)
	villa := ""
	if villaID != 0 {
		villa = strconv.FormatInt(villaID, 10)
	}
	h.Set(constants.HeaderBotVillaID, villa)
	return h
}

// call performs one API request. body is always sent as JSON, GET included.
// When out is not nil the response data is decoded into it.
func (c *Client) call(ctx context.Context, method, api string, villaID int64, body, out any) (err error) {
	ctx, span := observability.StartSpan(ctx, "api "+api,
		attribute.String("bot.id", c.botID),
		attribute.String("http.method", method),
		attribute.Int64("villa.id", villaID),
	)
	defer func() { observability.EndSpan(span, err) }()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"bot_id": c.botID,
		"api":    api,
	})
	log.Debug("calling-api")

	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", api, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+api, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", api, err)
	}
	req.Header = c.Headers(villaID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithField("error", err).Warn("api-request-failed")
		return fmt.Errorf("%s: request failed: %w", api, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", api, err)
	}

	var envelope model.APIResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%s: unexpected response (status %d): %w", api, resp.StatusCode, err)
	}
	span.SetAttributes(attribute.Int("api.retcode", envelope.Retcode))

	if envelope.Retcode != RetcodeOK {
		af := newActionFailedError(api, resp.StatusCode, envelope.Retcode, envelope.Message, envelope.Data)
		log.WithFields(logrus.Fields{
			"retcode": envelope.Retcode,
			"message": envelope.Message,
		}).Warn("api-action-failed")
		return af
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s: failed to decode data: %w", api, err)
		}
	}
	return nil
}
