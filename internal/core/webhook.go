package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/keepmind9/villabot/internal/event"
	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// maxCallbackBytes bounds a webhook body
const maxCallbackBytes = 1 << 20

type webhookResponse struct {
	Retcode int    `json:"retcode"`
	Msg     string `json:"msg,omitempty"`
	Message string `json:"message,omitempty"`
}

var (
	respSuccess          = webhookResponse{Retcode: 0, Message: "success"}
	respInvalidData      = webhookResponse{Retcode: http.StatusUnsupportedMediaType, Msg: "Invalid data"}
	respInvalidSignature = webhookResponse{Retcode: http.StatusUnauthorized, Msg: "Invalid signature"}
)

// Router builds the gin engine serving every bot endpoint. Bots sharing an
// endpoint share one route; callbacks are routed by the robot id they carry.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(), recovery())

	mounted := make(map[string]bool)
	for _, bot := range a.Bots() {
		if mounted[bot.Endpoint()] {
			continue
		}
		mounted[bot.Endpoint()] = true
		router.POST(bot.Endpoint(), a.handleCallback)
		logger.WithFields(logrus.Fields{
			"bot_id":   bot.ID(),
			"endpoint": bot.Endpoint(),
		}).Debug("webhook-endpoint-mounted")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"bots":   len(a.Bots()),
		})
	})

	return router
}

func (a *App) handleCallback(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBytes))
	if err != nil {
		log.WithField("error", err).Warn("failed-to-read-callback")
		c.JSON(http.StatusUnsupportedMediaType, respInvalidData)
		return
	}

	ev, err := event.ParseBody(body)
	if err != nil {
		log.WithFields(logrus.Fields{
			"error": err,
			"body":  truncate(string(body), 512),
		}).Warn("received-invalid-data")
		c.JSON(http.StatusUnsupportedMediaType, respInvalidData)
		return
	}

	bot, ok := a.Bot(ev.BotID())
	if !ok {
		log.WithField("bot_id", ev.BotID()).Warn("callback-for-unknown-bot")
		c.JSON(http.StatusUnsupportedMediaType, respInvalidData)
		return
	}

	if bot.VerifyEvent() {
		sign := c.GetHeader(constants.HeaderBotSign)
		if err := bot.Verify(body, sign); err != nil {
			log.WithFields(logrus.Fields{
				"bot_id": bot.ID(),
				"sign":   sign,
				"error":  err,
			}).Warn("received-invalid-signature")
			c.JSON(http.StatusUnauthorized, respInvalidSignature)
			return
		}
	}

	bot.setRobot(ev.RobotInfo())

	ctx := logger.ContextWithFields(c.Request.Context(), logrus.Fields{
		"bot_id": bot.ID(),
		"event":  ev.Name(),
	})
	logger.FromContext(ctx).WithField("description", ev.Description()).Info("event-received")

	if bot.WaitUntilComplete() {
		bot.Dispatch(ctx, ev)
	} else {
		a.dispatchBackground(context.WithoutCancel(ctx), bot, ev)
	}

	c.JSON(http.StatusOK, respSuccess)
}

// dispatchBackground dispatches after the webhook has been answered
func (a *App) dispatchBackground(ctx context.Context, bot *Bot, ev event.Event) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(ctx).WithFields(logrus.Fields{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("background-dispatch-panic-recovered")
			}
		}()
		bot.Dispatch(ctx, ev)
	}()
}

// requestLogger assigns the request id and writes one access log line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(constants.HeaderRequestID, requestID)
		ctx := logger.ContextWithFields(c.Request.Context(), logrus.Fields{"request_id": requestID})
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		entry := logger.FromContext(ctx).WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"client_ip": c.ClientIP(),
			"latency":   time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("webhook-request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("webhook-request")
		default:
			entry.Info("webhook-request")
		}
	}
}

// recovery turns a panic in a route into a 500 response
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(r)
				}
				logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
					"panic": r,
					"path":  c.Request.URL.Path,
					"stack": string(debug.Stack()),
				}).Error("panic-recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, webhookResponse{
					Retcode: http.StatusInternalServerError,
					Msg:     "Internal error",
				})
			}
		}()
		c.Next()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
