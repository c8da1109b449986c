// Package handlers provides the HTTP endpoints for webhook mode.
//
// The webhook endpoint is transport-thin: it decodes the Telegram update,
// acknowledges immediately, and hands processing to the dispatcher in the
// background. Telegram retries deliveries that do not get a 2xx quickly, so
// slow work (report sends with pacing delays) must never run on the request
// path.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dedupe-bot/internal/bot"
	"github.com/tbourn/go-dedupe-bot/internal/telegram"
)

// updateTimeout bounds background processing of one update.
const updateTimeout = 5 * time.Minute

// Handlers groups the webhook HTTP endpoints.
type Handlers struct {
	dispatcher *bot.Dispatcher
}

// New constructs a Handlers instance bound to the given dispatcher.
func New(d *bot.Dispatcher) *Handlers {
	return &Handlers{dispatcher: d}
}

// Webhook handles POST /webhook.
//
// Responses:
//   - 200 {"status":"ok"} for any well-formed update (processing is async)
//   - 400 for a body that is not a Telegram update
func (h *Handlers) Webhook(c *gin.Context) {
	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "invalid update payload",
		})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()
		h.dispatcher.Dispatch(ctx, upd)
	}()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
