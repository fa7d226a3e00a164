package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/events"
)

const liveKeepAlive = 25 * time.Second

// LiveHandler streams refetch hints as server-sent events.
type LiveHandler struct {
	hub    *events.LiveHub
	logger *zap.Logger
}

// NewLiveHandler constructs handler.
func NewLiveHandler(hub *events.LiveHub, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, logger: logger}
}

// Stream GET /live. The stream ends when a write fails, i.e. the client left.
func (h *LiveHandler) Stream(c *fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	updates, release := h.hub.Subscribe()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer release()
		ticker := time.NewTicker(liveKeepAlive)
		defer ticker.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				payload, err := json.Marshal(update)
				if err != nil {
					h.logger.Warn("encode live update", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", update.Type, payload)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
