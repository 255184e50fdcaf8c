package http

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	streamBuffer      = 256
	heartbeatInterval = 15 * time.Second
)

// StreamLogs relays instance log lines as server-sent events until the client goes away
// or the instance stream ends.
func (h *ServerHandler) StreamLogs(c *fiber.Ctx) error {
	id := c.Params("id")
	lines := make(chan string, streamBuffer)
	quit := make(chan struct{})

	stream, err := h.runtime.FollowLogs(c.UserContext(), id, func(line string) {
		select {
		case lines <- line:
		case <-quit:
		}
	})
	if err != nil {
		return h.fail(c, err)
	}
	if stream == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Server has no runtime instance",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := h.logger.With().Str("server_id", id).Logger()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			close(quit)
			_ = stream.Close()
			logger.Debug().Msg("log stream closed")
		}()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case line := <-lines:
				writeEvent(w, line)
			case <-heartbeat.C:
				_, _ = w.WriteString(": ping\n\n")
			case <-stream.Done():
				// drain what the relay already delivered
				for {
					select {
					case line := <-lines:
						writeEvent(w, line)
					default:
						_, _ = w.WriteString("event: end\ndata: stream closed\n\n")
						_ = w.Flush()
						return
					}
				}
			}
			if err := w.Flush(); err != nil {
				// client disconnected
				return
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, line string) {
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.ReplaceAll(line, "\n", " "))
}
