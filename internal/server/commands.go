package server

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/flightdeck/internal/pipeline"
	"github.com/mohammad-safakhou/flightdeck/internal/slack"
)

const ackMessage = "👋 Got your message! I am on it. This could take a couple of minutes... ⏱️"

// CommandHandler serves the Slack slash command webhook. Slack expects the
// ack within 3 seconds, so the handler replies immediately and runs the
// pipeline in the background, streaming progress to the command's
// response_url.
type CommandHandler struct {
	Pipeline *pipeline.Pipeline
	Poster   *slack.Client
	Verifier *slack.Verifier
	Command  string
	Timeout  time.Duration
	Logger   *log.Logger
}

// Register mounts the command route behind the signature middleware.
func (h *CommandHandler) Register(g *echo.Group) {
	g.POST("/command", h.handleCommand, h.verifySignature)
}

// verifySignature checks the Slack request signature against the raw body,
// then restores the body for the form parser.
func (h *CommandHandler) verifySignature(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.Verifier == nil || !h.Verifier.Configured() {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "slack signing secret not configured")
		}
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
		}
		c.Request().Body = io.NopCloser(bytes.NewReader(body))

		err = h.Verifier.Verify(body,
			c.Request().Header.Get("X-Slack-Request-Timestamp"),
			c.Request().Header.Get("X-Slack-Signature"))
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid request signature")
		}
		return next(c)
	}
}

func (h *CommandHandler) handleCommand(c echo.Context) error {
	text := strings.TrimSpace(c.FormValue("text"))
	userID := c.FormValue("user_id")
	channelID := c.FormValue("channel_id")
	responseURL := c.FormValue("response_url")

	h.Logger.Printf("received %s from %s in %s: %q", c.FormValue("command"), userID, channelID, text)

	if text == "" {
		usage := h.Command
		if usage == "" {
			usage = "/flights"
		}
		return c.JSON(http.StatusOK, map[string]string{
			"response_type": "ephemeral",
			"text":          "❌ Please provide a query. Usage: `" + usage + " <your flight query>`",
		})
	}

	q := pipeline.Query{Text: text, UserID: userID, ChannelID: channelID}
	go h.run(q, responseURL)

	return c.JSON(http.StatusOK, map[string]string{
		"response_type": "in_channel",
		"text":          ackMessage,
	})
}

// run executes the pipeline off the request goroutine and delivers progress
// plus the final answer.
func (h *CommandHandler) run(q pipeline.Query, responseURL string) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	deliver := func(msg string) {
		var err error
		if responseURL != "" {
			err = h.Poster.Respond(ctx, responseURL, msg)
		} else {
			err = h.Poster.PostMessage(ctx, q.ChannelID, msg)
		}
		if err != nil {
			h.Logger.Printf("delivering message failed: %v", err)
		}
	}

	answer := h.Pipeline.Process(ctx, q, deliver)
	deliver(answer)
}
