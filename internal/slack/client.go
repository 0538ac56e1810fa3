package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Client posts messages back to Slack, either through a slash command's
// response_url or via chat.postMessage with the bot token.
type Client struct {
	botToken       string
	httpClient     *http.Client
	postMessageURL string
}

// NewClient builds a Slack poster. The bot token may be empty when only
// response_url delivery is used.
func NewClient(botToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		botToken:       botToken,
		httpClient:     &http.Client{Timeout: timeout},
		postMessageURL: defaultPostMessageURL,
	}
}

// Respond posts a message to a slash command's response_url. Slack accepts
// these for 30 minutes after the command, which covers the pipeline's
// progress checkpoints and the final answer.
func (c *Client) Respond(ctx context.Context, responseURL, text string) error {
	payload, err := json.Marshal(map[string]string{
		"response_type": "in_channel",
		"text":          text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to response_url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("response_url returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PostMessage sends a channel message through the Web API using the bot
// token. chat.postMessage reports API-level failures with HTTP 200 and
// ok=false, so both layers are checked.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	if c.botToken == "" {
		return fmt.Errorf("slack bot token not configured")
	}
	payload, err := json.Marshal(map[string]string{
		"channel": channelID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postMessageURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chat.postMessage returned %d", resp.StatusCode)
	}

	var apiResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decoding chat.postMessage response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("chat.postMessage failed: %s", apiResp.Error)
	}
	return nil
}
