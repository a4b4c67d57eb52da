package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/farhad-a/openclaw-mission-control/internal/config"
)

// Config is the per-board connection to an OpenClaw gateway. Boards without a
// configured gateway have no Config and notifications are skipped.
type Config struct {
	URL   string
	Token string
}

type Session struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

// Client speaks the OpenClaw gateway HTTP API. All calls are bounded by the
// configured request timeout; SendMessage additionally retries transient
// failures with exponential backoff, capped so a dead gateway cannot stall a
// dispatcher for long.
type Client struct {
	http           *http.Client
	sendMaxElapsed time.Duration
}

func NewClient(env *config.GatewayEnv) *Client {
	return &Client{
		http:           &http.Client{Timeout: env.RequestTimeout},
		sendMaxElapsed: env.SendMaxElapsed,
	}
}

func (c *Client) ListSessions(ctx context.Context, cfg *Config) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.do(ctx, cfg, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// EnsureSession creates the session if the gateway does not know it yet and
// returns the resulting entry either way.
func (c *Client) EnsureSession(ctx context.Context, cfg *Config, key, label string) (*Session, error) {
	body := map[string]string{"key": key, "label": label}
	var out struct {
		Session Session `json:"session"`
	}
	if err := c.do(ctx, cfg, http.MethodPost, "/api/sessions", body, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

func (c *Client) SendMessage(ctx context.Context, cfg *Config, sessionKey, content string) error {
	body := map[string]string{"content": content}
	path := fmt.Sprintf("/api/sessions/%s/messages", url.PathEscape(sessionKey))

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.sendMaxElapsed
	return backoff.Retry(func() error {
		return c.do(ctx, cfg, http.MethodPost, path, body, nil)
	}, backoff.WithContext(bo, ctx))
}

func (c *Client) do(ctx context.Context, cfg *Config, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("gateway: %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors will not heal on retry.
			return backoff.Permanent(err)
		}
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("gateway: decode response: %w", err)
		}
	}
	return nil
}
