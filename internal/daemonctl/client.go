package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mediasolver/internal/api"
	"mediasolver/internal/config"
	"mediasolver/internal/jobstate"
)

// ErrDaemonNotRunning indicates nothing answers on the daemon's API address.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient targets the API address configured in cfg. Wildcard binds are
// reached through loopback.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: "http://" + dialAddress(cfg.Paths.APIBind),
		token:   cfg.Paths.APIToken,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// NewClientForAddress targets addr directly.
func NewClientForAddress(addr, token string) *Client {
	return &Client{
		baseURL: "http://" + dialAddress(addr),
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func dialAddress(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// Healthy reports whether the daemon answers its liveness probe.
func (c *Client) Healthy(ctx context.Context) bool {
	var out map[string]bool
	return c.get(ctx, "/healthz", &out) == nil && out["ok"]
}

// Progress returns the daemon's current job record.
func (c *Client) Progress(ctx context.Context) (jobstate.Record, error) {
	var rec jobstate.Record
	err := c.get(ctx, "/api/progress", &rec)
	return rec, err
}

// HostStatus returns the daemon's view of the editing host.
func (c *Client) HostStatus(ctx context.Context) (api.HostStatus, error) {
	var status api.HostStatus
	err := c.get(ctx, "/api/hoststatus", &status)
	return status, err
}

// History returns up to limit recent runs recorded by the daemon.
func (c *Client) History(ctx context.Context, limit int) (api.HistoryResponse, error) {
	var resp api.HistoryResponse
	err := c.get(ctx, "/api/history?limit="+strconv.Itoa(limit), &resp)
	return resp, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return ErrDaemonNotRunning
		}
		return fmt.Errorf("daemon request %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read daemon response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var failure api.ErrorResponse
		if json.Unmarshal(body, &failure) == nil && failure.Error != "" {
			return fmt.Errorf("daemon %s: %s (%d)", path, failure.Error, resp.StatusCode)
		}
		return fmt.Errorf("daemon %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}
