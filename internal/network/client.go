// Package network talks to the shared-space service: a websocket entity
// subscription inbound and a REST bot API outbound.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/vrc3d/internal/game/entity"
	"github.com/Faultbox/vrc3d/internal/logger"
)

// ErrNoBot is returned for bot actions before the bot exists.
var ErrNoBot = errors.New("bot not created yet")

// HTTPError is a non-2xx API response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Body)
}

// Credentials authenticate API and cable requests.
type Credentials struct {
	AppID     string
	AppSecret string
}

func (c Credentials) query() url.Values {
	q := url.Values{}
	if c.AppID != "" {
		q.Set("app_id", c.AppID)
	}
	if c.AppSecret != "" {
		q.Set("app_secret", c.AppSecret)
	}
	return q
}

// APIURL returns the REST base for host ("https://host/api/").
func APIURL(host string, secure bool) string {
	scheme := "https"
	if !secure {
		scheme = "http"
	}
	return scheme + "://" + host + "/api/"
}

// CableURL returns the websocket endpoint for host with credentials attached.
func CableURL(host string, secure bool, creds Credentials) string {
	scheme := "wss"
	if !secure {
		scheme = "ws"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/cable", RawQuery: creds.query().Encode()}
	return u.String()
}

// BotParams are the writable bot fields. X and Y are always sent.
type BotParams struct {
	Name      string `json:"name,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction,omitempty"`
}

// WallParams are the writable wall fields.
type WallParams struct {
	Color    string `json:"color,omitempty"`
	WallText string `json:"wall_text,omitempty"`
}

// Client is a REST API client. It is safe for concurrent use.
type Client struct {
	base  *url.URL
	creds Credentials
	http  *http.Client
	log   *zap.Logger
}

// NewClient creates an API client rooted at baseURL (see APIURL).
func NewClient(baseURL string, creds Credentials, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base:  base,
		creds: creds,
		http:  httpClient,
		log:   logger.Named("network"),
	}, nil
}

// Bots lists the app's bots.
func (c *Client) Bots(ctx context.Context) ([]entity.Bot, error) {
	var bots []entity.Bot
	if err := c.do(ctx, http.MethodGet, "bots", nil, &bots); err != nil {
		return nil, err
	}
	return bots, nil
}

// CreateBot creates a bot.
func (c *Client) CreateBot(ctx context.Context, p BotParams) (entity.Bot, error) {
	var bot entity.Bot
	err := c.do(ctx, http.MethodPost, "bots", map[string]any{"bot": p}, &bot)
	return bot, err
}

// UpdateBot moves or renames a bot.
func (c *Client) UpdateBot(ctx context.Context, id entity.ID, p BotParams) error {
	return c.do(ctx, http.MethodPatch, "bots/"+strconv.FormatInt(int64(id), 10), map[string]any{"bot": p}, nil)
}

// CreateWall places a wall in front of the bot.
func (c *Client) CreateWall(ctx context.Context, botID entity.ID, p WallParams) error {
	return c.do(ctx, http.MethodPost, "walls", map[string]any{"bot_id": botID, "wall": p}, nil)
}

// UpdateWall recolors the wall in front of the bot.
func (c *Client) UpdateWall(ctx context.Context, botID entity.ID, p WallParams) error {
	return c.do(ctx, http.MethodPatch, "walls", map[string]any{"bot_id": botID, "wall": p}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	u.RawQuery = c.creds.query().Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
