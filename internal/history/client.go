// Package history talks to the chat REST API: paged history, deletes and the
// connection list.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/matchchat/internal/logging"
	"github.com/tOgg1/matchchat/internal/models"
)

// ErrUnauthorized is matched by StatusError for 401 and 403 responses.
var ErrUnauthorized = errors.New("history: unauthorized")

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("history: page must be >= 1")

const maxErrorBody = 512

// StatusError carries a non-2xx HTTP response.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("history: %s %s: status %d", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is maps auth failures onto ErrUnauthorized.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// Fetcher is the history surface the chat session depends on.
type Fetcher interface {
	FetchPage(ctx context.Context, peerID string, page int) ([]models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	Connections(ctx context.Context) ([]models.Peer, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Jar        http.CookieJar
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client is the HTTP implementation of Fetcher. It holds no cursor state.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger zerolog.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("history: invalid base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout, Jar: cfg.Jar}
	}

	logger := logging.Component("history")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "history").Logger()
	}

	return &Client{base: base, http: httpClient, logger: logger}, nil
}

// NewSessionJar returns a cookie jar seeded with the session cookie for baseURL.
// An empty value yields an empty jar.
func NewSessionJar(baseURL, name, value string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(value) == "" {
		return jar, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("history: parse base url: %w", err)
	}
	if name == "" {
		name = "token"
	}
	root := *u
	root.Path = "/"
	jar.SetCookies(&root, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
	return jar, nil
}

type pageResponse struct {
	Messages []models.WireMessage `json:"messages"`
}

// FetchPage returns page n (1 = newest) of the conversation with peerID,
// oldest-first. An empty page yields an empty slice.
func (c *Client) FetchPage(ctx context.Context, peerID string, page int) ([]models.Message, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return nil, fmt.Errorf("history: peer id required")
	}
	if page < 1 {
		return nil, ErrInvalidPage
	}

	query := url.Values{"page": []string{strconv.Itoa(page)}}
	var resp pageResponse
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(peerID), query, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(resp.Messages))
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		out = append(out, resp.Messages[i].ToMessage())
	}
	c.logger.Debug().Str("peer", peerID).Int("page", page).Int("count", len(out)).Msg("fetched history page")
	return out, nil
}

// DeleteMessage deletes a message by server id.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("history: message id required")
	}
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(id), nil, nil)
}

type connectionsResponse struct {
	Connection  []models.Peer `json:"connection"`
	Connections []models.Peer `json:"connections"`
	Data        []models.Peer `json:"data"`
}

// Connections lists the peers the current identity may chat with.
func (c *Client) Connections(ctx context.Context) ([]models.Peer, error) {
	var resp connectionsResponse
	if err := c.do(ctx, http.MethodGet, "/user/connections", nil, &resp); err != nil {
		return nil, err
	}
	switch {
	case resp.Connection != nil:
		return resp.Connection, nil
	case resp.Connections != nil:
		return resp.Connections, nil
	case resp.Data != nil:
		return resp.Data, nil
	}
	return []models.Peer{}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := *c.base
	target.Path = strings.TrimRight(c.base.Path, "/") + path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return fmt.Errorf("history: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("history: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("url", logging.RedactURL(target.String())).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   logging.Redact(strings.TrimSpace(string(body))),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("history: decode %s %s: %w", method, path, err)
	}
	return nil
}

var _ Fetcher = (*Client)(nil)
