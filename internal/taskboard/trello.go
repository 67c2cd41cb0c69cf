// Package taskboard files request cards on a Trello list.
package taskboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultAPIBase = "https://api.trello.com/1"

// Config holds the Trello credentials and target list.
type Config struct {
	APIBase           string
	Key               string
	Token             string
	ListID            string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Card is the card to create.
type Card struct {
	Name        string
	Description string
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("trello: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client creates cards. One CreateCard call issues exactly one POST; failures are not retried.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Key == "" || cfg.Token == "" || cfg.ListID == "" {
		return nil, errors.New("trello: key, token and list id are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// CreateCard posts card to the configured list. The response body is not inspected beyond the status.
func (c *Client) CreateCard(ctx context.Context, card Card) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("trello: rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("key", c.cfg.Key)
	q.Set("token", c.cfg.Token)
	q.Set("idList", c.cfg.ListID)
	q.Set("name", card.Name)
	q.Set("desc", card.Description)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+"/cards?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("trello: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trello: create card: %w", redact(err, c.cfg))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// redact strips credentials from transport errors, which embed the request URL.
func redact(err error, cfg Config) error {
	msg := err.Error()
	for _, secret := range []string{cfg.Key, cfg.Token} {
		if secret != "" {
			msg = strings.ReplaceAll(msg, url.QueryEscape(secret), "REDACTED")
			msg = strings.ReplaceAll(msg, secret, "REDACTED")
		}
	}
	if msg == err.Error() {
		return err
	}
	return errors.New(msg)
}
