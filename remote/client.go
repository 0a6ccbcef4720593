// Package remote is the HTTP client of the campus REST API. It replays
// queued actions and fetches the lists backing the read caches.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/queue"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TokenSource returns the bearer token for a request. An empty token sends
// no Authorization header.
type TokenSource func(ctx context.Context) (string, error)

// Option configures optional client collaborators
type Option func(c *Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource authenticates requests with tokens from ts
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// Client talks to the campus API
type Client struct {
	logger    logger.Logger
	http      *http.Client
	base      *url.URL
	limiter   *rate.Limiter
	tokens    TokenSource
	userAgent string
}

// New creates a Client
func New(log logger.Logger, cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))

	c := &Client{
		logger:    log,
		http:      &http.Client{Timeout: cfg.Timeout},
		base:      base,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		userAgent: cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Replay performs the remote mutation for action. It reports true on a 2xx
// response and false when the API rejected the request permanently (a 4xx
// other than 408 and 429). Transport failures and other statuses are
// returned as errors.
func (c *Client) Replay(ctx context.Context, action queue.PendingAction) (bool, error) {
	method, path, body, err := route(action)
	if err != nil {
		return false, err
	}

	err = c.do(ctx, method, path, body, nil)
	if err == nil {
		return true, nil
	}

	var se *StatusError
	if errors.As(err, &se) && se.Permanent() {
		c.logger.Warn("action rejected by api",
			zap.String("action_id", action.ID),
			zap.Int("status", se.Code),
		)
		return false, nil
	}
	return false, err
}

// route maps an action to its API request
func route(action queue.PendingAction) (method, path string, body any, err error) {
	switch p := action.Payload.(type) {
	case queue.CreateNewsPayload:
		return http.MethodPost, "/news", p, nil
	case queue.UpdateClubPayload:
		return http.MethodPost, "/clubs/" + url.PathEscape(p.ClubID) + "/updates", p, nil
	case queue.SubscribeClubPayload:
		return http.MethodPost, "/clubs/" + url.PathEscape(p.ClubID) + "/subscribe", nil, nil
	case queue.UnsubscribeClubPayload:
		return http.MethodDelete, "/clubs/" + url.PathEscape(p.ClubID) + "/subscribe", nil, nil
	default:
		return "", "", nil, ErrUnsupportedAction(string(action.Type))
	}
}

// FetchNews lists campus news
func (c *Client) FetchNews(ctx context.Context) ([]model.NewsItem, error) {
	var items []model.NewsItem
	if err := c.do(ctx, http.MethodGet, "/news", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchClubs lists the clubs the user is subscribed to
func (c *Client) FetchClubs(ctx context.Context) ([]model.Club, error) {
	var clubs []model.Club
	if err := c.do(ctx, http.MethodGet, "/clubs", nil, &clubs); err != nil {
		return nil, err
	}
	subscribed := make([]model.Club, 0, len(clubs))
	for _, club := range clubs {
		if club.IsSubscribed {
			subscribed = append(subscribed, club)
		}
	}
	return subscribed, nil
}

// FetchClubUpdates lists a club's feed
func (c *Client) FetchClubUpdates(ctx context.Context, clubID string) ([]model.Update, error) {
	var updates []model.Update
	if err := c.do(ctx, http.MethodGet, "/clubs/"+url.PathEscape(clubID)+"/updates", nil, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return ErrRequest(method, path, err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return ErrRequest(method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return ErrRequest(method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return ErrRequest(method, path, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return ErrRequest(method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Warn("api returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrDecode(path, err)
	}
	return nil
}
