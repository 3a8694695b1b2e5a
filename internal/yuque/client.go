// Package yuque is a minimal Yuque v2 API client covering the TOC and
// document endpoints used by sync.
package yuque

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/yuhex/internal/apperr"
	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/toc"
)

// DefaultBaseURL is the public Yuque API endpoint.
const DefaultBaseURL = "https://www.yuque.com/api/v2/"

// Options configure a Client.
type Options struct {
	BaseURL   string
	Token     string
	Login     string
	Repo      string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables pacing
}

// Client is a Yuque API client bound to one login/repo pair.
type Client struct {
	opts       Options
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu     sync.Mutex
	userID ID
	repoID ID
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new Yuque API client.
func NewClient(opts Options, options ...Option) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	c := &Client{
		opts:       opts,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     slog.Default(),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	for _, o := range options {
		o(c)
	}
	c.logger.Info("yuque: client created",
		slog.String("base_url", c.baseURL),
		slog.String("login", opts.Login),
		slog.String("repo", opts.Repo))
	return c
}

// get performs a GET against api (relative to the base URL) and decodes the
// data field of the response into result.
func (c *Client) get(ctx context.Context, api string, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(api, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "yuhex")
	req.Header.Set("X-Auth-Token", c.opts.Token)

	c.logger.Debug("yuque: request", slog.String("url", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", api, apperr.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// UserID returns the id of the token owner, cached after the first call.
func (c *Client) UserID(ctx context.Context) (ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userIDLocked(ctx)
}

func (c *Client) userIDLocked(ctx context.Context) (ID, error) {
	if c.userID != "" {
		return c.userID, nil
	}
	var resp envelope[User]
	if err := c.get(ctx, "user", &resp); err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("get user: empty id, check the token: %w", apperr.ErrInvalidData)
	}
	c.userID = resp.Data.ID
	return c.userID, nil
}

// RepoID resolves the configured login/repo to a repository id once and
// caches it for the rest of the run.
func (c *Client) RepoID(ctx context.Context) (ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repoID != "" {
		return c.repoID, nil
	}
	uid, err := c.userIDLocked(ctx)
	if err != nil {
		return "", err
	}
	var resp envelope[[]Repo]
	if err := c.get(ctx, "users/"+url.PathEscape(string(uid))+"/repos", &resp); err != nil {
		return "", fmt.Errorf("list repos: %w", err)
	}
	namespace := c.opts.Login + "/" + c.opts.Repo
	for _, r := range resp.Data {
		if r.Namespace == namespace || (r.Name == c.opts.Repo && r.User.Login == c.opts.Login) || (r.Slug == c.opts.Repo && r.User.Login == c.opts.Login) {
			c.repoID = r.ID
			c.logger.Info("yuque: repo resolved", slog.String("namespace", namespace), slog.String("repo_id", string(r.ID)))
			return c.repoID, nil
		}
	}
	return "", fmt.Errorf("repo %s: %w", namespace, apperr.ErrNotFound)
}

// FetchHierarchy returns the repository TOC.
func (c *Client) FetchHierarchy(ctx context.Context) ([]toc.Item, error) {
	repoID, err := c.RepoID(ctx)
	if err != nil {
		return nil, err
	}
	var resp envelope[[]TocEntry]
	if err := c.get(ctx, "repos/"+url.PathEscape(string(repoID))+"/toc", &resp); err != nil {
		return nil, fmt.Errorf("get toc: %w", err)
	}
	items := make([]toc.Item, 0, len(resp.Data))
	for _, e := range resp.Data {
		items = append(items, e.item())
	}
	return items, nil
}

// FetchDocument returns the full content of a document.
func (c *Client) FetchDocument(ctx context.Context, docID string) (*models.Document, error) {
	repoID, err := c.RepoID(ctx)
	if err != nil {
		return nil, err
	}
	var resp envelope[Doc]
	api := "repos/" + url.PathEscape(string(repoID)) + "/docs/" + url.PathEscape(docID)
	if err := c.get(ctx, api, &resp); err != nil {
		return nil, fmt.Errorf("get doc %s: %w", docID, err)
	}
	doc := resp.Data.document()
	if doc.ID == "" {
		doc.ID = docID
	}
	return doc, nil
}
