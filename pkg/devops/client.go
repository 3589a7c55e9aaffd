// Package devops is a minimal Azure DevOps work item tracking client:
// WIQL id queries, batched detail fetches, and per-item comments.
package devops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/warden/pkg/formatting"
)

// MaxBatchSize is the largest number of ids a single Details call sends.
const MaxBatchSize = 200

const maxErrorBody = 512

// Client fetches work items from Azure DevOps.
type Client interface {
	// QueryIDs returns the ids of every work item in project tagged with
	// tagFilter, newest first.
	QueryIDs(ctx context.Context, tagFilter, project string) ([]int, error)
	// Details returns the full work items for ids. Only the first
	// MaxBatchSize ids are requested; the rest are ignored.
	Details(ctx context.Context, ids []int) ([]WorkItem, error)
	// Comments returns the text of every comment on the work item joined
	// with single spaces. Remote failures are logged and yield "".
	Comments(ctx context.Context, id int) (string, error)
}

type client struct {
	orgURL          string
	baseURL         string
	apiVersion      string
	commentsVersion string
	http            *http.Client
	auth            authorizer
	limiter         *rate.Limiter
	maxRetries      int
	backoff         time.Duration
	maxResponse     int64
	logger          *slog.Logger
}

// Option customizes a client created by New.
type Option func(*client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// New creates a Client for the organization and project in cfg.
// cfg must already be finalized.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (Client, error) {
	var auth authorizer
	switch cfg.AuthType {
	case AuthAzure:
		ta, err := newTokenAuth()
		if err != nil {
			return nil, err
		}
		auth = ta
	default:
		auth = newPATAuth(cfg.PAT)
	}

	c := &client{
		orgURL:          cfg.OrgURL,
		baseURL:         fmt.Sprintf("%s/%s/_apis/wit", cfg.OrgURL, url.PathEscape(cfg.Project)),
		apiVersion:      cfg.APIVersion,
		commentsVersion: cfg.CommentsAPIVersion,
		http:            &http.Client{Timeout: cfg.TimeoutDuration()},
		auth:            auth,
		maxRetries:      cfg.MaxRetries,
		backoff:         cfg.RetryBackoffDuration(),
		maxResponse:     cfg.MaxResponseBytes(),
		logger:          logger.With("system", "devops"),
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) QueryIDs(ctx context.Context, tagFilter, project string) ([]int, error) {
	body, err := json.Marshal(wiqlRequest{Query: wiqlQuery(tagFilter, project)})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s/_apis/wit/wiql?api-version=%s", c.orgURL, url.PathEscape(project), c.apiVersion)
	status, data, err := c.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	if !success(status) {
		return nil, &RemoteQueryError{Op: "query ids", StatusCode: status, Body: formatting.Excerpt(string(data), maxErrorBody)}
	}

	var resp wiqlResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode wiql response: %w", err)
	}

	ids := make([]int, len(resp.WorkItems))
	for i, ref := range resp.WorkItems {
		ids[i] = ref.ID
	}
	return ids, nil
}

func (c *client) Details(ctx context.Context, ids []int) ([]WorkItem, error) {
	if len(ids) == 0 {
		return []WorkItem{}, nil
	}
	if len(ids) > MaxBatchSize {
		c.logger.Warn("details batch truncated", "requested", len(ids), "sent", MaxBatchSize)
		ids = ids[:MaxBatchSize]
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	u := fmt.Sprintf("%s/workitems?ids=%s&$expand=all&api-version=%s", c.baseURL, strings.Join(parts, ","), c.apiVersion)
	status, data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch details: %w", err)
	}
	if !success(status) {
		return nil, &RemoteQueryError{Op: "fetch details", StatusCode: status, Body: formatting.Excerpt(string(data), maxErrorBody)}
	}

	var resp workItemsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode details response: %w", err)
	}
	if resp.Value == nil {
		return []WorkItem{}, nil
	}
	return resp.Value, nil
}

func (c *client) Comments(ctx context.Context, id int) (string, error) {
	u := fmt.Sprintf("%s/workitems/%d/comments?api-version=%s", c.baseURL, id, c.commentsVersion)
	status, data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("comment fetch failed", "work_item", id, "error", err)
		return "", nil
	}
	if !success(status) {
		c.logger.Warn("comment fetch failed", "work_item", id, "status", status)
		return "", nil
	}

	var resp commentsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("comment response malformed", "work_item", id, "error", err)
		return "", nil
	}

	texts := make([]string, len(resp.Comments))
	for i, cm := range resp.Comments {
		texts[i] = cm.Text
	}
	return strings.Join(texts, " "), nil
}

type response struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

// do sends the request, retrying transport failures, 429, and 5xx
// responses with exponential backoff. The final status and body are
// returned for the caller to interpret.
func (c *client) do(ctx context.Context, method, u string, body []byte) (int, []byte, error) {
	var (
		lastErr error
		wait    time.Duration
	)

	for attempt := range c.maxRetries {
		if attempt > 0 {
			delay := max(c.backoff*time.Duration(1<<(attempt-1)), wait)
			if err := sleep(ctx, delay); err != nil {
				return 0, nil, err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return 0, nil, err
			}
		}

		resp, err := c.send(ctx, method, u, body)
		switch {
		case err != nil:
			if ctx.Err() != nil || errors.Is(err, ErrAuth) || errors.Is(err, ErrResponseTooLarge) {
				return 0, nil, err
			}
			lastErr, wait = err, 0
		case retryable(resp.status) && attempt < c.maxRetries-1:
			lastErr, wait = fmt.Errorf("remote status %d", resp.status), resp.retryAfter
		default:
			return resp.status, resp.body, nil
		}

		c.logger.Debug("request retry", "method", method, "attempt", attempt+1, "error", lastErr)
	}

	return 0, nil, lastErr
}

func (c *client) send(ctx context.Context, method, u string, body []byte) (*response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if err := c.auth.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxResponse {
		return nil, fmt.Errorf("%w (%s)", ErrResponseTooLarge, formatting.FormatBytes(c.maxResponse, 0))
	}

	out := &response{status: resp.StatusCode, body: data}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		out.retryAfter = time.Duration(secs) * time.Second
	}
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// wiqlQuery builds the id query. Single quotes are doubled so inputs
// cannot terminate the WIQL string literals.
func wiqlQuery(tagFilter, project string) string {
	esc := func(s string) string { return strings.ReplaceAll(s, "'", "''") }
	return fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' AND [System.WorkItemType] <> '' AND [System.Tags] CONTAINS '%s' ORDER BY [System.Id] DESC",
		esc(project), esc(tagFilter),
	)
}
