package adlibrary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"adspy/common"
	"adspy/config"
)

// Apify runs the Facebook Ad Library scraper actor synchronously and
// returns its dataset items.
// Endpoint: POST {base}/acts/{actor}/run-sync-get-dataset-items
// Request: {"urls": [{"url": "..."}], "limitPerSource": 20}
// Response: [{...ad...}, ...]
type Apify struct {
	token   string
	baseURL string
	actorID string
	client  *http.Client
	retry   common.Retry
	timeout time.Duration
	logger  *zap.Logger
}

type ApifyOption func(*Apify)

func WithBaseURL(u string) ApifyOption {
	return func(a *Apify) { a.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) ApifyOption {
	return func(a *Apify) { a.client = c }
}

func WithRetry(r common.Retry) ApifyOption {
	return func(a *Apify) { a.retry = r }
}

func NewApify(token string, logger *zap.Logger, opts ...ApifyOption) *Apify {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Apify{
		token:   token,
		baseURL: config.ApifyBaseURL,
		actorID: config.AdLibraryActorID,
		client:  http.DefaultClient,
		retry:   common.Retry{MaxAttempts: config.DefaultMaxRetries, BaseDelay: config.RetryBaseDelay, Logger: logger},
		timeout: config.ApifyRunTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type actorInput struct {
	URLs           []actorURL `json:"urls"`
	LimitPerSource int        `json:"limitPerSource"`
}

type actorURL struct {
	URL string `json:"url"`
}

func (a *Apify) Fetch(ctx context.Context, q Query) ([]json.RawMessage, error) {
	q = q.withDefaults()
	target := TargetURL(q)

	body, err := json.Marshal(actorInput{
		URLs:           []actorURL{{URL: target}},
		LimitPerSource: q.Limit,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("Starting ad library scrape",
		zap.String("search_term", q.SearchTerm),
		zap.String("country", q.Country),
		zap.Int("limit", q.Limit),
		zap.String("url", target))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var items []json.RawMessage
	err = a.retry.Do(ctx, "apify actor run", func(ctx context.Context) error {
		var callErr error
		items, callErr = a.run(ctx, body)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("ad library scrape: %w", err)
	}

	if len(items) > q.Limit {
		a.logger.Info("Reached result limit", zap.Int("returned", len(items)), zap.Int("limit", q.Limit))
	}
	return capItems(items, q.Limit), nil
}

func (a *Apify) run(ctx context.Context, body []byte) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?format=json&clean=true",
		a.baseURL, url.PathEscape(a.actorID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: apify transport: %v", common.ErrRetryable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read apify response: %v", common.ErrRetryable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if common.IsRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: apify status %d", common.ErrRetryable, resp.StatusCode)
		}
		return nil, fmt.Errorf("apify error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode apify dataset: %w", err)
	}
	return items, nil
}
