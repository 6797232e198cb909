// Package landing pulls readable text from an ad's destination page.
package landing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"adspy/common"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxChars = 2000
	maxPageBytes    = 5 << 20
)

// Extractor fetches landing pages and keeps their text for the run.
// Many ads share a destination, so results are memoized by URL.
type Extractor struct {
	client   *http.Client
	timeout  time.Duration
	maxChars int
	logger   *zap.Logger

	mu    sync.Mutex
	pages map[string]string
}

func NewExtractor(client *http.Client, timeout time.Duration, logger *zap.Logger) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		client:   client,
		timeout:  timeout,
		maxChars: defaultMaxChars,
		logger:   logger,
		pages:    make(map[string]string),
	}
}

// Excerpt returns the page title followed by its main text, whitespace
// collapsed and cut to a prompt-friendly length.
func (e *Extractor) Excerpt(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", fmt.Errorf("landing page URL is empty")
	}

	e.mu.Lock()
	text, ok := e.pages[pageURL]
	e.mu.Unlock()
	if ok {
		return text, nil
	}

	article, err := e.extract(ctx, pageURL)
	if err != nil {
		return "", err
	}

	text = collapse(article.TextContent)
	if article.Title != "" {
		text = strings.TrimSpace(article.Title) + "\n" + text
	}
	text = common.Truncate(text, e.maxChars)

	e.mu.Lock()
	e.pages[pageURL] = text
	e.mu.Unlock()

	e.logger.Debug("Extracted landing page", zap.String("url", pageURL), zap.Int("chars", len(text)))
	return text, nil
}

func (e *Extractor) extract(ctx context.Context, pageURL string) (readability.Article, error) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("invalid landing page URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return readability.Article{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; adspy/1.0)")

	resp, err := e.client.Do(req)
	if err != nil {
		return readability.Article{}, fmt.Errorf("fetch landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readability.Article{}, fmt.Errorf("fetch landing page: status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return readability.Article{}, fmt.Errorf("readability extraction failed: %w", err)
	}
	return article, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
