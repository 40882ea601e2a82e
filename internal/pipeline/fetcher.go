package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/distortia/internal/segment"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxBytes     = 2 << 20
	userAgent           = "distortia/1.0"
)

// Fetcher downloads a web page so its text can be analyzed
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a fetcher. Zero values select defaults.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

// Document is fetched text ready for analysis
type Document struct {
	Text        string
	FinalURL    string
	ContentType string
}

// Fetch downloads rawURL. HTML is reduced to its visible text; plain text
// is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	if strings.Contains(contentType, "html") || segment.LooksLikeHTML(text) {
		text, err = segment.VisibleText(text)
		if err != nil {
			return nil, fmt.Errorf("extract text: %w", err)
		}
	}

	return &Document{
		Text:        text,
		FinalURL:    resp.Request.URL.String(),
		ContentType: contentType,
	}, nil
}
