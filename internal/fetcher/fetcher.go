package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/docmirror/internal/model"
	"github.com/nao1215/docmirror/internal/politeness"
)

// sniffLen is the number of bytes http.DetectContentType looks at.
const sniffLen = 512

// Fetcher performs single guarded GET requests.
// Every request waits on the politeness gate first; page requests are
// also checked against robots.txt. A URL is attempted exactly once.
type Fetcher struct {
	client      *http.Client
	guard       *politeness.Guard
	userAgent   string
	headers     map[string]string
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders adds extra request headers, e.g. from the config file.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = maps.Clone(headers)
	}
}

// WithMaxBodySize caps the number of body bytes read. Zero means no cap.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewClient returns an HTTP client with the given overall request timeout.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// New creates a Fetcher. guard must not be nil.
func New(client *http.Client, guard *politeness.Guard, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client: client,
		guard:  guard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves target and classifies the outcome.
// It never returns an error directly; failures are described by the
// result's Status and Err.
func (f *Fetcher) Fetch(ctx context.Context, target model.CrawlTarget) model.CrawlResult {
	result := model.CrawlResult{Target: target}

	if !f.guard.Allowed(ctx, target.URL) {
		result.Status = model.StatusRobotsDenied
		result.Err = ErrRobotsDenied
		result.FetchedAt = time.Now()
		f.logger.Info("robots denied", "url", target.URL)
		return result
	}

	if err := f.guard.Wait(ctx); err != nil {
		result.Status = model.StatusInterrupted
		result.Err = fmt.Errorf("%w: %w", ErrInterrupted, err)
		f.logger.Debug("fetch interrupted", "url", target.URL, "error", err)
		return result
	}
	defer f.guard.Done()

	f.logger.Debug("fetch attempted", "url", target.URL, "source", target.Source.String(), "depth", target.Depth)

	resp, elapsed, err := f.do(ctx, target.URL)
	result.FetchedAt = time.Now()
	result.Elapsed = elapsed
	if err != nil {
		result.Status = model.StatusNetworkError
		result.Err = err
		f.logger.Warn("fetch failed", "url", target.URL, "status", result.Status.String(), "error", err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Status = model.StatusHTTPError
		result.Err = &HTTPError{Code: resp.StatusCode}
		f.logger.Warn("fetch failed", "url", target.URL, "status", result.Status.String(), "code", resp.StatusCode)
		return result
	}

	header := resp.Header.Get("Content-Type")
	mediaType := parseMediaType(header)
	if mediaType != "" && !isHTML(mediaType) {
		result.Status = model.StatusSkippedNonHTML
		result.ContentType = mediaType
		result.Err = fmt.Errorf("%w: %s", ErrNotHTML, mediaType)
		f.logger.Info("fetch skipped", "url", target.URL, "status", result.Status.String(), "content_type", mediaType)
		return result
	}

	body, err := f.readBody(resp)
	if err != nil {
		result.Status = model.StatusNetworkError
		result.Err = err
		f.logger.Warn("fetch failed", "url", target.URL, "status", result.Status.String(), "error", err)
		return result
	}

	if mediaType == "" {
		mediaType = parseMediaType(http.DetectContentType(body[:min(len(body), sniffLen)]))
		if !isHTML(mediaType) {
			result.Status = model.StatusSkippedNonHTML
			result.ContentType = mediaType
			result.Err = fmt.Errorf("%w: %s", ErrNotHTML, mediaType)
			f.logger.Info("fetch skipped", "url", target.URL, "status", result.Status.String(), "content_type", mediaType)
			return result
		}
	}

	result.Status = model.StatusOK
	result.ContentType = mediaType
	result.HTML = toUTF8(body, header)
	f.logger.Info("fetch succeeded", "url", target.URL, "status", result.Status.String(),
		"code", resp.StatusCode, "bytes", len(result.HTML), "elapsed", elapsed)
	return result
}

// FetchRaw retrieves rawURL through the delay gate without robots or
// content-type checks. It is used for sitemap XML. A non-2xx response
// yields an *HTTPError along with the status code.
func (f *Fetcher) FetchRaw(ctx context.Context, rawURL string) ([]byte, int, error) {
	if err := f.guard.Wait(ctx); err != nil {
		return nil, 0, err
	}
	defer f.guard.Done()

	resp, _, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &HTTPError{Code: resp.StatusCode}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// do sends one GET. The caller has already passed the politeness gate
// and closes the body.
func (f *Fetcher) do(ctx context.Context, rawURL string) (*http.Response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, elapsed, ctxErr
		}
		return nil, elapsed, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return resp, elapsed, nil
}

// readBody decompresses and reads at most maxBodySize bytes.
// Larger bodies are truncated.
func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip decode: %w", ErrNetwork, err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	if f.maxBodySize > 0 {
		reader = io.LimitReader(reader, f.maxBodySize)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	if f.maxBodySize > 0 && int64(len(body)) == f.maxBodySize {
		f.logger.Debug("response body truncated", "url", resp.Request.URL.String(), "limit", f.maxBodySize)
	}
	return body, nil
}

// parseMediaType returns the lowercase media type of a Content-Type value.
func parseMediaType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Fall back to the part before any parameters.
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isHTML(mediaType string) bool {
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// toUTF8 decodes body using the charset from the Content-Type header,
// a <meta> declaration, or content sniffing. Undecodable input is
// returned unchanged.
func toUTF8(body []byte, contentType string) []byte {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}
