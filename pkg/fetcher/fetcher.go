// Package fetcher retrieves menu documents. A source is an ordered list of
// transport attempts (direct, through a proxy, an alternate URL), each
// with its own timeout; the first 2xx response wins.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/lunch-bot/models"
	"golang.org/x/net/html/charset"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) lunch-bot/1.0"
	DefaultTimeout   = 10 * time.Second
	DefaultMaxBody   = 5 << 20
)

var (
	// ErrFetchFailed wraps every error Fetch returns.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrBodyTooLarge fails an attempt whose body exceeds the size limit;
	// a truncated page would parse into a partial menu.
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError is a non-2xx response from one attempt.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status code %d", e.URL, e.StatusCode)
}

type Fetcher struct {
	client  *http.Client
	logger  *slog.Logger
	maxBody int64
}

// NewFetcher returns a Fetcher. A nil client uses a fresh http.Client.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger, maxBody: DefaultMaxBody}
}

// Fetch tries each attempt of src in order. It never retries an attempt;
// fallback policy is the attempt list itself.
func (f *Fetcher) Fetch(ctx context.Context, src models.Source, format models.Format) (*models.Document, error) {
	if len(src.Attempts) == 0 {
		return nil, fmt.Errorf("%w: %s: no attempts configured", ErrFetchFailed, src.Name)
	}

	var errs []error
	for i, attempt := range src.Attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		doc, err := f.try(ctx, attempt, src.Headers, format)
		if err == nil {
			f.logger.Debug("fetched", "source", src.Name, "url", attempt.URL, "attempt", i+1, "encoding", doc.Encoding, "bytes", len(doc.Content))
			return doc, nil
		}
		f.logger.Warn("fetch attempt failed", "source", src.Name, "url", attempt.URL, "attempt", i+1, "proxy", attempt.Proxy != "", "error", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, src.Name, errors.Join(errs...))
}

func (f *Fetcher) try(ctx context.Context, attempt models.Attempt, headers map[string]string, format models.Format) (*models.Document, error) {
	timeout := attempt.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := f.clientFor(attempt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attempt.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: attempt.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s: more than %d bytes", ErrBodyTooLarge, attempt.URL, f.maxBody)
	}

	contentType := resp.Header.Get("Content-Type")
	content, encoding, err := decodeBody(body, contentType, format)
	if err != nil {
		return nil, err
	}

	return &models.Document{
		URL:         attempt.URL,
		Content:     content,
		Encoding:    encoding,
		ContentType: contentType,
		Format:      format,
		StatusCode:  resp.StatusCode,
	}, nil
}

func (f *Fetcher) clientFor(attempt models.Attempt) (*http.Client, error) {
	if attempt.Proxy == "" {
		return f.client, nil
	}
	proxyURL, err := url.Parse(attempt.Proxy)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", attempt.Proxy, err)
	}

	var transport *http.Transport
	if t, ok := f.client.Transport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.Proxy = http.ProxyURL(proxyURL)

	return &http.Client{
		Transport:     transport,
		CheckRedirect: f.client.CheckRedirect,
		Jar:           f.client.Jar,
	}, nil
}

// decodeBody converts body to UTF-8. Markup uses the declared charset or
// the <meta> prescan; feeds are UTF-8 unless a charset is declared.
func decodeBody(body []byte, contentType string, format models.Format) ([]byte, string, error) {
	if format == models.FormatFeed && !strings.Contains(strings.ToLower(contentType), "charset=") {
		return body, "utf-8", nil
	}

	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), name, nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, name, fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return decoded, name, nil
}
