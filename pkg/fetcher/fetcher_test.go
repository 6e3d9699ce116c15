package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func source(attempts ...models.Attempt) models.Source {
	return models.Source{Name: "test", Attempts: attempts}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sv-SE", r.Header.Get("Accept-Language"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h3>Måndag</h3>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), quietLogger())
	src := source(models.Attempt{URL: srv.URL})
	src.Headers = map[string]string{"Accept-Language": "sv-SE"}

	doc, err := f.Fetch(context.Background(), src, models.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, "<h3>Måndag</h3>", doc.Text())
	assert.Equal(t, "utf-8", doc.Encoding)
	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.Equal(t, models.FormatMarkup, doc.Format)
}

func TestFetch_DecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>M\xe5ndag: K\xf6ttbullar</p>"))
	}))
	defer srv.Close()

	doc, err := NewFetcher(nil, quietLogger()).Fetch(context.Background(), source(models.Attempt{URL: srv.URL}), models.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, "<p>Måndag: Köttbullar</p>", doc.Text())
	assert.Equal(t, "windows-1252", doc.Encoding)
}

func TestFetch_FeedAssumesUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"date":"2026-10-21","items":[]}]`))
	}))
	defer srv.Close()

	doc, err := NewFetcher(nil, quietLogger()).Fetch(context.Background(), source(models.Attempt{URL: srv.URL}), models.FormatFeed)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", doc.Encoding)
	assert.Equal(t, models.FormatFeed, doc.Format)
}

func TestFetch_FallsBackToNextAttempt(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer good.Close()

	doc, err := NewFetcher(nil, quietLogger()).Fetch(context.Background(),
		source(models.Attempt{URL: bad.URL}, models.Attempt{URL: good.URL}), models.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, good.URL, doc.URL)
}

func TestFetch_ThroughProxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "menu.example.invalid", r.URL.Host)
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer proxy.Close()

	doc, err := NewFetcher(nil, quietLogger()).Fetch(context.Background(),
		source(models.Attempt{URL: "http://menu.example.invalid/lunch", Proxy: proxy.URL}), models.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, "via proxy", doc.Text())
}

func TestFetch_AllAttemptsFail(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	start := time.Now()
	_, err := NewFetcher(nil, quietLogger()).Fetch(context.Background(), source(
		models.Attempt{URL: slow.URL, Timeout: 50 * time.Millisecond},
		models.Attempt{URL: down.URL},
	), models.FormatMarkup)

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestFetch_NoAttempts(t *testing.T) {
	_, err := NewFetcher(nil, quietLogger()).Fetch(context.Background(), source(), models.FormatMarkup)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetch_BodyOverLimitFailsAttempt(t *testing.T) {
	big := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("<p>Kalops</p>", 20)))
	}))
	defer big.Close()
	small := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>Onsdag</p>"))
	}))
	defer small.Close()

	f := NewFetcher(nil, quietLogger())
	f.maxBody = 64

	_, err := f.Fetch(context.Background(), source(models.Attempt{URL: big.URL}), models.FormatMarkup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	doc, err := f.Fetch(context.Background(), source(
		models.Attempt{URL: big.URL},
		models.Attempt{URL: small.URL},
	), models.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, "<p>Onsdag</p>", doc.Text())
}

func TestFetch_BodyAtLimitIsKept(t *testing.T) {
	body := strings.Repeat("a", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := NewFetcher(nil, quietLogger())
	f.maxBody = 64

	doc, err := f.Fetch(context.Background(), source(models.Attempt{URL: srv.URL}), models.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, body, doc.Text())
}
