package lunch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/lunch-bot/models"
	"github.com/dtnitsch/lunch-bot/pkg/db"
	"github.com/dtnitsch/lunch-bot/pkg/report"
	"github.com/dtnitsch/lunch-bot/pkg/storage"
)

type stubFetcher struct {
	calls atomic.Int32
	docs  map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, src models.Source, format models.Format) (*models.Document, error) {
	f.calls.Add(1)
	body, ok := f.docs[src.Name]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &models.Document{URL: src.Attempts[0].URL, Content: []byte(body), Format: format}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(t *testing.T, value string) func() time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	require.NoError(t, err)
	return func() time.Time { return ts }
}

func newTestRunner(t *testing.T, f *stubFetcher, n *recordingNotifier, now string) (*Runner, *db.DB) {
	t.Helper()
	cfg := &models.Config{
		Locale: "en",
		Restaurants: []models.Restaurant{
			{Name: "Corner", Strategy: "header", Sources: []models.Attempt{{URL: "https://corner.example"}}},
			{Name: "Harbor", Strategy: "header", Sources: []models.Attempt{{URL: "https://harbor.example"}}},
		},
	}
	cfg.SetDefaults()

	b, err := report.NewBuilder(cfg, f, quietLogger())
	require.NoError(t, err)
	b.WithClock(at(t, now))

	history, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	return &Runner{
		Builder:    b,
		Notifier:   n,
		Locale:     cfg.Locale,
		History:    history,
		OncePerDay: true,
		Logger:     quietLogger(),
	}, history
}

const cornerMenu = `<h3>Wednesday</h3><p>Fish soup</p><p>Vegetarian: Lentil stew</p><h3>Thursday</h3><p>Pasta</p>`

func TestRunOnce_DeliversAndRecords(t *testing.T) {
	f := &stubFetcher{docs: map[string]string{"Corner": cornerMenu}}
	n := &recordingNotifier{}
	runner, history := newTestRunner(t, f, n, "2026-10-21 10:00")

	out, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "Fish soup")
	assert.Contains(t, n.messages[0], "Lentil stew")
	assert.Contains(t, n.messages[0], "Harbor")

	runs, err := history.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Delivered)
	assert.Equal(t, "2026-10-21", runs[0].RunDate)
	require.Len(t, runs[0].Results, 2)

	statuses := map[string]string{}
	for _, r := range runs[0].Results {
		statuses[r.Restaurant] = r.Status
	}
	assert.Equal(t, string(models.StatusOK), statuses["Corner"])
	assert.Equal(t, string(models.StatusFetchFailed), statuses["Harbor"])
}

func TestRunOnce_OncePerDay(t *testing.T) {
	f := &stubFetcher{docs: map[string]string{"Corner": cornerMenu, "Harbor": cornerMenu}}
	n := &recordingNotifier{}
	runner, _ := newTestRunner(t, f, n, "2026-10-21 10:00")

	_, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	calls := f.calls.Load()

	out, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Equal(t, "already delivered", out.Reason)
	assert.Len(t, n.messages, 1)
	assert.Equal(t, calls, f.calls.Load(), "second run must not fetch")

	runner.OncePerDay = false
	_, err = runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, n.messages, 2)
}

func TestRunOnce_DeliveryFailureIsRetried(t *testing.T) {
	f := &stubFetcher{docs: map[string]string{"Corner": cornerMenu}}
	n := &recordingNotifier{err: errors.New("telegram down")}
	runner, history := newTestRunner(t, f, n, "2026-10-21 10:00")

	_, err := runner.RunOnce(context.Background())
	require.Error(t, err)

	runs, err := history.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Delivered)
	assert.Equal(t, "telegram down", runs[0].DeliveryError)

	n.err = nil
	out, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.Len(t, n.messages, 1)
}

func TestRunOnce_Weekend(t *testing.T) {
	f := &stubFetcher{}
	n := &recordingNotifier{}
	runner, history := newTestRunner(t, f, n, "2026-10-24 10:00")

	out, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Zero(t, f.calls.Load())
	assert.Empty(t, n.messages)

	runs, err := history.RecentRuns(5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSnapshotObserver(t *testing.T) {
	st, err := storage.New(t.TempDir())
	require.NoError(t, err)

	f := &stubFetcher{docs: map[string]string{
		"Corner": cornerMenu,
		"Harbor": `<h3>Wednesday</h3><h3>Thursday</h3><p>Pasta</p>`,
	}}
	n := &recordingNotifier{}
	runner, _ := newTestRunner(t, f, n, "2026-10-21 10:00")
	runner.Builder.WithObserver(SnapshotObserver(st, quietLogger()))

	_, err = runner.RunOnce(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(st.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2026-10-21-harbor.html", entries[0].Name())
	assert.True(t, st.HasFile(filepath.Join(st.Dir, "2026-10-21-harbor.html")))
}
