package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/shortlinks/internal/analytics"
	"github.com/darkodi/shortlinks/internal/encoder"
	"github.com/darkodi/shortlinks/internal/model"
	"github.com/darkodi/shortlinks/internal/repository"
)

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupRegistry(t *testing.T, opts Options) (*Registry, *analytics.Recorder, *clock) {
	t.Helper()
	c := newClock()
	if opts.Now == nil {
		opts.Now = c.Now
	}
	rec := analytics.NewRecorder(repository.NewMemoryHistoryStore())
	return New(repository.NewMemoryLinkStore(), rec, opts), rec, c
}

func TestCreate_ThenGet(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t, Options{})

	tests := []struct {
		name     string
		validity time.Duration
		expected time.Duration
	}{
		{"explicit one minute", time.Minute, time.Minute},
		{"explicit two hours", 2 * time.Hour, 2 * time.Hour},
		{"zero uses default", 0, DefaultValidity},
		{"negative uses default", -time.Minute, DefaultValidity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := reg.Create(ctx, "https://example.com/some/long/path", tt.validity, "")
			require.NoError(t, err)
			assert.Len(t, created.Shortcode, encoder.DefaultLength)
			assert.Regexp(t, `^[0-9a-zA-Z]+$`, created.Shortcode)

			got, err := reg.Get(ctx, created.Shortcode)
			require.NoError(t, err)
			assert.Zero(t, got.ClickCount)
			assert.Equal(t, "https://example.com/some/long/path", got.OriginalURL)
			assert.Equal(t, tt.expected, got.ExpiresAt.Sub(got.CreatedAt))
		})
	}
}

func TestCreate_InvalidURL(t *testing.T) {
	reg, _, _ := setupRegistry(t, Options{})

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"no scheme", "example.com"},
		{"ftp scheme", "ftp://example.com"},
		{"just text", "not-a-url"},
		{"scheme without host", "https://"},
		{"javascript", "javascript:alert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Create(context.Background(), tt.url, time.Minute, "")
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestCreate_CustomCode(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t, Options{})

	created, err := reg.Create(ctx, "https://a.com", 0, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", created.Shortcode)

	_, err = reg.Create(ctx, "https://other.com", 0, "abc")
	assert.ErrorIs(t, err, ErrShortcodeConflict)

	// never silently overwritten
	got, err := reg.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com", got.OriginalURL)
}

func TestCreate_CustomCodeConflictsWithExpired(t *testing.T) {
	ctx := context.Background()
	reg, _, clk := setupRegistry(t, Options{})

	_, err := reg.Create(ctx, "https://a.com", time.Minute, "stale")
	require.NoError(t, err)

	clk.Advance(time.Hour)

	_, err = reg.Create(ctx, "https://b.com", time.Minute, "stale")
	assert.ErrorIs(t, err, ErrShortcodeConflict)
}

func TestCreate_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	var calls int
	reg, _, _ := setupRegistry(t, Options{
		Generate: func(int) string {
			code := codes[calls]
			calls++
			return code
		},
	})

	first, err := reg.Create(ctx, "https://one.com", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Shortcode)

	second, err := reg.Create(ctx, "https://two.com", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", second.Shortcode)
	assert.Equal(t, 4, calls)
}

func TestCreate_GenerationExhausted(t *testing.T) {
	ctx := context.Background()
	var calls int
	reg, _, _ := setupRegistry(t, Options{
		MaxAttempts: 3,
		Generate: func(int) string {
			calls++
			return "same"
		},
	})

	_, err := reg.Create(ctx, "https://one.com", 0, "")
	require.NoError(t, err)

	calls = 0
	_, err = reg.Create(ctx, "https://two.com", 0, "")
	assert.ErrorIs(t, err, ErrGenerationExhausted)
	assert.Equal(t, 3, calls)
}

func TestCreate_UsesCodeLength(t *testing.T) {
	reg, _, _ := setupRegistry(t, Options{CodeLength: 10})

	created, err := reg.Create(context.Background(), "https://example.com", 0, "")
	require.NoError(t, err)
	assert.Len(t, created.Shortcode, 10)
}

func TestCreate_UniqueCodes(t *testing.T) {
	ctx := context.Background()
	// two-character codes make collisions common
	reg, _, _ := setupRegistry(t, Options{CodeLength: 2, MaxAttempts: 1000})

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		created, err := reg.Create(ctx, "https://example.com", 0, "")
		require.NoError(t, err)
		assert.False(t, seen[created.Shortcode], "duplicate code %s", created.Shortcode)
		seen[created.Shortcode] = true
	}
}

func TestCreate_InitializesHistory(t *testing.T) {
	ctx := context.Background()
	reg, rec, _ := setupRegistry(t, Options{})

	created, err := reg.Create(ctx, "https://example.com", 0, "")
	require.NoError(t, err)

	events, err := rec.GetHistory(ctx, created.Shortcode)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestCreate_DiscardsEarlierHistory(t *testing.T) {
	ctx := context.Background()
	reg, rec, c := setupRegistry(t, Options{})

	// events left under the key by a sweep that never got to Forget
	require.NoError(t, rec.Append(ctx, "abc", model.ClickEvent{Timestamp: c.Now(), Location: "198.51.100.7"}))

	created, err := reg.Create(ctx, "https://a.com", 0, "abc")
	require.NoError(t, err)
	assert.Zero(t, created.ClickCount)

	events, err := rec.GetHistory(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, events)
}

type failingInit struct{ err error }

func (f failingInit) Init(ctx context.Context, shortcode string) error { return f.err }

func TestCreate_HistoryInitFailureReleasesCode(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryLinkStore()
	initErr := errors.New("history unavailable")

	_, err := New(store, failingInit{initErr}, Options{}).Create(ctx, "https://a.com", 0, "keep")
	require.ErrorIs(t, err, initErr)

	_, err = store.Get(ctx, "keep")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	created, err := New(store, failingInit{}, Options{}).Create(ctx, "https://a.com", 0, "keep")
	require.NoError(t, err)
	assert.Equal(t, "keep", created.Shortcode)
}

func TestGet_NotFound(t *testing.T) {
	reg, _, _ := setupRegistry(t, Options{})

	_, err := reg.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.RecordVisit(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	reg, _, clk := setupRegistry(t, Options{})

	created, err := reg.Create(ctx, "https://example.com/page", time.Minute, "")
	require.NoError(t, err)

	_, err = reg.RecordVisit(ctx, created.Shortcode)
	require.NoError(t, err)

	// exactly at ExpiresAt the link still resolves
	clk.Advance(time.Minute)
	_, err = reg.Get(ctx, created.Shortcode)
	require.NoError(t, err)

	clk.Advance(time.Second)
	_, err = reg.Get(ctx, created.Shortcode)
	assert.ErrorIs(t, err, ErrExpired)
	_, err = reg.RecordVisit(ctx, created.Shortcode)
	assert.ErrorIs(t, err, ErrExpired)

	// the failed accesses left the record alone
	stored, err := reg.store.Get(ctx, created.Shortcode)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.ClickCount)
	assert.Equal(t, created.CreatedAt, stored.CreatedAt)
	assert.Equal(t, created.ExpiresAt, stored.ExpiresAt)
	assert.Equal(t, created.OriginalURL, stored.OriginalURL)
}

func TestRecordVisit_EndToEnd(t *testing.T) {
	ctx := context.Background()
	reg, _, clk := setupRegistry(t, Options{})

	created, err := reg.Create(ctx, "https://example.com/page", time.Minute, "")
	require.NoError(t, err)

	target, err := reg.RecordVisit(ctx, created.Shortcode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", target)

	got, err := reg.Get(ctx, created.Shortcode)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.ClickCount)

	clk.Advance(61 * time.Second)
	_, err = reg.Get(ctx, created.Shortcode)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestRecordVisit_Concurrent(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t, Options{})
	const n = 200

	created, err := reg.Create(ctx, "https://example.com", time.Hour, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.RecordVisit(ctx, created.Shortcode)
			assert.NoError(t, err)
			_, err = reg.Get(ctx, created.Shortcode)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := reg.Get(ctx, created.Shortcode)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), got.ClickCount)
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	reg, _, _ := setupRegistry(t, Options{})

	created, err := reg.Create(ctx, "https://example.com", 0, "snap")
	require.NoError(t, err)
	created.ClickCount = 99

	got, err := reg.Get(ctx, "snap")
	require.NoError(t, err)
	got.ClickCount = 42

	again, err := reg.Get(ctx, "snap")
	require.NoError(t, err)
	assert.Zero(t, again.ClickCount)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	reg, _, clk := setupRegistry(t, Options{})

	_, err := reg.Create(ctx, "https://a.com", time.Minute, "short")
	require.NoError(t, err)
	_, err = reg.Create(ctx, "https://b.com", 2*time.Hour, "long")
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)

	// expired but within grace
	removed, err := reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)
	_, err = reg.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrExpired)

	clk.Advance(time.Hour)
	removed, err = reg.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"short"}, removed)

	_, err = reg.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reg.Get(ctx, "long")
	assert.NoError(t, err)
}
