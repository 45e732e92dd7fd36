package cache

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestFile(t *testing.T) (*File, afero.Fs, *clock) {
	t.Helper()
	fs := afero.NewMemMapFs()
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return NewFile(fs, "/cache", 5*time.Minute, WithClock(clk.now)), fs, clk
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"yts_inception", "yts_inception"},
		{"leetx:the office/2", "leetxtheoffice2"},
		{"../../etc/passwd", "etcpasswd"},
		{"Amélie-2001", "Amlie-2001"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeKey(tt.in))
		})
	}
}

func TestFile_TTL(t *testing.T) {
	ctx := context.Background()
	c, fs, clk := newTestFile(t)

	c.Set(ctx, "k", []byte(`{"a":1}`))

	clk.t = clk.t.Add(4 * time.Minute)
	data, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(data))

	clk.t = clk.t.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	exists, err := afero.Exists(fs, "/cache/k.json")
	require.NoError(t, err)
	assert.False(t, exists, "expired entry should be purged")
}

func TestFile_RawBytesRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestFile(t)

	page := []byte("<html><body>not json</body></html>")
	c.Set(ctx, "page", page)

	got, ok := c.Get(ctx, "page")
	require.True(t, ok)
	assert.Equal(t, page, got)
}

func TestFile_EmptySanitizedKeyIsIgnored(t *testing.T) {
	ctx := context.Background()
	c, fs, _ := newTestFile(t)

	c.Set(ctx, "???", []byte("x"))
	_, ok := c.Get(ctx, "???")
	assert.False(t, ok)

	entries, err := afero.ReadDir(fs, "/cache")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFile_Clear(t *testing.T) {
	ctx := context.Background()
	c, fs, _ := newTestFile(t)

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	c.Clear(ctx)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)

	entries, err := afero.ReadDir(fs, "/cache")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFile_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, fs, _ := newTestFile(t)

	require.NoError(t, afero.WriteFile(fs, "/cache/broken.json", []byte("{not json"), 0o644))

	_, ok := c.Get(ctx, "broken")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestFile(t)

	type payload struct {
		Title string `json:"title"`
		Year  int    `json:"year"`
	}
	SetJSON(ctx, c, "movie", payload{Title: "Inception", Year: 2010})

	got, ok := GetJSON[payload](ctx, c, "movie")
	require.True(t, ok)
	assert.Equal(t, payload{Title: "Inception", Year: 2010}, got)

	_, ok = GetJSON[payload](ctx, c, "missing")
	assert.False(t, ok)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Nop{}
	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}
