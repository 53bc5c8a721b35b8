package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/yojana/internal/model"
)

func TestCacheKey(t *testing.T) {
	tests := map[string]struct {
		url    string
		prefix string
	}{
		"host and path": {
			url:    "https://sjd.kerala.gov.in/scheme/widow?id=12",
			prefix: "v1-sjd-kerala-gov-in-scheme-widow-",
		},
		"no host": {
			url:    "local/file.html",
			prefix: "v1-local-file-html-",
		},
		"nothing readable": {
			url:    "://",
			prefix: "v1-",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			key := CacheKey(tt.url)
			assert.True(t, strings.HasPrefix(key, tt.prefix), key)
			assert.NotContains(t, key, "/")
			assert.Equal(t, key, CacheKey(tt.url))
		})
	}

	assert.NotEqual(t,
		CacheKey("https://sjd.kerala.gov.in/scheme/widow?id=12"),
		CacheKey("https://sjd.kerala.gov.in/scheme/widow?id=13"),
		"query string must change the hash")

	long := CacheKey("https://example.gov.in/" + strings.Repeat("segment/", 40))
	assert.LessOrEqual(t, len(long), len("v1-")+maxKeySlug+1+16)
}

func TestShortHash(t *testing.T) {
	a := ShortHash("https://socialjustice.gov.in/scheme.php?id=12")
	assert.Len(t, a, 16)
	assert.Equal(t, a, ShortHash("https://socialjustice.gov.in/scheme.php?id=12"))
	assert.NotEqual(t, a, ShortHash("https://socialjustice.gov.in/scheme.php?id=13"))
	assert.True(t, strings.HasSuffix(CacheKey("https://socialjustice.gov.in/scheme.php?id=12"), "-"+a))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("eligibility"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint([]byte("eligibility")))
	assert.NotEqual(t, a, Fingerprint([]byte("Eligibility")))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	value := []byte("page")
	require.NoError(t, c.Set("k", value, 0))
	value[0] = 'X'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("page"), got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Clear())
	assert.Zero(t, c.Len())
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	body := []byte(strings.Repeat("<p>Applicants must be residents of Kerala.</p>", 50))
	require.NoError(t, c.Set("page", body, 0))

	raw, err := os.ReadFile(filepath.Join(dir, "page.zst"))
	require.NoError(t, err)
	assert.Less(t, len(raw), len(body), "entry should be compressed")

	got, ok := c.Get("page")
	require.True(t, ok)
	assert.Equal(t, body, got)

	require.NoError(t, c.Delete("page"))
	require.NoError(t, c.Delete("page"), "deleting a missing key is not an error")
	_, ok = c.Get("page")
	assert.False(t, ok)
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("page", []byte("x"), time.Minute))

	_, ok := c.Get("page")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("page")
	assert.False(t, ok)

	_, err := os.Stat(filepath.Join(dir, "page.zst"))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.zst"), []byte("not an entry"), 0644))

	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	disk := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayeredCache(memory, disk)

	require.NoError(t, disk.Set("k", []byte("from disk"), 0))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("from disk"), got)

	promoted, ok := memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("from disk"), promoted)

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestFromConfig(t *testing.T) {
	assert.Nil(t, FromConfig(model.CacheConfig{Enabled: false}))

	_, isMemory := FromConfig(model.CacheConfig{Enabled: true, TTL: time.Hour}).(*MemoryCache)
	assert.True(t, isMemory)

	_, isLayered := FromConfig(model.CacheConfig{Enabled: true, TTL: time.Hour, Directory: t.TempDir()}).(*LayeredCache)
	assert.True(t, isLayered)
}
