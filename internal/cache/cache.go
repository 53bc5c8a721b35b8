// Package cache stores fetched scheme pages in memory and on disk.
package cache

import (
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/ppiankov/yojana/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const maxKeySlug = 60

// CacheKey turns a URL into a filesystem-safe key: a readable slug of the
// host and path followed by a short content hash of the full URL.
func CacheKey(rawURL string) string {
	short := ShortHash(rawURL)

	readable := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		readable = parsed.Host + parsed.Path
	}

	slug := model.Slug(readable)
	if len(slug) > maxKeySlug {
		slug = strings.TrimRight(slug[:maxKeySlug], "-")
	}
	if slug == "" {
		return "v1-" + short
	}
	return "v1-" + slug + "-" + short
}

// ShortHash returns the first 8 bytes of the BLAKE3 digest of s, hex encoded
func ShortHash(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// Fingerprint returns the hex BLAKE3 digest of content
func Fingerprint(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}
