package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

// entryMagic prefixes every disk entry; the expiry follows as unix nanos
var entryMagic = []byte("YJC1")

const entryHeaderSize = 4 + 8

var errCorruptEntry = errors.New("corrupt cache entry")

// Encoder and decoder are safe for concurrent use and reused across calls
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// DiskCache keeps zstd-compressed entries, one file per key
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	expiresAt, payload, err := decodeEntry(data)
	if err != nil || c.now().After(expiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	return payload, true
}

// Set stores a value in the disk cache
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(encodeEntry(value, c.now().Add(ttl))); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key
func (c *DiskCache) path(key string) string {
	return filepath.Join(c.dir, key+".zst")
}

func encodeEntry(value []byte, expiresAt time.Time) []byte {
	out := make([]byte, entryHeaderSize, entryHeaderSize+len(value)/2)
	copy(out, entryMagic)
	binary.BigEndian.PutUint64(out[4:], uint64(expiresAt.UnixNano()))
	return zstdEncoder.EncodeAll(value, out)
}

func decodeEntry(data []byte) (time.Time, []byte, error) {
	if len(data) < entryHeaderSize || !bytes.Equal(data[:4], entryMagic) {
		return time.Time{}, nil, errCorruptEntry
	}
	expiresAt := time.Unix(0, int64(binary.BigEndian.Uint64(data[4:entryHeaderSize])))

	payload, err := zstdDecoder.DecodeAll(data[entryHeaderSize:], nil)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return expiresAt, payload, nil
}
