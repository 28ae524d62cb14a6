package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// cacheFileSuffix is appended to the key of every file a FileCache writes
const cacheFileSuffix = ".html.zst"

// FileCache persists rendered output on disk, one zstd compressed file per
// key. It survives process restarts and can be shared by environments that
// point at the same directory.
type FileCache struct {
	dir     string
	mu      sync.Mutex
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewFileCache creates a file cache rooted at dir, creating the directory
// when it does not exist yet.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, NewError(ErrorTypeCache, "cache directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot create cache directory %s", dir), err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, NewErrorWithCause(ErrorTypeCache, "cannot create zstd encoder", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, NewErrorWithCause(ErrorTypeCache, "cannot create zstd decoder", err)
	}

	return &FileCache{
		dir:     dir,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Dir returns the directory the cache writes to
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", NewErrorf(ErrorTypeCache, "invalid cache key %q", key)
	}
	return filepath.Join(c.dir, key+cacheFileSuffix), nil
}

// Get reads and decompresses the output stored for key
func (c *FileCache) Get(key string) (string, bool, error) {
	path, err := c.path(key)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot read cache file %s", path), err)
	}

	c.mu.Lock()
	output, err := c.decoder.DecodeAll(data, nil)
	c.mu.Unlock()
	if err != nil {
		return "", false, NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("corrupt cache file %s", path), err)
	}
	return string(output), true, nil
}

// Put compresses output and writes it for key. The file is written to a
// temporary name first and renamed into place.
func (c *FileCache) Put(key, output string) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	compressed := c.encoder.EncodeAll([]byte(output), nil)
	c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return NewErrorWithCause(ErrorTypeCache, "cannot create cache file", err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot write cache file %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot write cache file %s", path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot write cache file %s", path), err)
	}
	return nil
}

// Remove deletes the file stored for key
func (c *FileCache) Remove(key string) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot remove cache file %s", path), err)
	}
	return nil
}

// Clear deletes every cache file in the directory. Other files are left
// alone.
func (c *FileCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot list cache directory %s", c.dir), err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), cacheFileSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return NewErrorWithCause(ErrorTypeCache, fmt.Sprintf("cannot remove cache file %s", entry.Name()), err)
		}
	}
	return nil
}

// Close releases the compression resources
func (c *FileCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoder.Close()
	return c.encoder.Close()
}
