package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	a, err := CacheKey("hello {{ $x }}", map[string]interface{}{"x": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 30 {
		t.Fatalf("expected a 30 character key, got %q", a)
	}

	b, _ := CacheKey("hello {{ $x }}", map[string]interface{}{"x": 1})
	if a != b {
		t.Fatalf("expected stable keys, got %q and %q", a, b)
	}
	c, _ := CacheKey("hello {{ $x }}", map[string]interface{}{"x": 2})
	if a == c {
		t.Fatal("expected different data to produce a different key")
	}

	_, err = CacheKey("x", map[string]interface{}{"ch": make(chan int)})
	if !IsCacheError(err) {
		t.Fatalf("expected cache error for unencodable data, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Minute, 0)
	cache.now = func() time.Time { return now }

	if err := cache.Put("k", "v"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if out, ok, _ := cache.Get("k"); !ok || out != "v" {
		t.Fatalf("expected hit with %q, got %q (%v)", "v", out, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
	if cache.Size() != 0 {
		t.Fatalf("expected expired entry to be removed, size %d", cache.Size())
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(0, 2)
	cache.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	_ = cache.Put("a", "1")
	_ = cache.Put("b", "2")
	_ = cache.Put("c", "3")

	if cache.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Size())
	}
	if _, ok, _ := cache.Get("a"); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
	if _, ok, _ := cache.Get("c"); !ok {
		t.Fatal("expected newest entry to be kept")
	}
}

func TestMemoryCacheClean(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Minute, 0)
	cache.now = func() time.Time { return now }

	_ = cache.Put("old", "1")
	now = now.Add(30 * time.Second)
	_ = cache.Put("new", "2")
	now = now.Add(45 * time.Second)

	cache.Clean()
	if cache.Size() != 1 {
		t.Fatalf("expected 1 entry after clean, got %d", cache.Size())
	}
	_ = cache.Clear()
	if cache.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Size())
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	defer cache.Close()

	if _, ok, err := cache.Get("missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	output := strings.Repeat("<p>compressed</p>\n", 100)
	if err := cache.Put("abc", output); err != nil {
		t.Fatalf("put: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "abc"+cacheFileSuffix))
	if err != nil {
		t.Fatalf("expected cache file: %v", err)
	}
	if info.Size() >= int64(len(output)) {
		t.Fatalf("expected compressed file, got %d bytes for %d bytes of output", info.Size(), len(output))
	}

	got, ok, err := cache.Get("abc")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != output {
		t.Fatalf("expected round trip of output, got %q", got)
	}

	if err := cache.Remove("abc"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := cache.Get("abc"); ok {
		t.Fatal("expected entry to be removed")
	}
}

func TestFileCacheClearKeepsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	defer cache.Close()

	_ = cache.Put("one", "1")
	_ = cache.Put("two", "2")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := cache.Get("one"); ok {
		t.Fatal("expected cache to be cleared")
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("expected unrelated file to survive: %v", err)
	}
}

func TestFileCacheErrors(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	defer cache.Close()

	if err := cache.Put("../escape", "x"); !IsCacheError(err) {
		t.Fatalf("expected cache error for invalid key, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad"+cacheFileSuffix), []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := cache.Get("bad"); !IsCacheError(err) {
		t.Fatalf("expected cache error for corrupt file, got %v", err)
	}

	if _, err := NewFileCache(""); !IsCacheError(err) {
		t.Fatalf("expected cache error for empty dir, got %v", err)
	}
}

func TestEnvironmentUsesCache(t *testing.T) {
	cache := NewMemoryCache(0, 10)
	calls := 0
	env := newTestEnvironment(map[string]string{"page": "{% count() %}"})
	env.SetCache(cache)
	_ = env.RegisterDirective("count", func(args ...interface{}) (interface{}, error) {
		calls++
		return calls, nil
	})

	for i := 0; i < 3; i++ {
		out, err := env.Render("page", map[string]interface{}{"v": 1})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "1" {
			t.Fatalf("expected cached output %q, got %q", "1", out)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one render, got %d", calls)
	}

	out, err := env.Render("page", map[string]interface{}{"v": 2})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "2" {
		t.Fatalf("expected new data to miss the cache, got %q", out)
	}
}

func TestEnvironmentWithFileCache(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	defer cache.Close()

	env := newTestEnvironment(map[string]string{"page": "Hello {{ $name }}"})
	env.SetCache(cache)

	for i := 0; i < 2; i++ {
		out, err := env.Render("page", map[string]interface{}{"name": "Ada"})
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "Hello Ada" {
			t.Fatalf("expected %q, got %q", "Hello Ada", out)
		}
	}

	entries, err := os.ReadDir(cache.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one cache file, got %d", len(entries))
	}
}
