package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func init() {
	retryDelay = time.Millisecond
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "nested", "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	if _, hit, _ := c.Get(ctx, "layout:x"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "layout:x", []byte(`{"tiles":[]}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "layout:x")
	if err != nil || !hit || string(data) != `{"tiles":[]}` {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "layout:x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "layout:x"); hit {
		t.Error("deleted key should miss")
	}
	if err := c.Delete(ctx, "layout:x"); err != nil {
		t.Errorf("deleting a missing key should succeed: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed from disk")
	}

	// ttl <= 0 never expires
	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should hit")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want clean miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("cleared entry should miss")
	}
	if n, _ := c.Clear(); n != 0 {
		t.Errorf("second Clear removed %d, want 0", n)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	src := []byte("value")
	if err := c.Set(ctx, "k", src, time.Hour); err != nil {
		t.Fatal(err)
	}
	src[0] = 'X'
	data, hit, _ := c.Get(ctx, "k")
	if !hit || string(data) != "value" {
		t.Errorf("Get = %q, %v; Set must copy its input", data, hit)
	}

	_ = c.Delete(ctx, "k")
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted key should miss")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(0)
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(30 * time.Second)
	if _, hit, _ := c.Get(ctx, "k"); !hit {
		t.Error("entry should still be live")
	}
	now = now.Add(time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after lazy eviction", c.Len())
	}
}

func TestMemoryCacheLimit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)
	for _, k := range []string{"a", "b", "c", "d"} {
		_ = c.Set(ctx, k, []byte(k), time.Hour)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, hit, _ := c.Get(ctx, "d"); !hit {
		t.Error("most recent entry should be present")
	}

	// overwriting an existing key never evicts
	_ = c.Set(ctx, "d", []byte("D"), time.Hour)
	if c.Len() != 2 {
		t.Errorf("Len = %d after overwrite, want 2", c.Len())
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	base := LayoutKeyOpts{Width: 800, Height: 600, MinPartition: 0.01}
	lk := k.LayoutKey("abc", base)
	if !strings.HasPrefix(lk, "layout:") {
		t.Errorf("LayoutKey = %s", lk)
	}
	if lk != k.LayoutKey("abc", base) {
		t.Error("LayoutKey should be deterministic")
	}

	variants := []LayoutKeyOpts{
		{Width: 801, Height: 600, MinPartition: 0.01},
		{Width: 800, Height: 600, MinPartition: 0.001},
		{Width: 800, Height: 600, MinPartition: 0.01, TopN: 5},
		{Width: 800, Height: 600, MinPartition: 0.01, GroupBy: "category"},
	}
	for _, v := range variants {
		if k.LayoutKey("abc", v) == lk {
			t.Errorf("options %+v should change the layout key", v)
		}
	}
	if k.LayoutKey("abd", base) == lk {
		t.Error("dataset hash should change the layout key")
	}

	ak1 := k.ArtifactKey(lk, ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey(lk, ArtifactKeyOpts{Format: "json"})
	if ak1 == ak2 || !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey: %s vs %s", ak1, ak2)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "tenant:42:")
	if key := scoped.LayoutKey("h", LayoutKeyOpts{}); !strings.HasPrefix(key, "tenant:42:layout:") {
		t.Errorf("LayoutKey not prefixed: %s", key)
	}
	if key := scoped.ArtifactKey("l", ArtifactKeyOpts{}); !strings.HasPrefix(key, "tenant:42:artifact:") {
		t.Errorf("ArtifactKey not prefixed: %s", key)
	}

	nilInner := NewScopedKeyer(nil, "p:")
	if key := nilInner.LayoutKey("h", LayoutKeyOpts{}); key != "p:"+NewDefaultKeyer().LayoutKey("h", LayoutKeyOpts{}) {
		t.Errorf("nil inner should fall back to DefaultKeyer: %s", key)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrBackend)
	if !IsRetryable(err) {
		t.Error("IsRetryable should be true for wrapped error")
	}
	if !errors.Is(err, ErrBackend) {
		t.Error("wrapped error should unwrap to ErrBackend")
	}
	if err.Error() != ErrBackend.Error() {
		t.Errorf("message not preserved: %s", err)
	}
	if IsRetryable(ErrBackend) {
		t.Error("plain errors are not retryable")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success", 0, nil, 1, nil},
		{"permanent error", 1, permanent, 1, permanent},
		{"recovers", 1, Retryable(ErrBackend), 2, nil},
		{"exhausted", 5, Retryable(ErrBackend), 3, ErrBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithBackoff(ctx, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrBackend)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(RedisConfig{URL: "redis://:secret@cache.internal:6380/2"})
	if err != nil {
		t.Fatalf("redisOptions: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = redisOptions(RedisConfig{Addr: "localhost:6379", DB: 1})
	if err != nil || opts.Addr != "localhost:6379" || opts.DB != 1 {
		t.Errorf("addr opts = %+v, %v", opts, err)
	}

	if _, err := redisOptions(RedisConfig{URL: "http://nope"}); err == nil {
		t.Error("expected error for non-redis scheme")
	}
	if _, err := redisOptions(RedisConfig{}); err == nil {
		t.Error("expected error for empty config")
	}
}

func TestTransient(t *testing.T) {
	if transient(nil) != nil {
		t.Error("transient(nil) should be nil")
	}
	if IsRetryable(transient(context.Canceled)) {
		t.Error("context errors must not be retried")
	}
	err := transient(errors.New("dial tcp: connection refused"))
	if !IsRetryable(err) || !errors.Is(err, ErrBackend) {
		t.Errorf("backend error = %v", err)
	}
}
