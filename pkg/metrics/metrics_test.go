package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/revenuemap/pkg/observability"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.LayoutsTotal == nil || r.CacheOpsTotal == nil || r.HTTPRequestsTotal == nil {
		t.Fatal("metrics not initialized")
	}
	if r.Prometheus() == nil {
		t.Fatal("prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestPipelineEvents(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.OnPrepare(ctx, 10, 2)
	r.OnLayoutComplete(ctx, 9, 1, time.Millisecond, nil)
	r.OnLayoutComplete(ctx, 0, 0, 0, errors.New("boom"))
	r.OnRenderComplete(ctx, []string{"svg", "json"}, time.Millisecond, nil)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"accepted", testutil.ToFloat64(r.RecordsPrepared.WithLabelValues("accepted")), 10},
		{"rejected", testutil.ToFloat64(r.RecordsPrepared.WithLabelValues("rejected")), 2},
		{"layouts ok", testutil.ToFloat64(r.LayoutsTotal.WithLabelValues("ok")), 1},
		{"layouts error", testutil.ToFloat64(r.LayoutsTotal.WithLabelValues("error")), 1},
		{"dropped", testutil.ToFloat64(r.TilesDropped), 1},
		{"svg renders", testutil.ToFloat64(r.RendersTotal.WithLabelValues("svg", "ok")), 1},
		{"json renders", testutil.ToFloat64(r.RendersTotal.WithLabelValues("json", "ok")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCacheEvents(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.OnCacheHit(ctx, "layout")
	r.OnCacheMiss(ctx, "layout")
	r.OnCacheMiss(ctx, "artifact")
	r.OnCacheSet(ctx, "artifact", 512)

	if got := testutil.ToFloat64(r.CacheOpsTotal.WithLabelValues("layout", "miss")); got != 1 {
		t.Errorf("layout misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.CacheWrittenSize); got != 512 {
		t.Errorf("bytes written = %v, want 512", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.OnRequest(context.Background(), "POST", "/v1/layout", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	if !strings.Contains(text, `revenuemap_http_requests_total{method="POST",route="/v1/layout",status="200"} 1`) {
		t.Errorf("request counter missing from exposition:\n%s", text)
	}
	if !strings.Contains(text, "go_goroutines") {
		t.Error("runtime collector missing")
	}
}

func TestInstall(t *testing.T) {
	defer observability.Reset()

	r := NewRegistry()
	Install(r)
	if observability.Pipeline() != r || observability.Cache() != r || observability.Server() != r {
		t.Error("Install should register the registry for every hook type")
	}
}
