package preload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/previewcache/cache"
	"github.com/IvanBrykalov/previewcache/fetch"
	"github.com/IvanBrykalov/previewcache/internal/flight"
	"github.com/IvanBrykalov/previewcache/render"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPreloader(t *testing.T, breadth int, hits *atomic.Int64) (*Preloader, *cache.Store[*render.Artifact], *httptest.Server) {
	t.Helper()
	body := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	store := cache.New[*render.Artifact](cache.Options[*render.Artifact]{Capacity: 10})
	t.Cleanup(func() { _ = store.Close() })
	p := New(Options{
		Store:    store,
		Fetcher:  fetch.New(fetch.Options{Timeout: 2 * time.Second}),
		Renderer: render.New(render.Config{}),
		Flight:   &flight.Group[cache.Key, *render.Artifact]{},
		Breadth:  breadth,
	})
	return p, store, srv
}

func waitCached(t *testing.T, store *cache.Store[*render.Artifact], k cache.Key) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !store.Contains(k) {
		if time.Now().After(deadline) {
			t.Fatalf("key %v never cached", k)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Preload warms each upcoming key into the store and nothing else.
func TestPreload_WarmsCache(t *testing.T) {
	t.Parallel()

	p, store, srv := newPreloader(t, 5, nil)
	items := []Item{
		{Locator: srv.URL + "/1.png", Label: "L"},
		{Locator: srv.URL + "/2.png", Label: "L"},
	}
	p.Preload(context.Background(), items)
	for _, it := range items {
		waitCached(t, store, it.Key())
	}
}

// Breadth bounds how far ahead one call works.
func TestPreload_BreadthBound(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	p, store, srv := newPreloader(t, 1, &hits)
	p.Preload(context.Background(), []Item{
		{Locator: srv.URL + "/1.png", Label: "L"},
		{Locator: srv.URL + "/2.png", Label: "L"},
		{Locator: srv.URL + "/3.png", Label: "L"},
	})
	waitCached(t, store, cache.Key{Locator: srv.URL + "/1.png", Label: "L"})
	// Settle time for anything that should not have started.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), hits.Load(), "constrained breadth must preload one key ahead")
	assert.Equal(t, 1, store.Len())
}

// Already-resident keys are skipped without touching the network.
func TestPreload_SkipsCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	p, store, srv := newPreloader(t, 5, &hits)
	it := Item{Locator: srv.URL + "/1.png", Label: "L"}

	p.Preload(context.Background(), []Item{it})
	waitCached(t, store, it.Key())
	first := hits.Load()

	p.Preload(context.Background(), []Item{it})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, first, hits.Load(), "resident key must not be refetched")
}

// Failures are dropped silently; the store stays clean.
func TestPreload_FailureLeavesNoEntry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("garbage"))
	}))
	t.Cleanup(srv.Close)

	store := cache.New[*render.Artifact](cache.Options[*render.Artifact]{Capacity: 10})
	t.Cleanup(func() { _ = store.Close() })
	p := New(Options{
		Store:    store,
		Fetcher:  fetch.New(fetch.Options{Timeout: time.Second}),
		Renderer: render.New(render.Config{}),
		Flight:   &flight.Group[cache.Key, *render.Artifact]{},
		Breadth:  2,
	})

	p.Preload(context.Background(), []Item{{Locator: srv.URL + "/1.png", Label: "L"}})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, store.Len())
}
