package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func providerServer(t *testing.T, calls *int32, translate func(q string) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		q := r.URL.Query().Get("q")
		fmt.Fprintf(w, `{"responseData":{"translatedText":%q},"responseStatus":200}`, translate(q))
	}))
}

func failingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
}

func newTestClient(providers ...Provider) *Client {
	cfg := DefaultConfig()
	cfg.Providers = providers
	return New(cfg)
}

func TestTranslate_IdentityLanguageShortCircuit(t *testing.T) {
	var calls int32
	srv := providerServer(t, &calls, func(q string) string { return "nope" })
	defer srv.Close()

	c := newTestClient(Provider{Name: "test", Endpoint: srv.URL})

	got, err := c.Translate(context.Background(), "hello", "en", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestTranslate_TrivialTextShortCircuit(t *testing.T) {
	var calls int32
	srv := providerServer(t, &calls, func(q string) string { return "nope" })
	defer srv.Close()

	c := newTestClient(Provider{Name: "test", Endpoint: srv.URL})

	got, err := c.Translate(context.Background(), "ok", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no network calls, got %d", n)
	}
}

func TestTranslate_CacheHit(t *testing.T) {
	var calls int32
	srv := providerServer(t, &calls, func(q string) string { return "hola" })
	defer srv.Close()

	c := newTestClient(Provider{Name: "test", Endpoint: srv.URL})

	first, err := c.Translate(context.Background(), "hello", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Translate(context.Background(), "hello", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != "hola" || second != "hola" {
		t.Errorf("expected hola both times, got %q and %q", first, second)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected exactly 1 network call, got %d", n)
	}
}

func TestTranslate_ClearCache(t *testing.T) {
	var calls int32
	srv := providerServer(t, &calls, func(q string) string { return "hola" })
	defer srv.Close()

	c := newTestClient(Provider{Name: "test", Endpoint: srv.URL})

	if _, err := c.Translate(context.Background(), "hello", "en", "es"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CacheSize() != 1 {
		t.Errorf("expected 1 cached entry, got %d", c.CacheSize())
	}

	c.ClearCache()
	if c.CacheSize() != 0 {
		t.Errorf("expected empty cache, got %d", c.CacheSize())
	}

	if _, err := c.Translate(context.Background(), "hello", "en", "es"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 network calls after cache clear, got %d", n)
	}
}

func TestTranslate_StickyProviderDowngrade(t *testing.T) {
	var badCalls, goodCalls int32
	bad := failingServer(t, &badCalls)
	defer bad.Close()
	good := providerServer(t, &goodCalls, func(q string) string { return "traducido" })
	defer good.Close()

	c := newTestClient(
		Provider{Name: "primary", Endpoint: bad.URL},
		Provider{Name: "secondary", Endpoint: good.URL},
	)

	got, err := c.Translate(context.Background(), "first phrase", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "traducido" {
		t.Errorf("expected traducido, got %q", got)
	}

	// A different text, so the cache cannot satisfy it. The dead primary
	// must not be retried.
	if _, err := c.Translate(context.Background(), "second phrase", "en", "es"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := atomic.LoadInt32(&badCalls); n != 1 {
		t.Errorf("expected primary hit exactly once, got %d", n)
	}
	if n := atomic.LoadInt32(&goodCalls); n != 2 {
		t.Errorf("expected secondary hit twice, got %d", n)
	}
}

func TestTranslate_MalformedPayloadAdvancesProvider(t *testing.T) {
	var goodCalls int32
	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer malformed.Close()
	good := providerServer(t, &goodCalls, func(q string) string { return "bonjour" })
	defer good.Close()

	c := newTestClient(
		Provider{Name: "primary", Endpoint: malformed.URL},
		Provider{Name: "secondary", Endpoint: good.URL},
	)

	got, err := c.Translate(context.Background(), "hello there", "en", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bonjour" {
		t.Errorf("expected bonjour, got %q", got)
	}
}

func TestTranslate_FallbackDictionary(t *testing.T) {
	var calls int32
	bad := failingServer(t, &calls)
	defer bad.Close()

	c := newTestClient(Provider{Name: "primary", Endpoint: bad.URL})

	got, err := c.Translate(context.Background(), "hello", "en", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hola" {
		t.Errorf("expected hola from phrase dictionary, got %q", got)
	}
}

func TestTranslate_AllProvidersAndDictionaryMiss(t *testing.T) {
	var calls int32
	bad := failingServer(t, &calls)
	defer bad.Close()

	c := newTestClient(Provider{Name: "primary", Endpoint: bad.URL})

	got, err := c.Translate(context.Background(), "completely untranslatable sentence", "en", "es")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if got != "completely untranslatable sentence" {
		t.Errorf("expected original text back, got %q", got)
	}
}

func TestTranslate_CacheBounded(t *testing.T) {
	var calls int32
	srv := providerServer(t, &calls, func(q string) string { return "x " + q })
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Providers = []Provider{{Name: "test", Endpoint: srv.URL}}
	cfg.MaxCacheEntries = 3
	c := New(cfg)

	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("phrase number %d", i)
		if _, err := c.Translate(context.Background(), text, "en", "es"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if c.CacheSize() != 3 {
		t.Errorf("expected cache capped at 3 entries, got %d", c.CacheSize())
	}
}

func TestLookupPhrase(t *testing.T) {
	tests := []struct {
		text, src, tgt string
		want           string
		ok             bool
	}{
		{"hello", "en", "es", "hola", true},
		{"Hello", "en", "fr", "bonjour", true},
		{"THANK YOU", "en", "de", "danke", true},
		{"bye", "en", "ja", "さようなら", true},
		{"hello", "en", "xx", "", false},
		{"hello", "fr", "es", "", false},
		{"good morning", "en", "es", "", false},
	}

	for _, tt := range tests {
		got, ok := lookupPhrase(tt.text, tt.src, tt.tgt)
		if ok != tt.ok || got != tt.want {
			t.Errorf("lookupPhrase(%q, %s, %s) = %q, %v; want %q, %v",
				tt.text, tt.src, tt.tgt, got, ok, tt.want, tt.ok)
		}
	}
}
