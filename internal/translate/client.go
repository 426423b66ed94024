// Package translate provides best-effort text translation through a chain of
// external HTTP providers, with a session cache and a static phrase fallback.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"clarity-caption-service/internal/observability/logging"
	"clarity-caption-service/internal/observability/metrics"
)

// ErrUnavailable is returned alongside the original text when every provider
// and the phrase dictionary failed. Callers should display the returned text
// rather than blocking.
var ErrUnavailable = errors.New("translation service unavailable")

// Texts at or below this many runes are returned unchanged; they are noise
// and would waste provider quota.
const minTranslateLength = 2

// Provider is one translation HTTP endpoint speaking the
// GET <endpoint>?q=<text>&langpair=<src>|<tgt> contract.
type Provider struct {
	Name     string
	Endpoint string
}

// DefaultProviders returns the built-in provider chain in priority order.
func DefaultProviders() []Provider {
	return []Provider{
		{Name: "mymemory", Endpoint: "https://api.mymemory.translated.net/get"},
		{Name: "funtranslations", Endpoint: "https://api.funtranslations.com/translate/minion.json"},
	}
}

// Config holds translation client configuration.
type Config struct {
	Providers       []Provider
	HTTPTimeout     time.Duration
	MaxCacheEntries int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Providers:       DefaultProviders(),
		HTTPTimeout:     5 * time.Second,
		MaxCacheEntries: 4096,
	}
}

// Client translates text between language pairs. Once a provider fails, the
// client downgrades to the next provider in the chain for the rest of its
// life; a known-bad endpoint is not retried.
type Client struct {
	providers []Provider
	httpc     *http.Client
	maxCache  int
	m         *metrics.Metrics

	mu      sync.Mutex
	current int
	cache   map[string]string
	order   []string // cache keys in insertion order, for bounded eviction
}

// New creates a translation client.
func New(cfg Config) *Client {
	if len(cfg.Providers) == 0 {
		cfg.Providers = DefaultProviders()
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.MaxCacheEntries <= 0 {
		cfg.MaxCacheEntries = 4096
	}
	return &Client{
		providers: cfg.Providers,
		httpc:     &http.Client{Timeout: cfg.HTTPTimeout},
		maxCache:  cfg.MaxCacheEntries,
		m:         metrics.DefaultMetrics,
		cache:     make(map[string]string),
	}
}

// Translate translates text from sourceLang to targetLang. On total failure
// it returns the original text together with ErrUnavailable; the returned
// string is always displayable.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}
	if utf8.RuneCountInString(text) <= minTranslateLength {
		return text, nil
	}

	key := cacheKey(text, sourceLang, targetLang)
	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.m.TranslationCacheHit.Inc()
		return cached, nil
	}
	start := c.current
	c.mu.Unlock()

	for i := start; i < len(c.providers); i++ {
		p := c.providers[i]
		translated, err := c.request(ctx, p, text, sourceLang, targetLang)
		if err != nil {
			providerLog := logging.WithProvider("translate", p.Name)
			providerLog.Warn().
				Err(err).
				Msg("translation provider failed, downgrading")
			// Sticky: never come back to this provider.
			c.mu.Lock()
			if i+1 > c.current {
				c.current = i + 1
			}
			c.mu.Unlock()
			continue
		}
		c.store(key, translated)
		return translated, nil
	}

	if translated, ok := lookupPhrase(text, sourceLang, targetLang); ok {
		c.m.TranslationFallback.Inc()
		return translated, nil
	}
	return text, ErrUnavailable
}

// ClearCache empties the translation cache.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]string)
	c.order = nil
}

// CacheSize returns the number of cached translations.
func (c *Client) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

type providerResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus int `json:"responseStatus"`
}

// request performs one provider call.
func (c *Client) request(ctx context.Context, p Provider, text, sourceLang, targetLang string) (string, error) {
	start := time.Now()
	translated, err := c.doRequest(ctx, p, text, sourceLang, targetLang)
	c.m.RecordTranslation(p.Name, err, time.Since(start).Seconds())
	return translated, err
}

func (c *Client) doRequest(ctx context.Context, p Provider, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", sourceLang+"|"+targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("provider %s: status %d", p.Name, resp.StatusCode)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("provider %s: malformed payload: %w", p.Name, err)
	}
	if body.ResponseStatus != 0 && body.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("provider %s: response status %d", p.Name, body.ResponseStatus)
	}
	if body.ResponseData.TranslatedText == "" {
		return "", fmt.Errorf("provider %s: empty translation", p.Name)
	}
	return body.ResponseData.TranslatedText, nil
}

// store caches a successful translation, evicting the oldest entry when full.
func (c *Client) store(key, translated string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[key]; ok {
		c.cache[key] = translated
		return
	}
	if len(c.order) >= c.maxCache {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
	c.cache[key] = translated
	c.order = append(c.order, key)
}

func cacheKey(text, sourceLang, targetLang string) string {
	return sourceLang + ":" + targetLang + ":" + text
}
