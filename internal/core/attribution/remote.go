package attribution

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smerrill/worktrace/internal/core/models"
)

const (
	cacheTTL      = 30 * time.Minute
	cacheMaxSize  = 512
	lookupTimeout = 5 * time.Second
)

type lookupKind string

const (
	lookupTitle    lookupKind = "title"
	lookupHostname lookupKind = "hostname"
)

// remoteResponse is the wire contract of the asset lookup service
type remoteResponse struct {
	Found bool `json:"found"`
	Match *struct {
		ClientID   int64   `json:"clientId"`
		ClientName string  `json:"clientName"`
		ClientCode string  `json:"clientCode"`
		AssetHost  string  `json:"assetHostname"`
		AssetName  string  `json:"assetName"`
		Confidence float64 `json:"confidence"`
	} `json:"match"`
}

type cacheEntry struct {
	match     *Match // nil caches a negative result
	expiresAt time.Time
}

type cacheKey struct {
	kind  lookupKind
	value string
}

// RemoteClient queries the authoritative asset lookup service and caches
// results, including not-found, for a fixed TTL. Every failure mode
// (timeout, bad status, bad payload) degrades to not-found.
type RemoteClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// NewRemoteClient creates a lookup client against the given base URL
func NewRemoteClient(baseURL, apiKey string, log zerolog.Logger) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: lookupTimeout},
		log:     log,
		cache:   make(map[cacheKey]cacheEntry),
	}
}

// LookupTitle resolves a window title to a client, or nil if unknown
func (c *RemoteClient) LookupTitle(ctx context.Context, title string) *Match {
	return c.lookup(ctx, lookupTitle, title)
}

// LookupHostname resolves a hostname to a client, or nil if unknown
func (c *RemoteClient) LookupHostname(ctx context.Context, host string) *Match {
	return c.lookup(ctx, lookupHostname, host)
}

func (c *RemoteClient) lookup(ctx context.Context, kind lookupKind, value string) *Match {
	if value == "" {
		return nil
	}

	key := cacheKey{kind: kind, value: value}
	if m, ok := c.cached(key); ok {
		return m
	}

	m := c.fetch(ctx, kind, value)
	c.store(key, m)
	return m
}

func (c *RemoteClient) cached(key cacheKey) (*Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.match, true
}

func (c *RemoteClient) store(key cacheKey, m *Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = cacheEntry{match: m, expiresAt: time.Now().Add(cacheTTL)}

	// Opportunistic prune: past the size bound, drop expired entries only
	if len(c.cache) > cacheMaxSize {
		now := time.Now()
		for k, e := range c.cache {
			if now.After(e.expiresAt) {
				delete(c.cache, k)
			}
		}
	}
}

func (c *RemoteClient) fetch(ctx context.Context, kind lookupKind, value string) *Match {
	endpoint := fmt.Sprintf("%s/api/lookup/%s?q=%s", c.baseURL, kind, url.QueryEscape(value))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("kind", string(kind)).Msg("remote lookup failed")
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Int("status", resp.StatusCode).Str("kind", string(kind)).Msg("remote lookup non-OK")
		return nil
	}

	var body remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Debug().Err(err).Msg("remote lookup bad payload")
		return nil
	}

	if !body.Found || body.Match == nil || body.Match.Confidence <= 0 {
		return nil
	}

	return &Match{
		ClientName:   body.Match.ClientName,
		ClientCode:   body.Match.ClientCode,
		Confidence:   body.Match.Confidence,
		RuleType:     "remote_" + string(kind),
		MatchedValue: value,
	}
}

// Resolver chains the optional remote lookup in front of the local rule
// engine. Remote results, when found, always win over local rules.
type Resolver struct {
	engine *Engine
	remote *RemoteClient // nil when remote lookup is disabled
}

// NewResolver builds a resolver; remote may be nil
func NewResolver(engine *Engine, remote *RemoteClient) *Resolver {
	return &Resolver{engine: engine, remote: remote}
}

// Detect attributes a signal set to a client, or returns nil. The remote
// service is consulted first (title, then hostname) when configured;
// remote failure falls through to local rules.
func (r *Resolver) Detect(ctx context.Context, sig models.CaptureSignal) *Match {
	if r.remote != nil {
		if m := r.remote.LookupTitle(ctx, sig.WindowTitle); m != nil {
			return m
		}
		if m := r.remote.LookupHostname(ctx, sig.Hostname); m != nil {
			return m
		}
	}
	return r.engine.Detect(sig)
}

// DetectAsync runs Detect on its own goroutine and delivers the result on
// the returned channel. Identical inputs and cache state produce the same
// result as the synchronous form.
func (r *Resolver) DetectAsync(ctx context.Context, sig models.CaptureSignal) <-chan *Match {
	out := make(chan *Match, 1)
	go func() {
		out <- r.Detect(ctx, sig)
		close(out)
	}()
	return out
}

// DetectAll exposes the local engine's per-client diagnostics
func (r *Resolver) DetectAll(sig models.CaptureSignal) []Match {
	return r.engine.DetectAll(sig)
}
