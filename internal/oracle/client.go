package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stonefinance/stone-sub002/internal/observability"
)

// Quote is one denom's latest price observation: the parsed price for
// local risk math plus the signed update payload for on-chain submission.
type Quote struct {
	Denom       string
	Price       float64
	Conf        float64
	PublishTime time.Time
	FetchedAt   time.Time

	// UpdateData is the verifiable update blob as returned by the feed,
	// forwarded untouched inside a price-update instruction.
	UpdateData []byte
}

// Client fetches signed price updates from a Hermes-style feed endpoint
// and caches the latest quote per denom. All fetches are bounded by the
// caller's context; a rate limiter caps outbound request volume.
type Client struct {
	baseURL string
	feeds   map[string]string // denom → feed id
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time

	// displayWindow bounds how old a cached quote may be and still feed
	// risk figures. Zero disables the bound.
	displayWindow time.Duration

	mu    sync.RWMutex
	cache map[string]Quote
}

// NewClient creates a feed client. feeds maps protocol denoms to the feed
// network's price ids.
func NewClient(baseURL string, feeds map[string]string, log zerolog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		baseURL: baseURL,
		feeds:   feeds,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		log:     log,
		metrics: metrics,
		now:     time.Now,
		cache:   make(map[string]Quote),
	}
}

// WithClock overrides the clock, for deterministic freshness tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// WithDisplayWindow sets the staleness bound applied by Prices.
func (c *Client) WithDisplayWindow(window time.Duration) *Client {
	c.displayWindow = window
	return c
}

// Cached returns the cached quote for a denom, if any.
func (c *Client) Cached(denom string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.cache[denom]
	return q, ok
}

// Fresh reports whether the cached quote for a denom is within the
// freshness window. No quote at all is stale.
func (c *Client) Fresh(denom string, window time.Duration) bool {
	q, ok := c.Cached(denom)
	if !ok {
		return false
	}
	return c.now().Sub(q.FetchedAt) <= window
}

// Prices returns the current cached price per requested denom, omitting
// denoms with no cached quote or whose quote is older than the display
// window. Feeds the risk calculator's PriceSet: an over-age quote must
// surface as Unknown figures, never as a fresh-looking number.
func (c *Client) Prices(denoms ...string) map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(denoms))
	for _, d := range denoms {
		q, ok := c.cache[d]
		if !ok {
			continue
		}
		if c.displayWindow > 0 && c.now().Sub(q.FetchedAt) > c.displayWindow {
			continue
		}
		out[d] = q.Price
	}
	return out
}

// hermesResponse mirrors the feed's latest-price payload.
type hermesResponse struct {
	Binary struct {
		Encoding string   `json:"encoding"`
		Data     []string `json:"data"`
	} `json:"binary"`
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// Fetch retrieves the latest signed update for one denom and caches it.
func (c *Client) Fetch(ctx context.Context, denom string) (Quote, error) {
	feedID, ok := c.feeds[denom]
	if !ok {
		return Quote{}, fmt.Errorf("no feed id configured for denom %s", denom)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Quote{}, err
	}

	start := c.now()
	if c.metrics != nil {
		c.metrics.OracleFetches.WithLabelValues(denom).Inc()
	}

	u := fmt.Sprintf("%s/v2/updates/price/latest?ids[]=%s&encoding=base64", c.baseURL, url.QueryEscape(feedID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.countError(denom, "transport")
		return Quote{}, fmt.Errorf("fetch price %s: %w", denom, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.countError(denom, "status")
		return Quote{}, fmt.Errorf("fetch price %s: status %d", denom, resp.StatusCode)
	}

	var hr hermesResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		c.countError(denom, "decode")
		return Quote{}, fmt.Errorf("decode price %s: %w", denom, err)
	}
	if len(hr.Parsed) == 0 || len(hr.Binary.Data) == 0 {
		c.countError(denom, "empty")
		return Quote{}, fmt.Errorf("fetch price %s: empty response", denom)
	}

	p := hr.Parsed[0].Price
	priceInt, err := strconv.ParseInt(p.Price, 10, 64)
	if err != nil {
		c.countError(denom, "decode")
		return Quote{}, fmt.Errorf("parse price %s: %w", denom, err)
	}
	confInt, _ := strconv.ParseUint(p.Conf, 10, 64)

	updateData, err := base64.StdEncoding.DecodeString(hr.Binary.Data[0])
	if err != nil {
		c.countError(denom, "decode")
		return Quote{}, fmt.Errorf("decode update data %s: %w", denom, err)
	}

	scale := math.Pow10(int(p.Expo))
	q := Quote{
		Denom:       denom,
		Price:       float64(priceInt) * scale,
		Conf:        float64(confInt) * scale,
		PublishTime: time.Unix(p.PublishTime, 0),
		FetchedAt:   c.now(),
		UpdateData:  updateData,
	}

	c.mu.Lock()
	c.cache[denom] = q
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.OracleFetchDur.WithLabelValues(denom).Observe(c.now().Sub(start).Seconds())
		c.metrics.OracleQuoteAge.WithLabelValues(denom).Set(0)
	}

	return q, nil
}

// FetchAll fetches all requested denoms concurrently and returns the
// quotes that succeeded. Each denom is an independent failure domain:
// one fetch failing never aborts the others, and a partial result is a
// valid result.
func (c *Client) FetchAll(ctx context.Context, denoms []string) map[string]Quote {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make(map[string]Quote, len(denoms))
	)

	for _, denom := range denoms {
		wg.Add(1)
		go func(denom string) {
			defer wg.Done()
			q, err := c.Fetch(ctx, denom)
			if err != nil {
				c.log.Warn().Err(err).Str("denom", denom).Msg("price fetch failed")
				return
			}
			mu.Lock()
			out[denom] = q
			mu.Unlock()
		}(denom)
	}

	wg.Wait()
	return out
}

func (c *Client) countError(denom, reason string) {
	if c.metrics != nil {
		c.metrics.OracleFetchErrors.WithLabelValues(denom, reason).Inc()
	}
}
