package oracle_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/oracle"
	"github.com/stonefinance/stone-sub002/internal/testutil"
)

const atomFeedID = "b00b60f88b03a6a625a8d1c048c3f66653edf217439983d037e7222c4e612819"

// feedServer serves a canned Hermes latest-price response: $10.00 with
// expo -8, one base64 update blob.
func feedServer(t *testing.T, requests *int) *httptest.Server {
	t.Helper()
	blob := base64.StdEncoding.EncodeToString([]byte("signed-update"))
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			*requests++
		}
		if r.URL.Path != "/v2/updates/price/latest" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{
			"binary": {"encoding": "base64", "data": [%q]},
			"parsed": [{
				"id": %q,
				"price": {"price": "1000000000", "conf": "2000000", "expo": -8, "publish_time": 1700000000}
			}]
		}`, blob, atomFeedID)
	}))
}

func newClient(baseURL string) *oracle.Client {
	return oracle.NewClient(baseURL,
		map[string]string{"uatom": atomFeedID},
		zerolog.Nop(), nil)
}

// ============================================================================
// Test: Fetch
// ============================================================================

func TestFetch_ParsesQuote(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	q, err := newClient(srv.URL).Fetch(context.Background(), "uatom")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if q.Price != 10.0 {
		t.Errorf("price: got %v, want 10.0", q.Price)
	}
	if q.Conf != 0.02 {
		t.Errorf("conf: got %v, want 0.02", q.Conf)
	}
	if string(q.UpdateData) != "signed-update" {
		t.Errorf("update data: got %q", q.UpdateData)
	}
	if !q.PublishTime.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("publish time: got %v", q.PublishTime)
	}
}

func TestFetch_UnconfiguredDenom(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	if _, err := newClient(srv.URL).Fetch(context.Background(), "udoge"); err == nil {
		t.Error("denom without a feed id should be rejected")
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	if _, err := c.Fetch(context.Background(), "uatom"); err == nil {
		t.Fatal("expected error on 502")
	}
	if _, ok := c.Cached("uatom"); ok {
		t.Error("failed fetch must not populate the cache")
	}
}

// ============================================================================
// Test: Cache and freshness
// ============================================================================

func TestFresh_WindowExpiry(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	c := newClient(srv.URL).WithClock(clock.Now)

	if c.Fresh("uatom", 10*time.Second) {
		t.Error("empty cache should never be fresh")
	}

	if _, err := c.Fetch(context.Background(), "uatom"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !c.Fresh("uatom", 10*time.Second) {
		t.Error("just-fetched quote should be fresh")
	}

	clock.Advance(11 * time.Second)
	if c.Fresh("uatom", 10*time.Second) {
		t.Error("quote older than the window should be stale")
	}
}

func TestPrices_OmitsUncachedDenoms(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	c := newClient(srv.URL)
	if _, err := c.Fetch(context.Background(), "uatom"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	prices := c.Prices("uatom", "uusdc")
	if got, ok := prices["uatom"]; !ok || got != 10.0 {
		t.Errorf("uatom: got %v %v, want 10.0", got, ok)
	}
	if _, ok := prices["uusdc"]; ok {
		t.Error("uncached denom must be omitted, not zero")
	}
}

func TestPrices_OmitsOverAgeQuotes(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	c := newClient(srv.URL).WithClock(clock.Now).WithDisplayWindow(30 * time.Second)

	if _, err := c.Fetch(context.Background(), "uatom"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, ok := c.Prices("uatom")["uatom"]; !ok {
		t.Fatal("fresh quote should be served")
	}

	clock.Advance(time.Minute)
	if _, ok := c.Prices("uatom")["uatom"]; ok {
		t.Error("a quote past the display window must be omitted")
	}
}

// ============================================================================
// Test: FetchAll
// ============================================================================

func TestFetchAll_PartialFailureKeepsSuccesses(t *testing.T) {
	srv := feedServer(t, nil)
	defer srv.Close()

	// uusdc has no configured feed, so its fetch fails independently.
	quotes := newClient(srv.URL).FetchAll(context.Background(), []string{"uatom", "uusdc"})

	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if _, ok := quotes["uatom"]; !ok {
		t.Error("the successful denom should be present")
	}
}
