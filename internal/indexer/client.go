package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/lending"
)

// ErrUnavailable means the indexing service could not be reached or
// answered with a server error. Degraded, not fatal: timeline merges fall
// back to the local log alone.
var ErrUnavailable = errors.New("indexer unavailable")

// Transaction is the canonical record for a transaction once the indexer
// has processed it. Immutable once observed.
type Transaction struct {
	Hash      string    `json:"hash"`
	Action    string    `json:"action"`
	Amount    string    `json:"amount"` // micro-unit decimal string
	Denom     string    `json:"denom"`
	MarketID  string    `json:"market_id"`
	Height    int64     `json:"height"`
	Timestamp time.Time `json:"timestamp"`
}

// Client queries the off-chain indexing service.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer query %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Transactions returns a user's confirmed transaction history, newest
// first, up to limit entries.
func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	path := "/v1/accounts/" + url.PathEscape(address) + "/transactions?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// HasTransaction looks one hash up in the indexed history. Used to
// resolve broadcasts that timed out without a confirmation.
func (c *Client) HasTransaction(ctx context.Context, hash string) (bool, error) {
	var out struct {
		Transaction *Transaction `json:"transaction"`
	}
	path := "/v1/transactions/" + url.PathEscape(hash)
	err := c.getJSON(ctx, path, &out)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return false, err
		}
		// A 404 from the indexer means "not indexed yet", not an outage.
		return false, nil
	}
	return out.Transaction != nil, nil
}

// Markets returns the indexer's mirrored market records, used for list
// views where aggregate history (not live chain state) is wanted.
func (c *Client) Markets(ctx context.Context) ([]lending.Market, error) {
	var out struct {
		Markets []lending.Market `json:"markets"`
	}
	if err := c.getJSON(ctx, "/v1/markets", &out); err != nil {
		return nil, err
	}
	return out.Markets, nil
}
