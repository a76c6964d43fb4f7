package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/lending"
)

// Client reads account and market-contract state from the chain's REST
// endpoint. All amounts arrive as decimal-string integers and are passed
// through unparsed.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	capOnce sync.Once
	caps    Capabilities
	capErr  error
}

// Capabilities describes what the target chain supports. AtomicExec
// determines whether price updates and a user instruction can ride in one
// multi-instruction transaction.
type Capabilities struct {
	AtomicExec bool `json:"atomic_exec"`
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
		return fmt.Errorf("chain read %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chain read %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Markets returns all lending markets with their current parameters.
func (c *Client) Markets(ctx context.Context) ([]lending.Market, error) {
	var out struct {
		Markets []lending.Market `json:"markets"`
	}
	if err := c.getJSON(ctx, "/stone/lending/v1/markets", &out); err != nil {
		return nil, err
	}
	return out.Markets, nil
}

// Market returns one market by id.
func (c *Client) Market(ctx context.Context, id string) (lending.Market, error) {
	var out struct {
		Market lending.Market `json:"market"`
	}
	path := "/stone/lending/v1/markets/" + url.PathEscape(id)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return lending.Market{}, err
	}
	return out.Market, nil
}

// Position returns a user's holdings in one market. Positions are read
// fresh for every risk computation — never cache one across renders.
func (c *Client) Position(ctx context.Context, address, marketID string) (lending.Position, error) {
	var out struct {
		Position lending.Position `json:"position"`
	}
	path := fmt.Sprintf("/stone/lending/v1/positions/%s/%s", url.PathEscape(address), url.PathEscape(marketID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return lending.Position{}, err
	}
	out.Position.Address = address
	out.Position.MarketID = marketID
	return out.Position, nil
}

// Balances returns a user's bank balances as micro-unit strings per denom.
func (c *Client) Balances(ctx context.Context, address string) (map[string]string, error) {
	var out struct {
		Balances []struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		} `json:"balances"`
	}
	path := "/cosmos/bank/v1beta1/balances/" + url.PathEscape(address)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	balances := make(map[string]string, len(out.Balances))
	for _, b := range out.Balances {
		balances[b.Denom] = b.Amount
	}
	return balances, nil
}

// SupportsAtomicExec probes the chain's capability to execute a
// multi-instruction transaction atomically. The probe runs once per
// process; an unreachable node defaults to the sequential path, which is
// always valid.
func (c *Client) SupportsAtomicExec(ctx context.Context) bool {
	c.capOnce.Do(func() {
		c.capErr = c.getJSON(ctx, "/stone/base/v1/capabilities", &c.caps)
		if c.capErr != nil {
			c.log.Warn().Err(c.capErr).Msg("capability probe failed, assuming sequential broadcast")
		}
	})
	return c.capErr == nil && c.caps.AtomicExec
}
