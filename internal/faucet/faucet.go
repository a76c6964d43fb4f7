package faucet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/amount"
	"github.com/stonefinance/stone-sub002/internal/chain"
	"github.com/stonefinance/stone-sub002/internal/observability"
)

// Cooldowns tracks the last grant time per (address, denom) and enforces
// a minimum interval between grants.
type Cooldowns struct {
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	granted map[string]time.Time
}

func NewCooldowns(cooldown time.Duration, now func() time.Time) *Cooldowns {
	if now == nil {
		now = time.Now
	}
	return &Cooldowns{
		cooldown: cooldown,
		now:      now,
		granted:  make(map[string]time.Time),
	}
}

func key(address, denom string) string {
	return address + "/" + denom
}

// Check returns whether a grant is allowed now and, if not, how long
// until the cooldown expires.
func (c *Cooldowns) Check(address, denom string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.granted[key(address, denom)]
	if !ok {
		return true, 0
	}
	elapsed := c.now().Sub(last)
	if elapsed >= c.cooldown {
		return true, 0
	}
	return false, c.cooldown - elapsed
}

// Mark records a grant at the current clock reading.
func (c *Cooldowns) Mark(address, denom string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.granted[key(address, denom)] = c.now()
}

// ErrCooldown rejects a grant still inside its cooldown window.
type ErrCooldown struct {
	Remaining time.Duration
}

func (e *ErrCooldown) Error() string {
	return fmt.Sprintf("faucet cooldown active, retry in %s", e.Remaining.Round(time.Second))
}

// Service hands out fixed test-net token grants, one per (address, denom)
// per cooldown window.
type Service struct {
	signer    chain.Signer
	cooldowns *Cooldowns
	grants    map[string]string // denom → micro amount per grant
	log       zerolog.Logger
	metrics   *observability.Metrics
}

func NewService(signer chain.Signer, cooldowns *Cooldowns, grants map[string]string, log zerolog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		signer:    signer,
		cooldowns: cooldowns,
		grants:    grants,
		log:       log,
		metrics:   metrics,
	}
}

// Grant sends the configured amount of denom to address, returning the
// transaction hash.
func (s *Service) Grant(ctx context.Context, address, denom string) (string, error) {
	grant, ok := s.grants[denom]
	if !ok || !amount.Valid(grant) {
		return "", fmt.Errorf("faucet does not serve denom %s", denom)
	}

	if ok, remaining := s.cooldowns.Check(address, denom); !ok {
		if s.metrics != nil {
			s.metrics.FaucetCooldowns.WithLabelValues(denom).Inc()
		}
		return "", &ErrCooldown{Remaining: remaining}
	}

	hash, err := s.signer.SignAndBroadcast(ctx, []chain.Msg{
		chain.NewSendMsg(s.signer.Address(), address, denom, grant),
	})
	if err != nil {
		return "", fmt.Errorf("faucet grant: %w", err)
	}

	s.cooldowns.Mark(address, denom)
	if s.metrics != nil {
		s.metrics.FaucetGrants.WithLabelValues(denom).Inc()
	}
	s.log.Info().Str("address", address).Str("denom", denom).Str("txhash", hash).Msg("faucet grant issued")
	return hash, nil
}
