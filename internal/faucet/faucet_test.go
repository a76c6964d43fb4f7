package faucet_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/chain"
	"github.com/stonefinance/stone-sub002/internal/faucet"
	"github.com/stonefinance/stone-sub002/internal/testutil"
)

type fakeSigner struct {
	calls int
	err   error
}

func (f *fakeSigner) Address() string { return "stone1faucet" }

func (f *fakeSigner) SignAndBroadcast(context.Context, []chain.Msg) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "GRANTHASH", nil
}

func newService(signer chain.Signer, clock *testutil.Clock) *faucet.Service {
	cooldowns := faucet.NewCooldowns(6*time.Hour, clock.Now)
	grants := map[string]string{"uusdc": "100000000"}
	return faucet.NewService(signer, cooldowns, grants, zerolog.Nop(), nil)
}

func TestGrant_Issues(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	signer := &fakeSigner{}
	svc := newService(signer, clock)

	hash, err := svc.Grant(context.Background(), "stone1user", "uusdc")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if hash != "GRANTHASH" {
		t.Errorf("got %q, want GRANTHASH", hash)
	}
	if signer.calls != 1 {
		t.Errorf("got %d broadcasts, want 1", signer.calls)
	}
}

func TestGrant_CooldownBlocksRepeat(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newService(&fakeSigner{}, clock)

	if _, err := svc.Grant(context.Background(), "stone1user", "uusdc"); err != nil {
		t.Fatalf("first grant: %v", err)
	}

	clock.Advance(time.Hour)
	_, err := svc.Grant(context.Background(), "stone1user", "uusdc")
	var cooldown *faucet.ErrCooldown
	if !errors.As(err, &cooldown) {
		t.Fatalf("got %v, want ErrCooldown", err)
	}
	if cooldown.Remaining != 5*time.Hour {
		t.Errorf("remaining: got %v, want 5h", cooldown.Remaining)
	}

	clock.Advance(5 * time.Hour)
	if _, err := svc.Grant(context.Background(), "stone1user", "uusdc"); err != nil {
		t.Errorf("grant after cooldown expiry: %v", err)
	}
}

func TestGrant_CooldownIsPerAddressAndDenom(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newService(&fakeSigner{}, clock)

	if _, err := svc.Grant(context.Background(), "stone1alice", "uusdc"); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if _, err := svc.Grant(context.Background(), "stone1bob", "uusdc"); err != nil {
		t.Errorf("a different address must not share the cooldown: %v", err)
	}
}

func TestGrant_UnknownDenom(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc := newService(&fakeSigner{}, clock)

	if _, err := svc.Grant(context.Background(), "stone1user", "udoge"); err == nil {
		t.Error("unserved denom should be rejected")
	}
}

func TestGrant_BroadcastFailureDoesNotMark(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	signer := &fakeSigner{err: errors.New("broadcast failed")}
	svc := newService(signer, clock)

	if _, err := svc.Grant(context.Background(), "stone1user", "uusdc"); err == nil {
		t.Fatal("expected broadcast error")
	}

	// The failed attempt must not burn the cooldown.
	signer.err = nil
	if _, err := svc.Grant(context.Background(), "stone1user", "uusdc"); err != nil {
		t.Errorf("retry after failed broadcast: %v", err)
	}
}
