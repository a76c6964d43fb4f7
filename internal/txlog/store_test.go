package txlog_test

import (
	"testing"
	"time"

	"github.com/stonefinance/stone-sub002/internal/lending"
	"github.com/stonefinance/stone-sub002/internal/testutil"
	"github.com/stonefinance/stone-sub002/internal/txlog"
)

func TestStore_CreateStartsPending(t *testing.T) {
	store := testutil.OpenStore(t)

	tx, err := store.Create(lending.ActionSupply, "1000000", "uusdc", "atom-usdc")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tx.ID == "" {
		t.Error("entry should get a client-generated id")
	}
	if tx.Status != txlog.StatusPending {
		t.Errorf("status: got %q, want %q", tx.Status, txlog.StatusPending)
	}
}

func TestStore_MarkCompleted(t *testing.T) {
	store := testutil.OpenStore(t)
	tx, _ := store.Create(lending.ActionBorrow, "1000000", "uusdc", "atom-usdc")

	if err := store.MarkCompleted(tx.ID, "ABC123"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	list, _ := store.List()
	if len(list) != 1 {
		t.Fatalf("got %d entries, want 1", len(list))
	}
	if list[0].Status != txlog.StatusCompleted || list[0].TxHash != "ABC123" {
		t.Errorf("got status=%q hash=%q", list[0].Status, list[0].TxHash)
	}
}

func TestStore_MarkFailedClearsHash(t *testing.T) {
	store := testutil.OpenStore(t)
	tx, _ := store.Create(lending.ActionBorrow, "1000000", "uusdc", "atom-usdc")
	store.MarkUnconfirmed(tx.ID, "ABC123")

	if err := store.MarkFailed(tx.ID, "no confirmation"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	list, _ := store.List()
	if list[0].TxHash != "" {
		t.Errorf("failed entries must not carry a hash, got %q", list[0].TxHash)
	}
	if list[0].Error != "no confirmation" {
		t.Errorf("error text: got %q", list[0].Error)
	}
}

func TestStore_MarkUnknownIDFails(t *testing.T) {
	store := testutil.OpenStore(t)
	if err := store.MarkCompleted("nonexistent", "X"); err == nil {
		t.Error("marking an unknown id should fail")
	}
}

func TestStore_UnconfirmedSelection(t *testing.T) {
	store := testutil.OpenStore(t)

	a, _ := store.Create(lending.ActionSupply, "1", "uusdc", "atom-usdc")
	b, _ := store.Create(lending.ActionBorrow, "2", "uusdc", "atom-usdc")
	store.MarkCompleted(a.ID, "A")
	store.MarkUnconfirmed(b.ID, "B")

	pending, err := store.Unconfirmed()
	if err != nil {
		t.Fatalf("Unconfirmed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("got %v, want only the unconfirmed entry", pending)
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	store := testutil.OpenStore(t).WithClock(clock.Now)

	store.Create(lending.ActionSupply, "1", "uusdc", "atom-usdc")
	clock.Advance(time.Minute)
	store.Create(lending.ActionBorrow, "2", "uusdc", "atom-usdc")

	list, _ := store.List()
	if len(list) != 2 {
		t.Fatalf("got %d entries, want 2", len(list))
	}
	if list[0].Action != "borrow" {
		t.Errorf("newest entry should come first, got %q", list[0].Action)
	}
}

func TestStore_ClearSettledKeepsInFlight(t *testing.T) {
	store := testutil.OpenStore(t)

	a, _ := store.Create(lending.ActionSupply, "1", "uusdc", "atom-usdc")
	b, _ := store.Create(lending.ActionBorrow, "2", "uusdc", "atom-usdc")
	c, _ := store.Create(lending.ActionRepay, "3", "uusdc", "atom-usdc")
	d, _ := store.Create(lending.ActionWithdraw, "4", "uusdc", "atom-usdc")
	store.MarkCompleted(a.ID, "A")
	store.MarkFailed(b.ID, "rejected")
	store.MarkUnconfirmed(c.ID, "C")
	_ = d // stays pending

	if err := store.ClearSettled(); err != nil {
		t.Fatalf("ClearSettled: %v", err)
	}

	list, _ := store.List()
	if len(list) != 2 {
		t.Fatalf("got %d entries, want pending + unconfirmed", len(list))
	}
	for _, tx := range list {
		if tx.Status == txlog.StatusCompleted || tx.Status == txlog.StatusFailed {
			t.Errorf("settled entry %q survived the clear", tx.ID)
		}
	}
}
