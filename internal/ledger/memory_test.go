package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/ledger/ledgertest"
)

func TestMemoryLedger(t *testing.T) {
	t.Parallel()

	ledgertest.Run(t, func(t *testing.T, royaltyBps uint64) ledger.Ledger {
		return ledger.NewMemory(clock.NewSystem(), ledger.RoyaltyPolicy{RateBps: royaltyBps})
	})
}

func TestMemoryLedgerTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := ledger.NewMemory(clock.NewFixed(now), ledger.RoyaltyPolicy{RateBps: 500})

	eventID, err := l.CreateEvent(context.Background(), ledger.EventParams{
		Name:        "Matinee",
		Description: "Afternoon show",
		Venue:       "Hall A",
		TicketPrice: 10,
		MaxTickets:  5,
		Date:        now.AddDate(0, 1, 0),
		BannerImage: "ipfs://banner",
		Organizer:   "org",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	ticketID, err := l.BuyTicket(context.Background(), eventID, ledger.PurchaseParams{Buyer: "alice", PaidAmount: 10})
	if err != nil {
		t.Fatalf("buy ticket: %v", err)
	}
	tk, err := l.GetTicket(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if !tk.PurchasedAt.Equal(now) {
		t.Fatalf("expected purchase timestamp %v, got %v", now, tk.PurchasedAt)
	}
}
