package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestRoyaltySplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		rateBps     uint64
		paid        uint64
		wantSeller  uint64
		wantRoyalty uint64
	}{
		{"five percent", 500, 100, 95, 5},
		{"royalty floors", 500, 50, 48, 2},
		{"odd amount", 500, 49, 47, 2},
		{"zero rate", 0, 100, 100, 0},
		{"full royalty", 10_000, 100, 0, 100},
		{"zero payment", 500, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seller, royalty := RoyaltyPolicy{RateBps: tc.rateBps}.Split(tc.paid)
			if seller != tc.wantSeller || royalty != tc.wantRoyalty {
				t.Fatalf("Split(%d) at %d bps = (%d, %d), want (%d, %d)",
					tc.paid, tc.rateBps, seller, royalty, tc.wantSeller, tc.wantRoyalty)
			}
			if seller+royalty != tc.paid {
				t.Fatalf("split does not sum to payment: %d + %d != %d", seller, royalty, tc.paid)
			}
		})
	}
}

func TestRoyaltyPolicyValidate(t *testing.T) {
	t.Parallel()

	if err := (RoyaltyPolicy{RateBps: 10_000}).Validate(); err != nil {
		t.Fatalf("100%% royalty should be allowed: %v", err)
	}
	if err := (RoyaltyPolicy{RateBps: 10_001}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEventParamsValidate(t *testing.T) {
	t.Parallel()

	valid := EventParams{
		Name:        "Show",
		Description: "A show",
		Venue:       "Venue",
		TicketPrice: 10,
		MaxTickets:  100,
		Date:        time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC),
		BannerImage: "ipfs://banner",
		Organizer:   "org",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	// Free events are allowed; the exact-match rule still applies at
	// purchase time, with zero as the required payment.
	free := valid
	free.TicketPrice = 0
	if err := free.Validate(); err != nil {
		t.Fatalf("free event rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*EventParams)
	}{
		{"blank name", func(p *EventParams) { p.Name = " " }},
		{"blank description", func(p *EventParams) { p.Description = "" }},
		{"blank venue", func(p *EventParams) { p.Venue = "" }},
		{"blank banner", func(p *EventParams) { p.BannerImage = "" }},
		{"missing organizer", func(p *EventParams) { p.Organizer = "" }},
		{"zero capacity", func(p *EventParams) { p.MaxTickets = 0 }},
		{"price out of range", func(p *EventParams) { p.TicketPrice = MaxAmount + 1 }},
		{"capacity out of range", func(p *EventParams) { p.MaxTickets = MaxAmount + 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
