// Package ledgertest holds a behavior suite that every ledger
// implementation must pass. The in-memory ledger runs it always; the
// postgres store runs it when a test database is available.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/model"
)

// Factory returns a fresh, empty ledger with the given royalty rate.
type Factory func(t *testing.T, royaltyBps uint64) ledger.Ledger

const defaultBps = 500

func eventParams(organizer model.Identity) ledger.EventParams {
	return ledger.EventParams{
		Name:        "Night Gig",
		Description: "An evening of live music",
		Venue:       "Warehouse 9",
		TicketPrice: 100,
		MaxTickets:  2,
		Date:        time.Date(2026, 11, 20, 20, 0, 0, 0, time.UTC),
		BannerImage: "ipfs://banner",
		Organizer:   organizer,
	}
}

func buy(buyer model.Identity, paid uint64) ledger.PurchaseParams {
	return ledger.PurchaseParams{
		Buyer:       buyer,
		PaidAmount:  paid,
		MetadataRef: "ipfs://meta",
		OriginTxRef: "0xorigin",
	}
}

// Run exercises the full ledger contract against the implementation
// produced by newLedger.
func Run(t *testing.T, newLedger Factory) {
	ctx := context.Background()

	t.Run("event registry", func(t *testing.T) {
		l := newLedger(t, defaultBps)

		t.Run("rejects blank fields", func(t *testing.T) {
			p := eventParams("org-1")
			p.Venue = "  "
			if _, err := l.CreateEvent(ctx, p); !errors.Is(err, ledger.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("rejects zero capacity", func(t *testing.T) {
			p := eventParams("org-1")
			p.MaxTickets = 0
			if _, err := l.CreateEvent(ctx, p); !errors.Is(err, ledger.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("rejects out-of-range amounts", func(t *testing.T) {
			p := eventParams("org-1")
			p.TicketPrice = ledger.MaxAmount + 1
			if _, err := l.CreateEvent(ctx, p); !errors.Is(err, ledger.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for oversized price, got %v", err)
			}
			p = eventParams("org-1")
			p.MaxTickets = ledger.MaxAmount + 1
			if _, err := l.CreateEvent(ctx, p); !errors.Is(err, ledger.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for oversized capacity, got %v", err)
			}
		})

		t.Run("assigns sequential ids from 1", func(t *testing.T) {
			first, err := l.CreateEvent(ctx, eventParams("org-1"))
			if err != nil {
				t.Fatalf("create event: %v", err)
			}
			second, err := l.CreateEvent(ctx, eventParams("org-2"))
			if err != nil {
				t.Fatalf("create event: %v", err)
			}
			if second != first+1 {
				t.Fatalf("expected consecutive ids, got %d then %d", first, second)
			}

			total, err := l.TotalEvents(ctx)
			if err != nil {
				t.Fatalf("total events: %v", err)
			}
			if total != second {
				t.Fatalf("expected total %d, got %d", second, total)
			}
		})

		t.Run("get unknown event", func(t *testing.T) {
			if _, err := l.GetEvent(ctx, 9999); !errors.Is(err, ledger.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("organizer index in creation order", func(t *testing.T) {
			a, _ := l.CreateEvent(ctx, eventParams("org-3"))
			b, _ := l.CreateEvent(ctx, eventParams("org-3"))
			ids, err := l.OrganizerEvents(ctx, "org-3")
			if err != nil {
				t.Fatalf("organizer events: %v", err)
			}
			if len(ids) != 2 || ids[0] != a || ids[1] != b {
				t.Fatalf("expected [%d %d], got %v", a, b, ids)
			}

			none, err := l.OrganizerEvents(ctx, "org-none")
			if err != nil {
				t.Fatalf("organizer events: %v", err)
			}
			if len(none) != 0 {
				t.Fatalf("expected no events, got %v", none)
			}
		})

		t.Run("catalog snapshot in id order", func(t *testing.T) {
			events, err := l.ListEvents(ctx)
			if err != nil {
				t.Fatalf("list events: %v", err)
			}
			total, err := l.TotalEvents(ctx)
			if err != nil {
				t.Fatalf("total events: %v", err)
			}
			if uint64(len(events)) != total {
				t.Fatalf("catalog has %d events, total reports %d", len(events), total)
			}
			for i := 1; i < len(events); i++ {
				if events[i].ID <= events[i-1].ID {
					t.Fatalf("catalog out of order at %d: %v then %v", i, events[i-1].ID, events[i].ID)
				}
			}
			for _, ev := range events {
				got, err := l.GetEvent(ctx, ev.ID)
				if err != nil {
					t.Fatalf("get event %d: %v", ev.ID, err)
				}
				if got.Organizer != ev.Organizer || got.Name != ev.Name {
					t.Fatalf("catalog entry diverges from detail: %+v vs %+v", ev, got)
				}
			}
		})

		t.Run("new event starts empty", func(t *testing.T) {
			id, _ := l.CreateEvent(ctx, eventParams("org-4"))
			ev, err := l.GetEvent(ctx, id)
			if err != nil {
				t.Fatalf("get event: %v", err)
			}
			if ev.TicketsSold != 0 || ev.TotalEarnings != 0 || ev.TotalResaleEarnings != 0 {
				t.Fatalf("expected zeroed counters, got %+v", ev)
			}
			if ev.Organizer != "org-4" {
				t.Fatalf("expected organizer org-4, got %s", ev.Organizer)
			}
		})
	})

	t.Run("primary sale", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, err := l.CreateEvent(ctx, eventParams("org"))
		if err != nil {
			t.Fatalf("create event: %v", err)
		}

		t.Run("unknown event", func(t *testing.T) {
			if _, err := l.BuyTicket(ctx, 9999, buy("alice", 100)); !errors.Is(err, ledger.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("payment must match exactly", func(t *testing.T) {
			if _, err := l.BuyTicket(ctx, eventID, buy("alice", 99)); !errors.Is(err, ledger.ErrPaymentMismatch) {
				t.Fatalf("expected ErrPaymentMismatch, got %v", err)
			}
			if _, err := l.BuyTicket(ctx, eventID, buy("alice", 101)); !errors.Is(err, ledger.ErrPaymentMismatch) {
				t.Fatalf("expected ErrPaymentMismatch, got %v", err)
			}
		})

		t.Run("sells to capacity then SoldOut", func(t *testing.T) {
			first, err := l.BuyTicket(ctx, eventID, buy("alice", 100))
			if err != nil {
				t.Fatalf("first purchase: %v", err)
			}
			second, err := l.BuyTicket(ctx, eventID, buy("bob", 100))
			if err != nil {
				t.Fatalf("second purchase: %v", err)
			}
			if second != first+1 {
				t.Fatalf("expected consecutive ticket ids, got %d then %d", first, second)
			}

			ev, _ := l.GetEvent(ctx, eventID)
			if ev.TicketsSold != 2 {
				t.Fatalf("expected 2 sold, got %d", ev.TicketsSold)
			}
			if ev.TotalEarnings != 200 {
				t.Fatalf("expected earnings 200, got %d", ev.TotalEarnings)
			}

			if _, err := l.BuyTicket(ctx, eventID, buy("carol", 100)); !errors.Is(err, ledger.ErrSoldOut) {
				t.Fatalf("expected ErrSoldOut, got %v", err)
			}
			ev, _ = l.GetEvent(ctx, eventID)
			if ev.TicketsSold != 2 {
				t.Fatalf("sold count moved on failed purchase: %d", ev.TicketsSold)
			}
		})

		t.Run("credits organizer pool", func(t *testing.T) {
			b, err := l.Balance(ctx, "org")
			if err != nil {
				t.Fatalf("balance: %v", err)
			}
			if b.OrganizerPool != 200 {
				t.Fatalf("expected organizer pool 200, got %d", b.OrganizerPool)
			}
			if b.SellerPool != 0 {
				t.Fatalf("expected empty seller pool, got %d", b.SellerPool)
			}
		})

		t.Run("ticket record", func(t *testing.T) {
			ids, err := l.TicketsOf(ctx, "alice")
			if err != nil {
				t.Fatalf("tickets of: %v", err)
			}
			if len(ids) != 1 {
				t.Fatalf("expected 1 ticket, got %v", ids)
			}
			tk, err := l.GetTicket(ctx, ids[0])
			if err != nil {
				t.Fatalf("get ticket: %v", err)
			}
			if tk.EventID != eventID || tk.Owner != "alice" || tk.Used {
				t.Fatalf("unexpected ticket %+v", tk)
			}
			if tk.OriginTxRef != "0xorigin" || tk.MetadataRef != "ipfs://meta" {
				t.Fatalf("references not stored: %+v", tk)
			}
		})
	})

	t.Run("redemption", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, err := l.BuyTicket(ctx, eventID, buy("alice", 100))
		if err != nil {
			t.Fatalf("buy ticket: %v", err)
		}

		if err := l.MarkUsed(ctx, 9999); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := l.MarkUsed(ctx, ticketID); err != nil {
			t.Fatalf("first redemption: %v", err)
		}
		if err := l.MarkUsed(ctx, ticketID); !errors.Is(err, ledger.ErrAlreadyUsed) {
			t.Fatalf("expected ErrAlreadyUsed, got %v", err)
		}

		tk, _ := l.GetTicket(ctx, ticketID)
		if !tk.Used {
			t.Fatalf("ticket not marked used")
		}
	})

	t.Run("resale listing", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))

		t.Run("unknown ticket", func(t *testing.T) {
			if err := l.ListForResale(ctx, 9999, "alice", 50); !errors.Is(err, ledger.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})

		t.Run("only the owner may list", func(t *testing.T) {
			if err := l.ListForResale(ctx, ticketID, "mallory", 50); !errors.Is(err, ledger.ErrNotOwner) {
				t.Fatalf("expected ErrNotOwner, got %v", err)
			}
		})

		t.Run("ask must be positive", func(t *testing.T) {
			if err := l.ListForResale(ctx, ticketID, "alice", 0); !errors.Is(err, ledger.ErrInvalidPrice) {
				t.Fatalf("expected ErrInvalidPrice, got %v", err)
			}
		})

		t.Run("ask above supported range", func(t *testing.T) {
			if err := l.ListForResale(ctx, ticketID, "alice", ledger.MaxAmount+1); !errors.Is(err, ledger.ErrInvalidPrice) {
				t.Fatalf("expected ErrInvalidPrice, got %v", err)
			}
		})

		t.Run("list and overwrite", func(t *testing.T) {
			if err := l.ListForResale(ctx, ticketID, "alice", 50); err != nil {
				t.Fatalf("list: %v", err)
			}
			price, listed, err := l.ResalePrice(ctx, ticketID)
			if err != nil || !listed || price != 50 {
				t.Fatalf("expected listed at 50, got price=%d listed=%v err=%v", price, listed, err)
			}

			if err := l.ListForResale(ctx, ticketID, "alice", 75); err != nil {
				t.Fatalf("relist: %v", err)
			}
			price, listed, _ = l.ResalePrice(ctx, ticketID)
			if !listed || price != 75 {
				t.Fatalf("expected listed at 75, got price=%d listed=%v", price, listed)
			}
		})

		t.Run("redeemed ticket cannot be listed", func(t *testing.T) {
			usedID, _ := l.BuyTicket(ctx, eventID, buy("bob", 100))
			if err := l.MarkUsed(ctx, usedID); err != nil {
				t.Fatalf("mark used: %v", err)
			}
			if err := l.ListForResale(ctx, usedID, "bob", 50); !errors.Is(err, ledger.ErrAlreadyUsed) {
				t.Fatalf("expected ErrAlreadyUsed, got %v", err)
			}
		})

		t.Run("invalid ask reported before redeemed state", func(t *testing.T) {
			p := eventParams("org-prec")
			idp, err := l.CreateEvent(ctx, p)
			if err != nil {
				t.Fatalf("create event: %v", err)
			}
			usedID, err := l.BuyTicket(ctx, idp, buy("erin", 100))
			if err != nil {
				t.Fatalf("buy ticket: %v", err)
			}
			if err := l.MarkUsed(ctx, usedID); err != nil {
				t.Fatalf("mark used: %v", err)
			}
			if err := l.ListForResale(ctx, usedID, "erin", 0); !errors.Is(err, ledger.ErrInvalidPrice) {
				t.Fatalf("expected ErrInvalidPrice, got %v", err)
			}
		})

		t.Run("unlisted price read", func(t *testing.T) {
			id2, _ := l.CreateEvent(ctx, eventParams("org2"))
			fresh, _ := l.BuyTicket(ctx, id2, buy("dora", 100))
			price, listed, err := l.ResalePrice(ctx, fresh)
			if err != nil {
				t.Fatalf("resale price: %v", err)
			}
			if listed || price != 0 {
				t.Fatalf("expected no listing, got price=%d listed=%v", price, listed)
			}
			if _, _, err := l.ResalePrice(ctx, 9999); !errors.Is(err, ledger.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("resale purchase", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))
		if err := l.ListForResale(ctx, ticketID, "alice", 50); err != nil {
			t.Fatalf("list: %v", err)
		}

		t.Run("payment must match the ask", func(t *testing.T) {
			if err := l.BuyResale(ctx, ticketID, "bob", 49); !errors.Is(err, ledger.ErrPaymentMismatch) {
				t.Fatalf("expected ErrPaymentMismatch, got %v", err)
			}
			// state unchanged
			tk, _ := l.GetTicket(ctx, ticketID)
			if tk.Owner != "alice" || tk.ResaleCount != 0 {
				t.Fatalf("state changed on failed purchase: %+v", tk)
			}
			if _, listed, _ := l.ResalePrice(ctx, ticketID); !listed {
				t.Fatalf("listing cleared on failed purchase")
			}
		})

		t.Run("owner cannot buy own listing", func(t *testing.T) {
			if err := l.BuyResale(ctx, ticketID, "alice", 50); !errors.Is(err, ledger.ErrSelfPurchase) {
				t.Fatalf("expected ErrSelfPurchase, got %v", err)
			}
		})

		t.Run("transfers once and clears the listing", func(t *testing.T) {
			if err := l.BuyResale(ctx, ticketID, "bob", 50); err != nil {
				t.Fatalf("buy resale: %v", err)
			}

			tk, _ := l.GetTicket(ctx, ticketID)
			if tk.Owner != "bob" {
				t.Fatalf("expected owner bob, got %s", tk.Owner)
			}
			if tk.ResaleCount != 1 {
				t.Fatalf("expected resale count 1, got %d", tk.ResaleCount)
			}

			if _, listed, _ := l.ResalePrice(ctx, ticketID); listed {
				t.Fatalf("listing survived the purchase")
			}
			if ids, _ := l.TicketsOf(ctx, "alice"); len(ids) != 0 {
				t.Fatalf("seller still owns %v", ids)
			}
			if ids, _ := l.TicketsOf(ctx, "bob"); len(ids) != 1 || ids[0] != ticketID {
				t.Fatalf("buyer ownership wrong: %v", ids)
			}

			// 5% royalty on 50 floors to 2: 48 to the seller,
			// 2 to the organizer.
			sellerBal, _ := l.Balance(ctx, "alice")
			if sellerBal.SellerPool != 48 {
				t.Fatalf("expected seller pool 48, got %d", sellerBal.SellerPool)
			}
			orgBal, _ := l.Balance(ctx, "org")
			if orgBal.OrganizerPool != 100+2 {
				t.Fatalf("expected organizer pool 102, got %d", orgBal.OrganizerPool)
			}
			ev, _ := l.GetEvent(ctx, eventID)
			if ev.TotalResaleEarnings != 2 {
				t.Fatalf("expected resale earnings 2, got %d", ev.TotalResaleEarnings)
			}
		})

		t.Run("second purchase without a new listing", func(t *testing.T) {
			if err := l.BuyResale(ctx, ticketID, "carol", 50); !errors.Is(err, ledger.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("resale purchase on redeemed ticket", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))
		if err := l.ListForResale(ctx, ticketID, "alice", 50); err != nil {
			t.Fatalf("list: %v", err)
		}
		// Redemption between listing and purchase.
		if err := l.MarkUsed(ctx, ticketID); err != nil {
			t.Fatalf("mark used: %v", err)
		}
		if err := l.BuyResale(ctx, ticketID, "bob", 50); !errors.Is(err, ledger.ErrAlreadyUsed) {
			t.Fatalf("expected ErrAlreadyUsed, got %v", err)
		}
	})

	t.Run("zero royalty sends everything to the seller", func(t *testing.T) {
		l := newLedger(t, 0)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))
		if err := l.ListForResale(ctx, ticketID, "alice", 60); err != nil {
			t.Fatalf("list: %v", err)
		}
		if err := l.BuyResale(ctx, ticketID, "bob", 60); err != nil {
			t.Fatalf("buy resale: %v", err)
		}
		b, _ := l.Balance(ctx, "alice")
		if b.SellerPool != 60 {
			t.Fatalf("expected seller pool 60, got %d", b.SellerPool)
		}
		ev, _ := l.GetEvent(ctx, eventID)
		if ev.TotalResaleEarnings != 0 {
			t.Fatalf("expected no resale earnings, got %d", ev.TotalResaleEarnings)
		}
	})

	t.Run("browse order", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		t1, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))
		t2, _ := l.BuyTicket(ctx, eventID, buy("bob", 100))

		if err := l.ListForResale(ctx, t1, "alice", 40); err != nil {
			t.Fatalf("list t1: %v", err)
		}
		if err := l.ListForResale(ctx, t2, "bob", 45); err != nil {
			t.Fatalf("list t2: %v", err)
		}

		listings, err := l.ActiveResales(ctx)
		if err != nil {
			t.Fatalf("active resales: %v", err)
		}
		if len(listings) != 2 || listings[0].TicketID != t1 || listings[1].TicketID != t2 {
			t.Fatalf("expected [%d %d], got %v", t1, t2, listings)
		}

		// Relisting moves the ticket to the back.
		if err := l.ListForResale(ctx, t1, "alice", 42); err != nil {
			t.Fatalf("relist t1: %v", err)
		}
		listings, _ = l.ActiveResales(ctx)
		if len(listings) != 2 || listings[0].TicketID != t2 || listings[1].TicketID != t1 {
			t.Fatalf("expected [%d %d] after relist, got %v", t2, t1, listings)
		}
	})

	t.Run("withdrawals", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))
		if err := l.ListForResale(ctx, ticketID, "alice", 80); err != nil {
			t.Fatalf("list: %v", err)
		}
		if err := l.BuyResale(ctx, ticketID, "bob", 80); err != nil {
			t.Fatalf("buy resale: %v", err)
		}

		t.Run("seller pool pays out once", func(t *testing.T) {
			amount, err := l.WithdrawSeller(ctx, "alice")
			if err != nil {
				t.Fatalf("withdraw: %v", err)
			}
			if amount != 76 { // 80 minus 5% royalty (4)
				t.Fatalf("expected 76, got %d", amount)
			}
			if _, err := l.WithdrawSeller(ctx, "alice"); !errors.Is(err, ledger.ErrNothingToWithdraw) {
				t.Fatalf("expected ErrNothingToWithdraw, got %v", err)
			}
			b, _ := l.Balance(ctx, "alice")
			if b.SellerPool != 0 {
				t.Fatalf("pool not zeroed: %d", b.SellerPool)
			}
		})

		t.Run("organizer pool is independent", func(t *testing.T) {
			amount, err := l.WithdrawOrganizer(ctx, "org")
			if err != nil {
				t.Fatalf("withdraw: %v", err)
			}
			if amount != 104 { // 100 primary + 4 royalty
				t.Fatalf("expected 104, got %d", amount)
			}
			if _, err := l.WithdrawOrganizer(ctx, "org"); !errors.Is(err, ledger.ErrNothingToWithdraw) {
				t.Fatalf("expected ErrNothingToWithdraw, got %v", err)
			}
		})

		t.Run("unknown identity", func(t *testing.T) {
			if _, err := l.WithdrawSeller(ctx, "stranger"); !errors.Is(err, ledger.ErrNothingToWithdraw) {
				t.Fatalf("expected ErrNothingToWithdraw, got %v", err)
			}
		})
	})

	t.Run("last seat race has one winner", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		p := eventParams("org")
		p.MaxTickets = 1
		eventID, err := l.CreateEvent(ctx, p)
		if err != nil {
			t.Fatalf("create event: %v", err)
		}

		const buyers = 8
		var wg sync.WaitGroup
		errs := make([]error, buyers)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				buyer := model.Identity(string(rune('a' + i)))
				_, errs[i] = l.BuyTicket(ctx, eventID, buy(buyer, 100))
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ledger.ErrSoldOut):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins)
		}
		ev, _ := l.GetEvent(ctx, eventID)
		if ev.TicketsSold != 1 {
			t.Fatalf("expected 1 sold, got %d", ev.TicketsSold)
		}
	})

	t.Run("resale race has one winner", func(t *testing.T) {
		l := newLedger(t, defaultBps)
		eventID, _ := l.CreateEvent(ctx, eventParams("org"))
		ticketID, _ := l.BuyTicket(ctx, eventID, buy("alice", 100))
		if err := l.ListForResale(ctx, ticketID, "alice", 50); err != nil {
			t.Fatalf("list: %v", err)
		}

		const buyers = 8
		var wg sync.WaitGroup
		errs := make([]error, buyers)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				buyer := model.Identity(string(rune('b' + i)))
				errs[i] = l.BuyResale(ctx, ticketID, buyer, 50)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ledger.ErrNotFound):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins)
		}
		tk, _ := l.GetTicket(ctx, ticketID)
		if tk.ResaleCount != 1 {
			t.Fatalf("expected resale count 1, got %d", tk.ResaleCount)
		}
	})
}
