package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/model"
	"github.com/tixmarket/ledger/internal/service"
)

func newService() *service.Marketplace {
	mem := ledger.NewMemory(clock.NewSystem(), ledger.RoyaltyPolicy{RateBps: 500})
	return service.New(mem, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func createReq() model.CreateEventRequest {
	return model.CreateEventRequest{
		Name:        "Launch Party",
		Description: "Release celebration",
		Venue:       "Pier 3",
		TicketPrice: 100,
		MaxTickets:  10,
		Date:        time.Date(2026, 9, 12, 21, 0, 0, 0, time.UTC).Unix(),
		BannerImage: "ipfs://banner",
		Organizer:   "org-1",
	}
}

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()
	svc := newService()

	t.Run("valid request", func(t *testing.T) {
		id, err := svc.CreateEvent(context.Background(), createReq())
		if err != nil {
			t.Fatalf("create event: %v", err)
		}
		if id == 0 {
			t.Fatalf("expected nonzero event id")
		}
	})

	t.Run("missing date", func(t *testing.T) {
		req := createReq()
		req.Date = 0
		if _, err := svc.CreateEvent(context.Background(), req); !errors.Is(err, ledger.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("whitespace fields are trimmed then rejected", func(t *testing.T) {
		req := createReq()
		req.Venue = "   "
		if _, err := svc.CreateEvent(context.Background(), req); !errors.Is(err, ledger.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestBuyTicketGeneratesReferences(t *testing.T) {
	t.Parallel()
	svc := newService()

	eventID, err := svc.CreateEvent(context.Background(), createReq())
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	ticketID, err := svc.BuyTicket(context.Background(), eventID, model.BuyTicketRequest{
		Buyer:      "alice",
		PaidAmount: 100,
	})
	if err != nil {
		t.Fatalf("buy ticket: %v", err)
	}

	tk, err := svc.GetTicket(context.Background(), ticketID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if _, err := uuid.Parse(tk.MetadataRef); err != nil {
		t.Fatalf("metadata ref %q is not a generated uuid: %v", tk.MetadataRef, err)
	}
	if _, err := uuid.Parse(tk.OriginTxRef); err != nil {
		t.Fatalf("origin tx ref %q is not a generated uuid: %v", tk.OriginTxRef, err)
	}
}

func TestBuyTicketKeepsSubmitterReferences(t *testing.T) {
	t.Parallel()
	svc := newService()

	eventID, _ := svc.CreateEvent(context.Background(), createReq())
	ticketID, err := svc.BuyTicket(context.Background(), eventID, model.BuyTicketRequest{
		Buyer:       "alice",
		PaidAmount:  100,
		MetadataRef: "ipfs://custom-meta",
		OriginTxRef: "0xabc123",
	})
	if err != nil {
		t.Fatalf("buy ticket: %v", err)
	}

	tk, _ := svc.GetTicket(context.Background(), ticketID)
	if tk.MetadataRef != "ipfs://custom-meta" || tk.OriginTxRef != "0xabc123" {
		t.Fatalf("submitter references overwritten: %+v", tk)
	}
}

func TestListEventsCatalogOrder(t *testing.T) {
	t.Parallel()
	svc := newService()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateEvent(context.Background(), createReq()); err != nil {
			t.Fatalf("create event: %v", err)
		}
	}

	events, err := svc.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.ID != uint64(i+1) {
			t.Fatalf("catalog out of order at %d: %+v", i, ev)
		}
	}
}
