package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/handler"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/model"
	"github.com/tixmarket/ledger/internal/service"
)

func newRouter() http.Handler {
	mem := ledger.NewMemory(clock.NewSystem(), ledger.RoyaltyPolicy{RateBps: 500})
	svc := service.New(mem, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := handler.NewMarketplaceHandler(svc)

	r := chi.NewRouter()
	r.Get("/health", handler.HealthCheck)
	r.Group(h.Routes)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func validEvent() model.CreateEventRequest {
	return model.CreateEventRequest{
		Name:        "Club Night",
		Description: "DJ set",
		Venue:       "Basement 12",
		TicketPrice: 100,
		MaxTickets:  2,
		Date:        time.Date(2026, 10, 2, 23, 0, 0, 0, time.UTC).Unix(),
		BannerImage: "ipfs://banner",
		Organizer:   "org-1",
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec := do(t, newRouter(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestEventEndpoints(t *testing.T) {
	t.Parallel()
	r := newRouter()

	rec := do(t, r, http.MethodPost, "/events", validEvent())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]uint64](t, rec)
	eventID := created["event_id"]
	if eventID == 0 {
		t.Fatalf("missing event id in %s", rec.Body.String())
	}

	t.Run("detail", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, fmt.Sprintf("/events/%d", eventID), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		ev := decode[model.Event](t, rec)
		if ev.Name != "Club Night" || ev.Organizer != "org-1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "/events/999", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		req := validEvent()
		req.Venue = ""
		rec := do(t, r, http.MethodPost, "/events", req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("organizer index", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "/organizers/org-1/events", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[map[string][]uint64](t, rec)
		if len(resp["event_ids"]) != 1 || resp["event_ids"][0] != eventID {
			t.Fatalf("unexpected ids %v", resp)
		}
	})

	t.Run("catalog", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "/events", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		events := decode[[]model.Event](t, rec)
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
	})
}

func TestPurchaseAndResaleFlow(t *testing.T) {
	t.Parallel()
	r := newRouter()

	rec := do(t, r, http.MethodPost, "/events", validEvent())
	eventID := decode[map[string]uint64](t, rec)["event_id"]

	// Primary purchase.
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/events/%d/tickets", eventID),
		model.BuyTicketRequest{Buyer: "alice", PaidAmount: 100})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	ticketID := decode[map[string]uint64](t, rec)["ticket_id"]

	// Wrong payment is a conflict.
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/events/%d/tickets", eventID),
		model.BuyTicketRequest{Buyer: "bob", PaidAmount: 90})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	// List for resale; non-owner is forbidden.
	rec = do(t, r, http.MethodPut, fmt.Sprintf("/tickets/%d/resale", ticketID),
		model.ListResaleRequest{Seller: "mallory", AskPrice: 50})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodPut, fmt.Sprintf("/tickets/%d/resale", ticketID),
		model.ListResaleRequest{Seller: "alice", AskPrice: 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Browse shows the listing.
	rec = do(t, r, http.MethodGet, "/resale", nil)
	listings := decode[[]model.Listing](t, rec)
	if len(listings) != 1 || listings[0].TicketID != ticketID || listings[0].AskPrice != 50 {
		t.Fatalf("unexpected listings %v", listings)
	}

	// Resale purchase.
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/tickets/%d/resale/purchase", ticketID),
		model.BuyResaleRequest{Buyer: "bob", PaidAmount: 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, fmt.Sprintf("/tickets/%d", ticketID), nil)
	tk := decode[model.Ticket](t, rec)
	if tk.Owner != "bob" || tk.ResaleCount != 1 {
		t.Fatalf("transfer not reflected: %+v", tk)
	}

	// Seller balance and withdrawal.
	rec = do(t, r, http.MethodGet, "/balances/alice", nil)
	bal := decode[model.Balance](t, rec)
	if bal.SellerPool != 48 {
		t.Fatalf("expected seller pool 48, got %d", bal.SellerPool)
	}
	rec = do(t, r, http.MethodPost, "/balances/alice/seller/withdraw", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	wd := decode[model.WithdrawalResponse](t, rec)
	if wd.Amount != 48 {
		t.Fatalf("expected withdrawal 48, got %d", wd.Amount)
	}
	rec = do(t, r, http.MethodPost, "/balances/alice/seller/withdraw", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on empty pool, got %d", rec.Code)
	}

	// Redemption, twice.
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/tickets/%d/use", ticketID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodPost, fmt.Sprintf("/tickets/%d/use", ticketID), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double redemption, got %d", rec.Code)
	}
}

func TestMalformedRequests(t *testing.T) {
	t.Parallel()
	r := newRouter()

	t.Run("bad id", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "/events/abc", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown json field", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "/events", map[string]any{"surprise": true})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
