// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/model"
	"github.com/tixmarket/ledger/internal/service"
)

// MarketplaceHandler holds all HTTP handlers for the marketplace API.
type MarketplaceHandler struct {
	svc *service.Marketplace
}

// NewMarketplaceHandler constructs a MarketplaceHandler.
func NewMarketplaceHandler(svc *service.Marketplace) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc}
}

// Routes mounts all API routes on a chi router.
func (h *MarketplaceHandler) Routes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/tickets", h.BuyTicket)
	})
	r.Get("/organizers/{identity}/events", h.OrganizerEvents)
	r.Get("/owners/{identity}/tickets", h.TicketsOf)
	r.Route("/tickets/{id}", func(r chi.Router) {
		r.Get("/", h.GetTicket)
		r.Post("/use", h.MarkUsed)
		r.Put("/resale", h.ListForResale)
		r.Get("/resale", h.ResalePrice)
		r.Post("/resale/purchase", h.BuyResale)
	})
	r.Get("/resale", h.ActiveResales)
	r.Route("/balances/{identity}", func(r chi.Router) {
		r.Get("/", h.Balance)
		r.Post("/seller/withdraw", h.WithdrawSeller)
		r.Post("/organizer/withdraw", h.WithdrawOrganizer)
	})
}

// ─── Helper utilities ─────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func idParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func identityParam(r *http.Request) model.Identity {
	return model.Identity(chi.URLParam(r, "identity"))
}

// writeLedgerError maps each ledger error kind to an HTTP status. The
// wrapped message carries the entity id and expected/actual values, so
// it goes to the client verbatim.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidInput), errors.Is(err, ledger.ErrInvalidPrice):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrNotOwner), errors.Is(err, ledger.ErrSelfPurchase):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrSoldOut),
		errors.Is(err, ledger.ErrPaymentMismatch),
		errors.Is(err, ledger.ErrAlreadyUsed),
		errors.Is(err, ledger.ErrNothingToWithdraw):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// ─── Event registry ───────────────────────────────────────────────────

// CreateEvent handles POST /events
func (h *MarketplaceHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"event_id": id})
}

// ListEvents handles GET /events
func (h *MarketplaceHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *MarketplaceHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// OrganizerEvents handles GET /organizers/{identity}/events
func (h *MarketplaceHandler) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.OrganizerEvents(r.Context(), identityParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list organizer events")
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"event_ids": ids})
}

// ─── Tickets ──────────────────────────────────────────────────────────

// BuyTicket handles POST /events/{id}/tickets
func (h *MarketplaceHandler) BuyTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	var req model.BuyTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ticketID, err := h.svc.BuyTicket(r.Context(), id, req)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"ticket_id": ticketID})
}

// GetTicket handles GET /tickets/{id}
func (h *MarketplaceHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	ticket, err := h.svc.GetTicket(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// TicketsOf handles GET /owners/{identity}/tickets
func (h *MarketplaceHandler) TicketsOf(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.TicketsOf(r.Context(), identityParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeJSON(w, http.StatusOK, map[string][]uint64{"ticket_ids": ids})
}

// MarkUsed handles POST /tickets/{id}/use
func (h *MarketplaceHandler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	if err := h.svc.MarkUsed(r.Context(), id); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"used": true})
}

// ─── Resale ───────────────────────────────────────────────────────────

// ListForResale handles PUT /tickets/{id}/resale
func (h *MarketplaceHandler) ListForResale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	var req model.ListResaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.ListForResale(r.Context(), id, req); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"ticket_id": id, "ask_price": req.AskPrice})
}

// ResalePrice handles GET /tickets/{id}/resale
func (h *MarketplaceHandler) ResalePrice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	price, listed, err := h.svc.ResalePrice(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	resp := map[string]any{"ticket_id": id, "listed": listed}
	if listed {
		resp["ask_price"] = price
	}
	writeJSON(w, http.StatusOK, resp)
}

// BuyResale handles POST /tickets/{id}/resale/purchase
func (h *MarketplaceHandler) BuyResale(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	var req model.BuyResaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.BuyResale(r.Context(), id, req); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket_id": id, "owner": req.Buyer})
}

// ActiveResales handles GET /resale
func (h *MarketplaceHandler) ActiveResales(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.ActiveResales(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list resales")
		return
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

// ─── Balances ─────────────────────────────────────────────────────────

// Balance handles GET /balances/{identity}
func (h *MarketplaceHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance(r.Context(), identityParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// WithdrawSeller handles POST /balances/{identity}/seller/withdraw
func (h *MarketplaceHandler) WithdrawSeller(w http.ResponseWriter, r *http.Request) {
	identity := identityParam(r)
	amount, err := h.svc.WithdrawSeller(r.Context(), identity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.WithdrawalResponse{Identity: identity, Amount: amount})
}

// WithdrawOrganizer handles POST /balances/{identity}/organizer/withdraw
func (h *MarketplaceHandler) WithdrawOrganizer(w http.ResponseWriter, r *http.Request) {
	identity := identityParam(r)
	amount, err := h.svc.WithdrawOrganizer(r.Context(), identity)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.WithdrawalResponse{Identity: identity, Amount: amount})
}

// ─── Health check ─────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
