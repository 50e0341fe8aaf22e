// Package service implements business logic, validation, and
// orchestration between HTTP handlers and the ledger.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/model"
)

// Marketplace orchestrates ledger operations for the HTTP relay. The
// ledger enforces the real invariants; this layer normalizes input,
// fills in generated references, and logs outcomes.
type Marketplace struct {
	ledger ledger.Ledger
	log    *slog.Logger
}

// New constructs a Marketplace service.
func New(l ledger.Ledger, log *slog.Logger) *Marketplace {
	return &Marketplace{ledger: l, log: log}
}

// CreateEvent registers a new event and returns its id.
func (s *Marketplace) CreateEvent(ctx context.Context, req model.CreateEventRequest) (uint64, error) {
	if req.Date <= 0 {
		return 0, fmt.Errorf("%w: event date is required", ledger.ErrInvalidInput)
	}
	id, err := s.ledger.CreateEvent(ctx, ledger.EventParams{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Venue:       strings.TrimSpace(req.Venue),
		TicketPrice: req.TicketPrice,
		MaxTickets:  req.MaxTickets,
		Date:        time.Unix(req.Date, 0).UTC(),
		BannerImage: strings.TrimSpace(req.BannerImage),
		Organizer:   req.Organizer,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("event created", "event_id", id, "organizer", string(req.Organizer))
	return id, nil
}

// GetEvent returns a single event.
func (s *Marketplace) GetEvent(ctx context.Context, eventID uint64) (model.Event, error) {
	return s.ledger.GetEvent(ctx, eventID)
}

// ListEvents returns the full catalog in id order.
func (s *Marketplace) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.ledger.ListEvents(ctx)
}

// OrganizerEvents returns the organizer's event ids in creation order.
func (s *Marketplace) OrganizerEvents(ctx context.Context, organizer model.Identity) ([]uint64, error) {
	return s.ledger.OrganizerEvents(ctx, organizer)
}

// BuyTicket performs a primary-sale purchase. Metadata and origin
// transaction references default to generated UUIDs when the submitter
// does not supply them.
func (s *Marketplace) BuyTicket(ctx context.Context, eventID uint64, req model.BuyTicketRequest) (uint64, error) {
	metadataRef := strings.TrimSpace(req.MetadataRef)
	if metadataRef == "" {
		metadataRef = uuid.New().String()
	}
	originTxRef := strings.TrimSpace(req.OriginTxRef)
	if originTxRef == "" {
		originTxRef = uuid.New().String()
	}

	id, err := s.ledger.BuyTicket(ctx, eventID, ledger.PurchaseParams{
		Buyer:       req.Buyer,
		PaidAmount:  req.PaidAmount,
		MetadataRef: metadataRef,
		OriginTxRef: originTxRef,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("ticket sold", "ticket_id", id, "event_id", eventID, "buyer", string(req.Buyer))
	return id, nil
}

// GetTicket returns a single ticket.
func (s *Marketplace) GetTicket(ctx context.Context, ticketID uint64) (model.Ticket, error) {
	return s.ledger.GetTicket(ctx, ticketID)
}

// TicketsOf returns the ids of the owner's current tickets.
func (s *Marketplace) TicketsOf(ctx context.Context, owner model.Identity) ([]uint64, error) {
	return s.ledger.TicketsOf(ctx, owner)
}

// MarkUsed redeems a ticket on behalf of the verification authority.
func (s *Marketplace) MarkUsed(ctx context.Context, ticketID uint64) error {
	if err := s.ledger.MarkUsed(ctx, ticketID); err != nil {
		return err
	}
	s.log.Info("ticket redeemed", "ticket_id", ticketID)
	return nil
}

// ListForResale creates or replaces a resale listing.
func (s *Marketplace) ListForResale(ctx context.Context, ticketID uint64, req model.ListResaleRequest) error {
	if err := s.ledger.ListForResale(ctx, ticketID, req.Seller, req.AskPrice); err != nil {
		return err
	}
	s.log.Info("ticket listed", "ticket_id", ticketID, "ask_price", req.AskPrice)
	return nil
}

// BuyResale purchases a listed ticket.
func (s *Marketplace) BuyResale(ctx context.Context, ticketID uint64, req model.BuyResaleRequest) error {
	if err := s.ledger.BuyResale(ctx, ticketID, req.Buyer, req.PaidAmount); err != nil {
		return err
	}
	s.log.Info("resale completed", "ticket_id", ticketID, "buyer", string(req.Buyer))
	return nil
}

// ActiveResales returns every live listing in browse order.
func (s *Marketplace) ActiveResales(ctx context.Context) ([]model.Listing, error) {
	return s.ledger.ActiveResales(ctx)
}

// ResalePrice returns the current ask for a ticket, or ok=false when
// the ticket is unlisted.
func (s *Marketplace) ResalePrice(ctx context.Context, ticketID uint64) (uint64, bool, error) {
	return s.ledger.ResalePrice(ctx, ticketID)
}

// Balance returns both withdrawable pools for an identity.
func (s *Marketplace) Balance(ctx context.Context, identity model.Identity) (model.Balance, error) {
	return s.ledger.Balance(ctx, identity)
}

// WithdrawSeller releases the full seller pool.
func (s *Marketplace) WithdrawSeller(ctx context.Context, identity model.Identity) (uint64, error) {
	amount, err := s.ledger.WithdrawSeller(ctx, identity)
	if err != nil {
		return 0, err
	}
	s.log.Info("seller withdrawal", "identity", string(identity), "amount", amount)
	return amount, nil
}

// WithdrawOrganizer releases the full organizer pool.
func (s *Marketplace) WithdrawOrganizer(ctx context.Context, identity model.Identity) (uint64, error) {
	amount, err := s.ledger.WithdrawOrganizer(ctx, identity)
	if err != nil {
		return 0, err
	}
	s.log.Info("organizer withdrawal", "identity", string(identity), "amount", amount)
	return amount, nil
}
