// Package ledger defines the marketplace ledger: the single component
// that tracks events, tickets, resale listings, and withdrawable
// balances, and enforces how they evolve. Identities passed in are
// trusted; authentication happens upstream.
package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tixmarket/ledger/internal/model"
)

// MaxAmount is the largest price, capacity, or payment the ledger
// accepts. The durable backend stores amounts as BIGINT, so both
// backends reject anything larger up front.
const MaxAmount uint64 = math.MaxInt64

// EventParams carries everything needed to register a new event.
type EventParams struct {
	Name        string
	Description string
	Venue       string
	TicketPrice uint64
	MaxTickets  uint64
	Date        time.Time
	BannerImage string
	Organizer   model.Identity
}

// Validate checks the creation preconditions shared by every ledger
// implementation.
func (p EventParams) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: event name is required", ErrInvalidInput)
	case strings.TrimSpace(p.Description) == "":
		return fmt.Errorf("%w: event description is required", ErrInvalidInput)
	case strings.TrimSpace(p.Venue) == "":
		return fmt.Errorf("%w: event venue is required", ErrInvalidInput)
	case strings.TrimSpace(p.BannerImage) == "":
		return fmt.Errorf("%w: banner image reference is required", ErrInvalidInput)
	case p.Organizer == "":
		return fmt.Errorf("%w: organizer identity is required", ErrInvalidInput)
	case p.MaxTickets == 0:
		return fmt.Errorf("%w: max tickets must be positive", ErrInvalidInput)
	case p.TicketPrice > MaxAmount:
		return fmt.Errorf("%w: ticket price %d exceeds the supported range", ErrInvalidInput, p.TicketPrice)
	case p.MaxTickets > MaxAmount:
		return fmt.Errorf("%w: max tickets %d exceeds the supported range", ErrInvalidInput, p.MaxTickets)
	}
	return nil
}

// PurchaseParams carries a primary-sale purchase attempt.
type PurchaseParams struct {
	Buyer       model.Identity
	PaidAmount  uint64
	MetadataRef string
	OriginTxRef string
}

// Ledger is the marketplace engine contract. Two implementations
// exist: the in-memory ledger in this package and the postgres-backed
// one in internal/repository. Every mutating operation is atomic: on
// error no state changes.
type Ledger interface {
	// Event registry.
	CreateEvent(ctx context.Context, p EventParams) (uint64, error)
	GetEvent(ctx context.Context, eventID uint64) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	OrganizerEvents(ctx context.Context, organizer model.Identity) ([]uint64, error)
	TotalEvents(ctx context.Context) (uint64, error)

	// Ticket issuance and ownership.
	BuyTicket(ctx context.Context, eventID uint64, p PurchaseParams) (uint64, error)
	GetTicket(ctx context.Context, ticketID uint64) (model.Ticket, error)
	TicketsOf(ctx context.Context, owner model.Identity) ([]uint64, error)
	MarkUsed(ctx context.Context, ticketID uint64) error

	// Resale.
	ListForResale(ctx context.Context, ticketID uint64, seller model.Identity, askPrice uint64) error
	BuyResale(ctx context.Context, ticketID uint64, buyer model.Identity, paidAmount uint64) error
	ActiveResales(ctx context.Context) ([]model.Listing, error)
	ResalePrice(ctx context.Context, ticketID uint64) (uint64, bool, error)

	// Balances and withdrawals.
	Balance(ctx context.Context, identity model.Identity) (model.Balance, error)
	WithdrawSeller(ctx context.Context, identity model.Identity) (uint64, error)
	WithdrawOrganizer(ctx context.Context, identity model.Identity) (uint64, error)
}

// RoyaltyPolicy fixes how a resale payment splits between the seller
// and the event organizer. The rate is expressed in basis points so a
// 5% royalty is 500. Rate 0 sends the full amount to the seller.
type RoyaltyPolicy struct {
	RateBps uint64
}

// DefaultRoyaltyBps is the royalty applied when the operator does not
// configure one.
const DefaultRoyaltyBps = 500

const bpsDenominator = 10_000

// Split divides a resale payment. The royalty rounds down, so the
// seller share absorbs the remainder and the two parts always sum to
// the payment.
func (p RoyaltyPolicy) Split(paid uint64) (sellerShare, royalty uint64) {
	royalty = paid * p.RateBps / bpsDenominator
	return paid - royalty, royalty
}

// Validate rejects rates above 100%.
func (p RoyaltyPolicy) Validate() error {
	if p.RateBps > bpsDenominator {
		return fmt.Errorf("%w: royalty rate %d exceeds %d basis points", ErrInvalidInput, p.RateBps, bpsDenominator)
	}
	return nil
}
