package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/model"
)

// Memory is the canonical in-memory ledger. A single RWMutex
// serializes all mutations; reads take the read lock and return value
// copies, so a concurrent reader never observes a half-applied record.
type Memory struct {
	mu      sync.RWMutex
	clock   clock.Clock
	royalty RoyaltyPolicy

	events      map[uint64]*model.Event
	nextEventID uint64
	byOrganizer map[model.Identity][]uint64

	tickets      map[uint64]*model.Ticket
	nextTicketID uint64
	byOwner      map[model.Identity][]uint64

	listings     map[uint64]*model.Listing
	listingOrder []uint64

	balances map[model.Identity]*model.Balance
}

var _ Ledger = (*Memory)(nil)

// NewMemory constructs an empty ledger. Ids are assigned sequentially
// starting at 1.
func NewMemory(clk clock.Clock, royalty RoyaltyPolicy) *Memory {
	return &Memory{
		clock:        clk,
		royalty:      royalty,
		events:       make(map[uint64]*model.Event),
		nextEventID:  1,
		byOrganizer:  make(map[model.Identity][]uint64),
		tickets:      make(map[uint64]*model.Ticket),
		nextTicketID: 1,
		byOwner:      make(map[model.Identity][]uint64),
		listings:     make(map[uint64]*model.Listing),
		balances:     make(map[model.Identity]*model.Balance),
	}
}

// ─── Event registry ──────────────────────────────────────────────────

// CreateEvent registers a new event and returns its id.
func (m *Memory) CreateEvent(_ context.Context, p EventParams) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextEventID
	m.nextEventID++
	m.events[id] = &model.Event{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Venue:       p.Venue,
		TicketPrice: p.TicketPrice,
		MaxTickets:  p.MaxTickets,
		Date:        p.Date,
		BannerImage: p.BannerImage,
		Organizer:   p.Organizer,
	}
	m.byOrganizer[p.Organizer] = append(m.byOrganizer[p.Organizer], id)
	return id, nil
}

// GetEvent returns a snapshot of a single event.
func (m *Memory) GetEvent(_ context.Context, eventID uint64) (model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.events[eventID]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	return *ev, nil
}

// ListEvents returns a snapshot of the full catalog in id order.
func (m *Memory) ListEvents(_ context.Context) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Event, 0, len(m.events))
	for id := uint64(1); id < m.nextEventID; id++ {
		if ev, ok := m.events[id]; ok {
			out = append(out, *ev)
		}
	}
	return out, nil
}

// OrganizerEvents returns the ids of every event the organizer
// created, in creation order.
func (m *Memory) OrganizerEvents(_ context.Context, organizer model.Identity) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byOrganizer[organizer]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

// TotalEvents returns the number of events ever created.
func (m *Memory) TotalEvents(_ context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextEventID - 1, nil
}

// ─── Ticket issuance and ownership ───────────────────────────────────

// BuyTicket mints a ticket for the buyer at the event's fixed price.
// The paid amount must match the price exactly: no change-making, no
// overpayment. The payment is credited to the organizer's withdrawable
// pool and to the event's running earnings figure.
func (m *Memory) BuyTicket(_ context.Context, eventID uint64, p PurchaseParams) (uint64, error) {
	if p.Buyer == "" {
		return 0, fmt.Errorf("%w: buyer identity is required", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[eventID]
	if !ok {
		return 0, fmt.Errorf("%w: event %d", ErrNotFound, eventID)
	}
	if ev.SoldOut() {
		return 0, fmt.Errorf("%w: event %d sold %d of %d", ErrSoldOut, eventID, ev.TicketsSold, ev.MaxTickets)
	}
	if p.PaidAmount != ev.TicketPrice {
		return 0, fmt.Errorf("%w: event %d costs %d, paid %d", ErrPaymentMismatch, eventID, ev.TicketPrice, p.PaidAmount)
	}

	id := m.nextTicketID
	m.nextTicketID++
	m.tickets[id] = &model.Ticket{
		ID:          id,
		EventID:     eventID,
		Owner:       p.Buyer,
		PurchasedAt: m.clock.Now(),
		MetadataRef: p.MetadataRef,
		OriginTxRef: p.OriginTxRef,
	}
	m.byOwner[p.Buyer] = append(m.byOwner[p.Buyer], id)

	ev.TicketsSold++
	ev.TotalEarnings += p.PaidAmount
	m.creditOrganizer(ev.Organizer, p.PaidAmount)
	return id, nil
}

// GetTicket returns a snapshot of a single ticket.
func (m *Memory) GetTicket(_ context.Context, ticketID uint64) (model.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tk, ok := m.tickets[ticketID]
	if !ok {
		return model.Ticket{}, fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
	}
	return *tk, nil
}

// TicketsOf returns the ids of every ticket the owner currently holds,
// in acquisition order.
func (m *Memory) TicketsOf(_ context.Context, owner model.Identity) ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byOwner[owner]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out, nil
}

// MarkUsed redeems a ticket. The flag flips exactly once; a second
// redemption attempt fails with ErrAlreadyUsed.
func (m *Memory) MarkUsed(_ context.Context, ticketID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tk, ok := m.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
	}
	if tk.Used {
		return fmt.Errorf("%w: ticket %d", ErrAlreadyUsed, ticketID)
	}
	tk.Used = true
	return nil
}

// ─── Resale ──────────────────────────────────────────────────────────

// ListForResale creates or replaces the listing for a ticket. Only the
// current owner may list, the ask must be positive, and a redeemed
// ticket can never be listed. Relisting moves the ticket to the back
// of the browse order.
func (m *Memory) ListForResale(_ context.Context, ticketID uint64, seller model.Identity, askPrice uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tk, ok := m.tickets[ticketID]
	if !ok {
		return fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
	}
	if tk.Owner != seller {
		return fmt.Errorf("%w: ticket %d belongs to %s", ErrNotOwner, ticketID, tk.Owner)
	}
	if askPrice == 0 || askPrice > MaxAmount {
		return fmt.Errorf("%w: ticket %d", ErrInvalidPrice, ticketID)
	}
	if tk.Used {
		return fmt.Errorf("%w: ticket %d", ErrAlreadyUsed, ticketID)
	}

	if _, exists := m.listings[ticketID]; exists {
		m.removeFromOrder(ticketID)
	}
	m.listings[ticketID] = &model.Listing{
		TicketID: ticketID,
		Seller:   seller,
		AskPrice: askPrice,
		ListedAt: m.clock.Now(),
	}
	m.listingOrder = append(m.listingOrder, ticketID)
	return nil
}

// BuyResale purchases a listed ticket at its exact ask price. On
// success ownership transfers, the listing clears, the resale count
// increments, and the payment splits between the seller's pool and the
// organizer's royalty pool. On any failure nothing changes.
func (m *Memory) BuyResale(_ context.Context, ticketID uint64, buyer model.Identity, paidAmount uint64) error {
	if buyer == "" {
		return fmt.Errorf("%w: buyer identity is required", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	lst, ok := m.listings[ticketID]
	if !ok {
		return fmt.Errorf("%w: no listing for ticket %d", ErrNotFound, ticketID)
	}
	tk := m.tickets[ticketID]
	if tk.Owner == buyer {
		return fmt.Errorf("%w: ticket %d", ErrSelfPurchase, ticketID)
	}
	if tk.Used {
		return fmt.Errorf("%w: ticket %d", ErrAlreadyUsed, ticketID)
	}
	if paidAmount != lst.AskPrice {
		return fmt.Errorf("%w: ticket %d listed at %d, paid %d", ErrPaymentMismatch, ticketID, lst.AskPrice, paidAmount)
	}
	ev := m.events[tk.EventID]

	seller := tk.Owner
	m.byOwner[seller] = removeID(m.byOwner[seller], ticketID)
	m.byOwner[buyer] = append(m.byOwner[buyer], ticketID)
	tk.Owner = buyer
	tk.ResaleCount++

	delete(m.listings, ticketID)
	m.removeFromOrder(ticketID)

	sellerShare, royalty := m.royalty.Split(paidAmount)
	if sellerShare > 0 {
		m.creditSeller(seller, sellerShare)
	}
	if royalty > 0 {
		m.creditOrganizer(ev.Organizer, royalty)
		ev.TotalResaleEarnings += royalty
	}
	return nil
}

// ActiveResales returns every live listing in listing-creation order.
func (m *Memory) ActiveResales(_ context.Context) ([]model.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Listing, 0, len(m.listingOrder))
	for _, id := range m.listingOrder {
		out = append(out, *m.listings[id])
	}
	return out, nil
}

// ResalePrice returns the current ask for a ticket, or ok=false when
// the ticket has no active listing.
func (m *Memory) ResalePrice(_ context.Context, ticketID uint64) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.tickets[ticketID]; !exists {
		return 0, false, fmt.Errorf("%w: ticket %d", ErrNotFound, ticketID)
	}
	lst, ok := m.listings[ticketID]
	if !ok {
		return 0, false, nil
	}
	return lst.AskPrice, true, nil
}

// ─── Balances and withdrawals ────────────────────────────────────────

// Balance returns both pools for an identity in one snapshot. An
// identity the ledger has never paid reads as zero balances.
func (m *Memory) Balance(_ context.Context, identity model.Identity) (model.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if b, ok := m.balances[identity]; ok {
		return *b, nil
	}
	return model.Balance{}, nil
}

// WithdrawSeller zeroes the seller pool and returns the prior balance.
func (m *Memory) WithdrawSeller(_ context.Context, identity model.Identity) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.balances[identity]
	if !ok || b.SellerPool == 0 {
		return 0, fmt.Errorf("%w: no seller funds for %s", ErrNothingToWithdraw, identity)
	}
	amount := b.SellerPool
	b.SellerPool = 0
	return amount, nil
}

// WithdrawOrganizer zeroes the organizer pool and returns the prior
// balance.
func (m *Memory) WithdrawOrganizer(_ context.Context, identity model.Identity) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.balances[identity]
	if !ok || b.OrganizerPool == 0 {
		return 0, fmt.Errorf("%w: no organizer funds for %s", ErrNothingToWithdraw, identity)
	}
	amount := b.OrganizerPool
	b.OrganizerPool = 0
	return amount, nil
}

// ─── internals (callers hold m.mu) ───────────────────────────────────

func (m *Memory) creditSeller(identity model.Identity, amount uint64) {
	m.balance(identity).SellerPool += amount
}

func (m *Memory) creditOrganizer(identity model.Identity, amount uint64) {
	m.balance(identity).OrganizerPool += amount
}

func (m *Memory) balance(identity model.Identity) *model.Balance {
	b, ok := m.balances[identity]
	if !ok {
		b = &model.Balance{}
		m.balances[identity] = b
	}
	return b
}

func (m *Memory) removeFromOrder(ticketID uint64) {
	m.listingOrder = removeID(m.listingOrder, ticketID)
}

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
