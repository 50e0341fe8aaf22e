// Package model defines the core domain types for the ticket marketplace.
package model

import "time"

// Identity is an opaque, already-authenticated participant identifier
// (a wallet address in the original deployment). The ledger never
// interprets it beyond equality.
type Identity string

// Event represents a ticketed occasion created by an organizer.
// All fields except TicketsSold and the two earnings figures are
// immutable after creation.
type Event struct {
	ID                  uint64    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Venue               string    `json:"venue"`
	TicketPrice         uint64    `json:"ticket_price"`
	MaxTickets          uint64    `json:"max_tickets"`
	TicketsSold         uint64    `json:"tickets_sold"`
	Date                time.Time `json:"date"`
	BannerImage         string    `json:"banner_image"`
	Organizer           Identity  `json:"organizer"`
	TotalEarnings       uint64    `json:"total_earnings"`
	TotalResaleEarnings uint64    `json:"total_resale_earnings"`
}

// Remaining returns the number of unsold tickets.
func (e *Event) Remaining() uint64 {
	return e.MaxTickets - e.TicketsSold
}

// SoldOut reports whether no tickets remain for primary sale.
func (e *Event) SoldOut() bool {
	return e.TicketsSold >= e.MaxTickets
}

// Ticket represents a unique right of admission tied to one event.
// Owner changes on resale; Used flips to true at most once.
type Ticket struct {
	ID          uint64    `json:"id"`
	EventID     uint64    `json:"event_id"`
	Owner       Identity  `json:"owner"`
	Used        bool      `json:"used"`
	PurchasedAt time.Time `json:"purchased_at"`
	MetadataRef string    `json:"metadata_ref"`
	OriginTxRef string    `json:"origin_tx_ref"`
	ResaleCount uint64    `json:"resale_count"`
}

// Listing is an owner's standing offer to sell a ticket at a fixed ask.
type Listing struct {
	TicketID uint64    `json:"ticket_id"`
	Seller   Identity  `json:"seller"`
	AskPrice uint64    `json:"ask_price"`
	ListedAt time.Time `json:"listed_at"`
}

// Balance holds the two independently withdrawable pools owed to an
// identity: resale proceeds as a seller, and primary revenue plus
// royalty as an organizer.
type Balance struct {
	SellerPool    uint64 `json:"seller_pool"`
	OrganizerPool uint64 `json:"organizer_pool"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Venue       string   `json:"venue"`
	TicketPrice uint64   `json:"ticket_price"`
	MaxTickets  uint64   `json:"max_tickets"`
	Date        int64    `json:"date"` // unix seconds
	BannerImage string   `json:"banner_image"`
	Organizer   Identity `json:"organizer"`
}

// BuyTicketRequest is the payload for a primary-sale purchase.
type BuyTicketRequest struct {
	Buyer       Identity `json:"buyer"`
	PaidAmount  uint64   `json:"paid_amount"`
	MetadataRef string   `json:"metadata_ref,omitempty"`
	OriginTxRef string   `json:"origin_tx_ref,omitempty"`
}

// ListResaleRequest is the payload for creating or replacing a listing.
type ListResaleRequest struct {
	Seller   Identity `json:"seller"`
	AskPrice uint64   `json:"ask_price"`
}

// BuyResaleRequest is the payload for purchasing a listed ticket.
type BuyResaleRequest struct {
	Buyer      Identity `json:"buyer"`
	PaidAmount uint64   `json:"paid_amount"`
}

// WithdrawalResponse reports the amount released by a withdrawal, to be
// paid out by the external payment collaborator.
type WithdrawalResponse struct {
	Identity Identity `json:"identity"`
	Amount   uint64   `json:"amount"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
