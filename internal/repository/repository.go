// Package repository implements the marketplace ledger on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
// Operations racing on the same event or ticket serialize on row-level
// locks (SELECT ... FOR UPDATE) inside a transaction, so at most one
// buyer wins the last seat and at most one resale purchase clears a
// listing.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/model"
)

// Store is the durable ledger implementation.
type Store struct {
	db      *pgxpool.Pool
	clock   clock.Clock
	royalty ledger.RoyaltyPolicy
}

var _ ledger.Ledger = (*Store)(nil)

// NewStore constructs a Store. The schema must already be in place
// (see EnsureSchema).
func NewStore(db *pgxpool.Pool, clk clock.Clock, royalty ledger.RoyaltyPolicy) *Store {
	return &Store{db: db, clock: clk, royalty: royalty}
}

// withTx runs fn inside a transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Event registry ──────────────────────────────────────────────────

// CreateEvent inserts a new event and returns its sequential id.
func (s *Store) CreateEvent(ctx context.Context, p ledger.EventParams) (uint64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var id uint64
	err := s.db.QueryRow(ctx,
		`INSERT INTO events (name, description, venue, ticket_price, max_tickets, event_date, banner_image, organizer)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		p.Name, p.Description, p.Venue, p.TicketPrice, p.MaxTickets, p.Date, p.BannerImage, p.Organizer,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *Store) GetEvent(ctx context.Context, eventID uint64) (model.Event, error) {
	var e model.Event
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, venue, ticket_price, max_tickets, tickets_sold,
		        event_date, banner_image, organizer, total_earnings, total_resale_earnings
		 FROM events WHERE id = $1`,
		eventID,
	).Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.TicketPrice, &e.MaxTickets, &e.TicketsSold,
		&e.Date, &e.BannerImage, &e.Organizer, &e.TotalEarnings, &e.TotalResaleEarnings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, fmt.Errorf("%w: event %d", ledger.ErrNotFound, eventID)
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns the full catalog in id order. A single query, so
// sequence gaps left by failed inserts never break enumeration.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, venue, ticket_price, max_tickets, tickets_sold,
		        event_date, banner_image, organizer, total_earnings, total_resale_earnings
		 FROM events
		 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Venue, &e.TicketPrice, &e.MaxTickets,
			&e.TicketsSold, &e.Date, &e.BannerImage, &e.Organizer, &e.TotalEarnings, &e.TotalResaleEarnings); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// OrganizerEvents returns the organizer's event ids in creation order.
func (s *Store) OrganizerEvents(ctx context.Context, organizer model.Identity) ([]uint64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM events WHERE organizer = $1 ORDER BY id`,
		organizer,
	)
	if err != nil {
		return nil, fmt.Errorf("list organizer events: %w", err)
	}
	return scanIDs(rows)
}

// TotalEvents returns the number of events ever created.
func (s *Store) TotalEvents(ctx context.Context) (uint64, error) {
	var n uint64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// ─── Ticket issuance and ownership ───────────────────────────────────

// BuyTicket mints a ticket inside a transaction that holds the event
// row lock, so two buyers racing for the last seat serialize and the
// loser observes the sold-out state.
func (s *Store) BuyTicket(ctx context.Context, eventID uint64, p ledger.PurchaseParams) (uint64, error) {
	if p.Buyer == "" {
		return 0, fmt.Errorf("%w: buyer identity is required", ledger.ErrInvalidInput)
	}

	var ticketID uint64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var price, maxTickets, sold uint64
		var organizer model.Identity
		err := tx.QueryRow(ctx,
			`SELECT ticket_price, max_tickets, tickets_sold, organizer
			 FROM events WHERE id = $1
			 FOR UPDATE`,
			eventID,
		).Scan(&price, &maxTickets, &sold, &organizer)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: event %d", ledger.ErrNotFound, eventID)
			}
			return fmt.Errorf("lock event row: %w", err)
		}

		if sold >= maxTickets {
			return fmt.Errorf("%w: event %d sold %d of %d", ledger.ErrSoldOut, eventID, sold, maxTickets)
		}
		if p.PaidAmount != price {
			return fmt.Errorf("%w: event %d costs %d, paid %d", ledger.ErrPaymentMismatch, eventID, price, p.PaidAmount)
		}

		now := s.clock.Now()
		err = tx.QueryRow(ctx,
			`INSERT INTO tickets (event_id, owner_identity, purchased_at, acquired_at, metadata_ref, origin_tx_ref)
			 VALUES ($1, $2, $3, $3, $4, $5)
			 RETURNING id`,
			eventID, p.Buyer, now, p.MetadataRef, p.OriginTxRef,
		).Scan(&ticketID)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE events
			 SET tickets_sold = tickets_sold + 1, total_earnings = total_earnings + $2
			 WHERE id = $1`,
			eventID, p.PaidAmount,
		); err != nil {
			return fmt.Errorf("update event sales: %w", err)
		}

		return creditOrganizer(ctx, tx, organizer, p.PaidAmount)
	})
	if err != nil {
		return 0, err
	}
	return ticketID, nil
}

// GetTicket returns a single ticket or ErrNotFound.
func (s *Store) GetTicket(ctx context.Context, ticketID uint64) (model.Ticket, error) {
	var t model.Ticket
	err := s.db.QueryRow(ctx,
		`SELECT id, event_id, owner_identity, used, purchased_at, metadata_ref, origin_tx_ref, resale_count
		 FROM tickets WHERE id = $1`,
		ticketID,
	).Scan(&t.ID, &t.EventID, &t.Owner, &t.Used, &t.PurchasedAt, &t.MetadataRef, &t.OriginTxRef, &t.ResaleCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ticket{}, fmt.Errorf("%w: ticket %d", ledger.ErrNotFound, ticketID)
		}
		return model.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// TicketsOf returns the owner's current ticket ids in acquisition order.
func (s *Store) TicketsOf(ctx context.Context, owner model.Identity) ([]uint64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM tickets WHERE owner_identity = $1 ORDER BY acquired_at, id`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list tickets of owner: %w", err)
	}
	return scanIDs(rows)
}

// MarkUsed flips the used flag exactly once.
func (s *Store) MarkUsed(ctx context.Context, ticketID uint64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var used bool
		err := tx.QueryRow(ctx,
			`SELECT used FROM tickets WHERE id = $1 FOR UPDATE`,
			ticketID,
		).Scan(&used)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: ticket %d", ledger.ErrNotFound, ticketID)
			}
			return fmt.Errorf("lock ticket row: %w", err)
		}
		if used {
			return fmt.Errorf("%w: ticket %d", ledger.ErrAlreadyUsed, ticketID)
		}
		if _, err := tx.Exec(ctx, `UPDATE tickets SET used = TRUE WHERE id = $1`, ticketID); err != nil {
			return fmt.Errorf("mark ticket used: %w", err)
		}
		return nil
	})
}

// ─── Resale ──────────────────────────────────────────────────────────

// ListForResale creates or replaces the listing for a ticket. A
// replaced listing is deleted and re-inserted so it moves to the back
// of the browse order.
func (s *Store) ListForResale(ctx context.Context, ticketID uint64, seller model.Identity, askPrice uint64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var owner model.Identity
		var used bool
		err := tx.QueryRow(ctx,
			`SELECT owner_identity, used FROM tickets WHERE id = $1 FOR UPDATE`,
			ticketID,
		).Scan(&owner, &used)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: ticket %d", ledger.ErrNotFound, ticketID)
			}
			return fmt.Errorf("lock ticket row: %w", err)
		}

		if owner != seller {
			return fmt.Errorf("%w: ticket %d belongs to %s", ledger.ErrNotOwner, ticketID, owner)
		}
		if askPrice == 0 || askPrice > ledger.MaxAmount {
			return fmt.Errorf("%w: ticket %d", ledger.ErrInvalidPrice, ticketID)
		}
		if used {
			return fmt.Errorf("%w: ticket %d", ledger.ErrAlreadyUsed, ticketID)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM listings WHERE ticket_id = $1`, ticketID); err != nil {
			return fmt.Errorf("clear old listing: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO listings (ticket_id, seller, ask_price, listed_at) VALUES ($1, $2, $3, $4)`,
			ticketID, seller, askPrice, s.clock.Now(),
		); err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
		return nil
	})
}

// BuyResale atomically transfers ownership, clears the listing, bumps
// the resale count, and splits the payment between the seller's pool
// and the organizer's royalty pool. Racing purchases serialize on the
// ticket row lock; the loser finds the listing already gone.
func (s *Store) BuyResale(ctx context.Context, ticketID uint64, buyer model.Identity, paidAmount uint64) error {
	if buyer == "" {
		return fmt.Errorf("%w: buyer identity is required", ledger.ErrInvalidInput)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		// Lock the ticket first so a concurrent BuyResale or
		// ListForResale on the same ticket waits here.
		var eventID uint64
		var owner model.Identity
		var used bool
		err := tx.QueryRow(ctx,
			`SELECT event_id, owner_identity, used FROM tickets WHERE id = $1 FOR UPDATE`,
			ticketID,
		).Scan(&eventID, &owner, &used)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: no listing for ticket %d", ledger.ErrNotFound, ticketID)
			}
			return fmt.Errorf("lock ticket row: %w", err)
		}

		var askPrice uint64
		err = tx.QueryRow(ctx,
			`SELECT ask_price FROM listings WHERE ticket_id = $1`,
			ticketID,
		).Scan(&askPrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: no listing for ticket %d", ledger.ErrNotFound, ticketID)
			}
			return fmt.Errorf("get listing: %w", err)
		}

		if owner == buyer {
			return fmt.Errorf("%w: ticket %d", ledger.ErrSelfPurchase, ticketID)
		}
		if used {
			return fmt.Errorf("%w: ticket %d", ledger.ErrAlreadyUsed, ticketID)
		}
		if paidAmount != askPrice {
			return fmt.Errorf("%w: ticket %d listed at %d, paid %d", ledger.ErrPaymentMismatch, ticketID, askPrice, paidAmount)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE tickets
			 SET owner_identity = $2, resale_count = resale_count + 1, acquired_at = $3
			 WHERE id = $1`,
			ticketID, buyer, s.clock.Now(),
		); err != nil {
			return fmt.Errorf("transfer ticket: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM listings WHERE ticket_id = $1`, ticketID); err != nil {
			return fmt.Errorf("clear listing: %w", err)
		}

		sellerShare, royalty := s.royalty.Split(paidAmount)
		if sellerShare > 0 {
			if err := creditSeller(ctx, tx, owner, sellerShare); err != nil {
				return err
			}
		}
		if royalty > 0 {
			var organizer model.Identity
			if err := tx.QueryRow(ctx,
				`UPDATE events SET total_resale_earnings = total_resale_earnings + $2
				 WHERE id = $1
				 RETURNING organizer`,
				eventID, royalty,
			).Scan(&organizer); err != nil {
				return fmt.Errorf("accrue resale earnings: %w", err)
			}
			if err := creditOrganizer(ctx, tx, organizer, royalty); err != nil {
				return err
			}
		}
		return nil
	})
}

// ActiveResales returns every live listing in listing-creation order.
func (s *Store) ActiveResales(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ticket_id, seller, ask_price, listed_at FROM listings ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active resales: %w", err)
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := rows.Scan(&l.TicketID, &l.Seller, &l.AskPrice, &l.ListedAt); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ResalePrice returns the current ask for a ticket, or ok=false when
// no listing is active.
func (s *Store) ResalePrice(ctx context.Context, ticketID uint64) (uint64, bool, error) {
	// LEFT JOIN yields a NULL ask when the ticket exists unlisted.
	var price *uint64
	err := s.db.QueryRow(ctx,
		`SELECT l.ask_price
		 FROM tickets t LEFT JOIN listings l ON l.ticket_id = t.id
		 WHERE t.id = $1`,
		ticketID,
	).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, fmt.Errorf("%w: ticket %d", ledger.ErrNotFound, ticketID)
		}
		return 0, false, fmt.Errorf("get resale price: %w", err)
	}
	if price == nil {
		return 0, false, nil
	}
	return *price, true, nil
}

// ─── Balances and withdrawals ────────────────────────────────────────

// Balance returns both pools for an identity; unknown identities read
// as zero.
func (s *Store) Balance(ctx context.Context, identity model.Identity) (model.Balance, error) {
	var b model.Balance
	err := s.db.QueryRow(ctx,
		`SELECT seller_pool, organizer_pool FROM balances WHERE identity = $1`,
		identity,
	).Scan(&b.SellerPool, &b.OrganizerPool)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Balance{}, nil
		}
		return model.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// WithdrawSeller zeroes the seller pool and returns the prior balance.
func (s *Store) WithdrawSeller(ctx context.Context, identity model.Identity) (uint64, error) {
	return s.withdraw(ctx, identity, "seller_pool")
}

// WithdrawOrganizer zeroes the organizer pool and returns the prior
// balance.
func (s *Store) WithdrawOrganizer(ctx context.Context, identity model.Identity) (uint64, error) {
	return s.withdraw(ctx, identity, "organizer_pool")
}

// column is one of the two fixed pool names, never caller input.
func (s *Store) withdraw(ctx context.Context, identity model.Identity, column string) (uint64, error) {
	var amount uint64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM balances WHERE identity = $1 FOR UPDATE`, column),
			identity,
		).Scan(&amount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: no funds for %s", ledger.ErrNothingToWithdraw, identity)
			}
			return fmt.Errorf("lock balance row: %w", err)
		}
		if amount == 0 {
			return fmt.Errorf("%w: no funds for %s", ledger.ErrNothingToWithdraw, identity)
		}
		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`UPDATE balances SET %s = 0 WHERE identity = $1`, column),
			identity,
		); err != nil {
			return fmt.Errorf("zero balance pool: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func creditSeller(ctx context.Context, tx pgx.Tx, identity model.Identity, amount uint64) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO balances (identity, seller_pool) VALUES ($1, $2)
		 ON CONFLICT (identity) DO UPDATE SET seller_pool = balances.seller_pool + EXCLUDED.seller_pool`,
		identity, amount,
	); err != nil {
		return fmt.Errorf("credit seller pool: %w", err)
	}
	return nil
}

func creditOrganizer(ctx context.Context, tx pgx.Tx, identity model.Identity, amount uint64) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO balances (identity, organizer_pool) VALUES ($1, $2)
		 ON CONFLICT (identity) DO UPDATE SET organizer_pool = balances.organizer_pool + EXCLUDED.organizer_pool`,
		identity, amount,
	); err != nil {
		return fmt.Errorf("credit organizer pool: %w", err)
	}
	return nil
}

func scanIDs(rows pgx.Rows) ([]uint64, error) {
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
