package repository_test

import (
	"testing"

	"github.com/tixmarket/ledger/internal/clock"
	"github.com/tixmarket/ledger/internal/ledger"
	"github.com/tixmarket/ledger/internal/ledger/ledgertest"
	"github.com/tixmarket/ledger/internal/repository"
	"github.com/tixmarket/ledger/internal/testutil"
)

// TestPostgresLedger runs the same behavior suite as the in-memory
// ledger against the postgres store. Requires TEST_DATABASE_URL.
func TestPostgresLedger(t *testing.T) {
	pool := testutil.NewTestPool(t)

	ledgertest.Run(t, func(t *testing.T, royaltyBps uint64) ledger.Ledger {
		testutil.Reset(t, pool)
		return repository.NewStore(pool, clock.NewSystem(), ledger.RoyaltyPolicy{RateBps: royaltyBps})
	})
}
