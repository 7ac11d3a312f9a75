// Package repotest builds SQLite-backed stores for tests and seeds the
// fixtures the processor tests share.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"finops/internal/models"
	"finops/internal/repositories"
	"finops/internal/utils/reference"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite database in a temp dir. A single connection
// serializes transactions the way row locks do on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "finops.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repositories.AutoMigrate(db))
	return db
}

// NewStore returns a Store over NewDB.
func NewStore(t *testing.T) repositories.Store {
	t.Helper()
	return repositories.NewStore(NewDB(t))
}

// Profile creates an active profile with the given role and agency. The
// balance starts at zero.
func Profile(t *testing.T, store repositories.Store, role models.Role, agencyID *string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		FullName: string(role) + " user",
		Email:    string(role) + "@example.test",
		RoleName: string(role),
		AgencyID: agencyID,
		IsActive: true,
	}
	require.NoError(t, store.CreateProfile(context.Background(), p))
	return p
}

// Agency creates an agency and returns its id.
func Agency(t *testing.T, store repositories.Store, name string) string {
	t.Helper()
	a := &models.Agency{Name: name}
	require.NoError(t, store.CreateAgency(context.Background(), a))
	return a.ID
}

// Fund credits an account through a raw store transaction so tests can start
// from a non-zero balance while keeping the ledger chain intact.
func Fund(t *testing.T, store repositories.Store, accountID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		p, err := tx.GetProfileForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		entry := &models.LedgerEntry{
			AccountID:     accountID,
			Sequence:      p.Version + 1,
			Kind:          models.LedgerKindAdjustment,
			Delta:         amount,
			BalanceBefore: p.Balance,
			BalanceAfter:  p.Balance + amount,
			Description:   "test funding",
		}
		if err := tx.CreateLedgerEntry(ctx, entry); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, accountID, p.Version, p.Balance+amount)
	})
	require.NoError(t, err)
}

// Balance reads the stored balance of an account.
func Balance(t *testing.T, store repositories.Store, accountID string) int64 {
	t.Helper()
	p, err := store.GetProfile(context.Background(), accountID)
	require.NoError(t, err)
	return p.Balance
}

// LedgerCount returns how many ledger entries the account has.
func LedgerCount(t *testing.T, store repositories.Store, accountID string) int {
	t.Helper()
	entries, err := store.LedgerChain(context.Background(), accountID)
	require.NoError(t, err)
	return len(entries)
}

// Ticket creates an open request ticket.
func Ticket(t *testing.T, store repositories.Store, requesterID, ticketType string, amount int64) *models.RequestTicket {
	t.Helper()
	ticket := &models.RequestTicket{
		RequesterID:     requesterID,
		TicketType:      ticketType,
		RequestedAmount: amount,
	}
	require.NoError(t, store.CreateTicket(context.Background(), ticket))
	return ticket
}

// Operation creates a pending operation initiated by initiatorID.
func Operation(t *testing.T, store repositories.Store, initiatorID string, amount int64) *models.Operation {
	t.Helper()
	op := &models.Operation{
		ID:            uuid.NewString(),
		OperationType: "deposit",
		InitiatorID:   initiatorID,
		Amount:        amount,
	}
	op.ReferenceNumber = reference.Operation(op.ID)
	require.NoError(t, store.CreateOperation(context.Background(), op))
	return op
}

// CommissionRecord creates a pending commission record for agentID.
func CommissionRecord(t *testing.T, store repositories.Store, agentID string, agentShare, chefShare int64) *models.CommissionRecord {
	t.Helper()
	rec := &models.CommissionRecord{
		OperationID:     uuid.NewString(),
		AgentID:         agentID,
		AgentCommission: agentShare,
		ChefCommission:  chefShare,
	}
	require.NoError(t, store.CreateCommissionRecord(context.Background(), rec))
	return rec
}
