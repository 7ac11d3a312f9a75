package repositories

import (
	"context"
	"errors"
	"time"

	"finops/internal/models"
)

// ErrStaleBalance is returned by UpdateBalance when the stored version no
// longer matches the one that was read. The surrounding transaction must be
// retried.
var ErrStaleBalance = errors.New("balance changed since it was read")

// ProfileRepository defines profile and agency persistence. Balance changes go
// only through UpdateBalance.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	// GetProfileForUpdate reads the profile holding a row lock until the
	// surrounding transaction ends.
	GetProfileForUpdate(ctx context.Context, id string) (*models.Profile, error)
	UpdateBalance(ctx context.Context, id string, expectedVersion, newBalance int64) error
	UpdateProfileAttributes(ctx context.Context, profile *models.Profile) error
	ListProfileIDs(ctx context.Context) ([]string, error)

	CreateAgency(ctx context.Context, agency *models.Agency) error
	GetAgency(ctx context.Context, id string) (*models.Agency, error)
}

// LedgerRepository defines ledger persistence. Entries are insert-only.
type LedgerRepository interface {
	CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, int64, error)
	// LedgerChain returns every entry of the account ordered by sequence.
	LedgerChain(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
}

// OperationRepository defines operation and validation persistence.
type OperationRepository interface {
	CreateOperation(ctx context.Context, op *models.Operation) error
	GetOperation(ctx context.Context, id string) (*models.Operation, error)
	GetOperationForUpdate(ctx context.Context, id string) (*models.Operation, error)
	// FinalizeOperation moves a pending operation to status. It fails with
	// ErrOperationFinalized when the operation is no longer pending.
	FinalizeOperation(ctx context.Context, id, status, validatorID string, commission int64, at time.Time) error
	CreateValidation(ctx context.Context, v *models.OperationValidation) error
	GetValidationByOperation(ctx context.Context, operationID string) (*models.OperationValidation, error)
}

// CommissionRepository defines commission record and transfer persistence.
type CommissionRepository interface {
	CreateCommissionRecord(ctx context.Context, rec *models.CommissionRecord) error
	GetCommissionRecord(ctx context.Context, id string) (*models.CommissionRecord, error)
	GetCommissionRecordForUpdate(ctx context.Context, id string) (*models.CommissionRecord, error)
	// MarkCommissionPaid fails with ErrCommissionSettled when the record is
	// not pending.
	MarkCommissionPaid(ctx context.Context, id string, at time.Time) error
	CreateCommissionTransfer(ctx context.Context, t *models.CommissionTransfer) error
	GetTransferByReference(ctx context.Context, reference string) (*models.CommissionTransfer, error)
	ListTransfersByRecord(ctx context.Context, recordID string) ([]models.CommissionTransfer, error)
}

// TicketRepository defines request ticket persistence.
type TicketRepository interface {
	CreateTicket(ctx context.Context, t *models.RequestTicket) error
	GetTicket(ctx context.Context, id string) (*models.RequestTicket, error)
	GetTicketForUpdate(ctx context.Context, id string) (*models.RequestTicket, error)
	// ResolveTicket fails with ErrTicketResolved when the ticket is already
	// resolved or closed.
	ResolveTicket(ctx context.Context, id, resolverID, notes string, at time.Time) error
}

// RechargeRepository defines recharge operation persistence.
type RechargeRepository interface {
	CreateRechargeOperation(ctx context.Context, op *models.RechargeOperation) error
	GetRechargeByTicket(ctx context.Context, ticketID string) (*models.RechargeOperation, error)
}

// Store is the unit of work handed to the processors. Inside
// ExecuteInTransaction every call on the Store passed to fn runs in the same
// database transaction.
type Store interface {
	ProfileRepository
	LedgerRepository
	OperationRepository
	CommissionRepository
	TicketRepository
	RechargeRepository

	ExecuteInTransaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
