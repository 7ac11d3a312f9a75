package repotest

import (
	"context"
	"errors"
	"sync"
	"time"

	"finops/internal/models"
	"finops/internal/repositories"
)

// ErrInjected is the default error returned by a FaultyStore step.
var ErrInjected = errors.New("injected store failure")

// Faults decides which write step of a FaultyStore fails.
type Faults struct {
	mu        sync.Mutex
	step      string
	err       error
	remaining int
	hits      map[string]int
}

// FailOn makes step fail with err for the next times calls. times <= 0 fails
// every call.
func (f *Faults) FailOn(step string, err error, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	f.step, f.err, f.remaining = step, err, times
	if times <= 0 {
		f.remaining = -1
	}
}

// Hits returns how many times step was reached.
func (f *Faults) Hits(step string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[step]
}

func (f *Faults) check(step string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hits == nil {
		f.hits = map[string]int{}
	}
	f.hits[step]++
	if f.step != step || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.err
}

// FaultyStore wraps a Store and fails selected write steps.
type FaultyStore struct {
	repositories.Store
	faults *Faults
}

// NewFaultyStore wraps inner. Transactions opened through the wrapper hand
// out wrapped stores sharing the same Faults.
func NewFaultyStore(inner repositories.Store, faults *Faults) *FaultyStore {
	return &FaultyStore{Store: inner, faults: faults}
}

func (s *FaultyStore) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	return s.Store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return fn(&FaultyStore{Store: tx, faults: s.faults})
	})
}

func (s *FaultyStore) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := s.faults.check("CreateLedgerEntry"); err != nil {
		return err
	}
	return s.Store.CreateLedgerEntry(ctx, entry)
}

func (s *FaultyStore) UpdateBalance(ctx context.Context, id string, expectedVersion, newBalance int64) error {
	if err := s.faults.check("UpdateBalance"); err != nil {
		return err
	}
	return s.Store.UpdateBalance(ctx, id, expectedVersion, newBalance)
}

func (s *FaultyStore) CreateRechargeOperation(ctx context.Context, op *models.RechargeOperation) error {
	if err := s.faults.check("CreateRechargeOperation"); err != nil {
		return err
	}
	return s.Store.CreateRechargeOperation(ctx, op)
}

func (s *FaultyStore) ResolveTicket(ctx context.Context, id, resolverID, notes string, at time.Time) error {
	if err := s.faults.check("ResolveTicket"); err != nil {
		return err
	}
	return s.Store.ResolveTicket(ctx, id, resolverID, notes, at)
}

func (s *FaultyStore) CreateCommissionTransfer(ctx context.Context, t *models.CommissionTransfer) error {
	if err := s.faults.check("CreateCommissionTransfer"); err != nil {
		return err
	}
	return s.Store.CreateCommissionTransfer(ctx, t)
}

func (s *FaultyStore) MarkCommissionPaid(ctx context.Context, id string, at time.Time) error {
	if err := s.faults.check("MarkCommissionPaid"); err != nil {
		return err
	}
	return s.Store.MarkCommissionPaid(ctx, id, at)
}

func (s *FaultyStore) CreateValidation(ctx context.Context, v *models.OperationValidation) error {
	if err := s.faults.check("CreateValidation"); err != nil {
		return err
	}
	return s.Store.CreateValidation(ctx, v)
}

func (s *FaultyStore) FinalizeOperation(ctx context.Context, id, status, validatorID string, commission int64, at time.Time) error {
	if err := s.faults.check("FinalizeOperation"); err != nil {
		return err
	}
	return s.Store.FinalizeOperation(ctx, id, status, validatorID, commission, at)
}
