package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultMaxRetries      = 5
	defaultInitialInterval = 10 * time.Millisecond
	defaultMaxInterval     = 500 * time.Millisecond
)

// Service is the only writer of balances.
type Service interface {
	// Apply performs one balance change inside the caller's transaction.
	// Inside Run the change is reported to metrics once the unit of work
	// commits.
	Apply(ctx context.Context, tx repositories.Store, req DeltaRequest) (*models.LedgerEntry, error)
	// ApplyBalanceDelta performs one balance change in its own transaction.
	ApplyBalanceDelta(ctx context.Context, req DeltaRequest) (*models.LedgerEntry, error)
	// Run executes fn as one transaction, replaying it when a balance
	// changed underneath.
	Run(ctx context.Context, operation string, fn func(tx repositories.Store) error) error

	GetAccount(ctx context.Context, accountID string) (*models.Profile, error)
	ListEntries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, int64, error)
	VerifyAccount(ctx context.Context, accountID string) (*VerificationReport, error)
	VerifyAll(ctx context.Context) ([]VerificationReport, error)
}

type service struct {
	store   repositories.Store
	config  Config
	metrics MetricsCollector
	log     logrus.FieldLogger
}

// NewService creates a new ledger service
func NewService(store repositories.Store, config Config, metrics MetricsCollector, log logrus.FieldLogger) Service {
	if store == nil {
		panic("store is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaultMaxRetries
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = defaultInitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = defaultMaxInterval
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &service{
		store:   store,
		config:  config,
		metrics: metrics,
		log:     log.WithField("component", "ledger"),
	}
}

func (s *service) Apply(ctx context.Context, tx repositories.Store, req DeltaRequest) (*models.LedgerEntry, error) {
	if req.AccountID == "" {
		return nil, apperrors.InvalidArgument("account id is required")
	}
	if req.Delta == 0 {
		return nil, ErrZeroDelta
	}
	if req.Delta == math.MinInt64 {
		return nil, ErrBalanceOverflow
	}
	if !req.Kind.Valid() {
		return nil, ErrUnknownKind
	}

	profile, err := tx.GetProfileForUpdate(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if (req.Delta > 0 && profile.Balance > math.MaxInt64-req.Delta) ||
		(req.Delta < 0 && profile.Balance < math.MinInt64-req.Delta) {
		return nil, ErrBalanceOverflow
	}

	entry := &models.LedgerEntry{
		AccountID:     profile.ID,
		Sequence:      profile.Version + 1,
		Kind:          req.Kind,
		Delta:         req.Delta,
		BalanceBefore: profile.Balance,
		BalanceAfter:  profile.Balance + req.Delta,
		Description:   req.Description,
		OperationID:   req.OperationID,
		Metadata:      models.NewJSON(req.Metadata),
	}
	if err := tx.CreateLedgerEntry(ctx, entry); err != nil {
		// Another writer already took this sequence number.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, repositories.ErrStaleBalance
		}
		return nil, err
	}

	if err := tx.UpdateBalance(ctx, profile.ID, profile.Version, entry.BalanceAfter); err != nil {
		return nil, err
	}

	if j, ok := tx.(*journal); ok {
		j.entries = append(j.entries, entry)
	} else {
		s.recordEntries([]*models.LedgerEntry{entry})
	}

	return entry, nil
}

func (s *service) ApplyBalanceDelta(ctx context.Context, req DeltaRequest) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.Run(ctx, "balance_delta", func(tx repositories.Store) error {
		var err error
		entry, err = s.Apply(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Run(ctx context.Context, operation string, fn func(tx repositories.Store) error) error {
	start := time.Now()
	attempts := 0
	var committed *journal

	attempt := func() error {
		attempts++
		committed = nil
		err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
			j := &journal{Store: tx}
			if err := fn(j); err != nil {
				return err
			}
			committed = j
			return nil
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, repositories.ErrStaleBalance) {
			s.metrics.RecordRetry(operation)
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(s.newBackOff(), uint64(s.config.MaxRetries)), ctx))
	s.metrics.RecordOperationDuration(operation, time.Since(start))

	if err != nil {
		if errors.Is(err, repositories.ErrStaleBalance) {
			err = apperrors.Transient(
				fmt.Sprintf("balance kept changing after %d attempts", attempts), err)
		}
		kind := apperrors.KindOf(err)
		s.metrics.RecordOperationResult(operation, "failure")
		s.metrics.RecordError(operation, string(kind))
		s.log.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"attempts":  attempts,
			"kind":      kind,
		}).Warn("unit of work rolled back")
		return err
	}

	if committed != nil {
		s.recordEntries(committed.entries)
	}
	s.metrics.RecordOperationResult(operation, "success")
	return nil
}

// journal is the Store handed to a unit of work. It keeps the entries
// appended during one attempt so they are only reported once committed.
type journal struct {
	repositories.Store
	entries []*models.LedgerEntry
}

func (s *service) recordEntries(entries []*models.LedgerEntry) {
	for _, entry := range entries {
		s.metrics.RecordBalanceChange(string(entry.Kind), entry.Delta)
		s.log.WithFields(logrus.Fields{
			"account_id": entry.AccountID,
			"sequence":   entry.Sequence,
			"kind":       entry.Kind,
			"delta":      entry.Delta,
		}).Debug("ledger entry appended")
	}
}

func (s *service) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.InitialInterval
	b.MaxInterval = s.config.MaxInterval
	b.MaxElapsedTime = 0
	return b
}

func (s *service) GetAccount(ctx context.Context, accountID string) (*models.Profile, error) {
	return s.store.GetProfile(ctx, accountID)
}

func (s *service) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListLedgerEntries(ctx, accountID, limit, offset)
}
