package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/metrics"
	"finops/internal/models"
	"finops/internal/repositories"
	"finops/internal/repositories/repotest"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, store repositories.Store) Service {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewService(store, Config{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, nil, log)
}

// recordingMetrics keeps the balance changes and retries it was told about.
type recordingMetrics struct {
	NoopMetricsCollector
	mu      sync.Mutex
	changes []int64
	retries int
}

func (m *recordingMetrics) RecordBalanceChange(_ string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, delta)
}

func (m *recordingMetrics) RecordRetry(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func newMeteredService(t *testing.T, store repositories.Store, m MetricsCollector) Service {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewService(store, Config{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}, m, log)
}

func TestApplyBalanceDelta_ChainConsistency(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore(t)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)

	deltas := []int64{100000, -2500, 750, -98250}
	for _, d := range deltas {
		kind := models.LedgerKindOperationCredit
		if d < 0 {
			kind = models.LedgerKindOperationDebit
		}
		_, err := svc.ApplyBalanceDelta(ctx, DeltaRequest{AccountID: agent.ID, Delta: d, Kind: kind})
		require.NoError(t, err)
	}

	chain, err := store.LedgerChain(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, chain, len(deltas))

	var prev int64
	for i, e := range chain {
		assert.Equal(t, int64(i+1), e.Sequence)
		assert.Equal(t, prev, e.BalanceBefore)
		assert.Equal(t, e.BalanceBefore+e.Delta, e.BalanceAfter)
		prev = e.BalanceAfter
	}
	assert.Equal(t, prev, repotest.Balance(t, store, agent.ID))

	report, err := svc.VerifyAccount(ctx, agent.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, report.Problems)
	assert.Equal(t, int64(0), report.ReplayedBalance)
}

func TestApplyBalanceDelta_NegativeBalanceAllowed(t *testing.T) {
	store := repotest.NewStore(t)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)

	entry, err := svc.ApplyBalanceDelta(context.Background(), DeltaRequest{
		AccountID: agent.ID,
		Delta:     -500,
		Kind:      models.LedgerKindAdjustment,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-500), entry.BalanceAfter)
	assert.Equal(t, int64(-500), repotest.Balance(t, store, agent.ID))
}

func TestApplyBalanceDelta_Rejections(t *testing.T) {
	store := repotest.NewStore(t)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)

	tests := []struct {
		name string
		req  DeltaRequest
		want error
		kind apperrors.Kind
	}{
		{
			name: "zero delta",
			req:  DeltaRequest{AccountID: agent.ID, Delta: 0, Kind: models.LedgerKindRecharge},
			want: ErrZeroDelta,
			kind: apperrors.KindInvalidArgument,
		},
		{
			name: "unknown kind",
			req:  DeltaRequest{AccountID: agent.ID, Delta: 10, Kind: "bonus"},
			want: ErrUnknownKind,
			kind: apperrors.KindInvalidArgument,
		},
		{
			name: "missing account",
			req:  DeltaRequest{AccountID: "4b0a7f64-27c5-4a0e-9f4b-111111111111", Delta: 10, Kind: models.LedgerKindRecharge},
			want: apperrors.ErrAccountNotFound,
			kind: apperrors.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyBalanceDelta(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}

	assert.Equal(t, 0, repotest.LedgerCount(t, store, agent.ID))
	assert.Equal(t, int64(0), repotest.Balance(t, store, agent.ID))
}

// The test database runs on a single connection, so these callers queue
// rather than interleave. Interleaved reads are covered by
// TestApplyBalanceDelta_StaleReadRetriesDuplicateSequence.
func TestApplyBalanceDelta_ConcurrentCallers(t *testing.T) {
	store := repotest.NewStore(t)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyBalanceDelta(context.Background(), DeltaRequest{
				AccountID: agent.ID,
				Delta:     40,
				Kind:      models.LedgerKindCommissionCredit,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(workers*40), repotest.Balance(t, store, agent.ID))
	assert.Equal(t, workers, repotest.LedgerCount(t, store, agent.ID))

	report, err := svc.VerifyAccount(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, report.Problems)
}

func TestRun_RetriesStaleBalance(t *testing.T) {
	inner := repotest.NewStore(t)
	faults := &repotest.Faults{}
	store := repotest.NewFaultyStore(inner, faults)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, inner, models.RoleAgent, nil)

	faults.FailOn("UpdateBalance", repositories.ErrStaleBalance, 2)

	entry, err := svc.ApplyBalanceDelta(context.Background(), DeltaRequest{
		AccountID: agent.ID,
		Delta:     300,
		Kind:      models.LedgerKindRecharge,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Sequence)
	assert.Equal(t, 3, faults.Hits("UpdateBalance"))

	// The two failed attempts were rolled back.
	assert.Equal(t, 1, repotest.LedgerCount(t, inner, agent.ID))
	assert.Equal(t, int64(300), repotest.Balance(t, inner, agent.ID))
}

func TestRun_ExhaustedRetriesAreTransient(t *testing.T) {
	inner := repotest.NewStore(t)
	faults := &repotest.Faults{}
	store := repotest.NewFaultyStore(inner, faults)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, inner, models.RoleAgent, nil)

	faults.FailOn("UpdateBalance", repositories.ErrStaleBalance, 0)

	_, err := svc.ApplyBalanceDelta(context.Background(), DeltaRequest{
		AccountID: agent.ID,
		Delta:     300,
		Kind:      models.LedgerKindRecharge,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransient, apperrors.KindOf(err))
	assert.ErrorIs(t, err, repositories.ErrStaleBalance)
	// One attempt plus three retries.
	assert.Equal(t, 4, faults.Hits("UpdateBalance"))
	assert.Equal(t, 0, repotest.LedgerCount(t, inner, agent.ID))
}

func TestRun_PermanentErrorIsNotRetried(t *testing.T) {
	inner := repotest.NewStore(t)
	faults := &repotest.Faults{}
	svc := newTestService(t, repotest.NewFaultyStore(inner, faults))
	agent := repotest.Profile(t, inner, models.RoleAgent, nil)

	faults.FailOn("CreateLedgerEntry", nil, 0)

	_, err := svc.ApplyBalanceDelta(context.Background(), DeltaRequest{
		AccountID: agent.ID,
		Delta:     1,
		Kind:      models.LedgerKindRecharge,
	})
	assert.ErrorIs(t, err, repotest.ErrInjected)
	assert.Equal(t, 1, faults.Hits("CreateLedgerEntry"))
}

func TestVerifyAccount_DetectsTampering(t *testing.T) {
	db := repotest.NewDB(t)
	store := repositories.NewStore(db)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)
	repotest.Fund(t, store, agent.ID, 1000)

	require.NoError(t, db.Model(&models.Profile{}).
		Where("id = ?", agent.ID).
		UpdateColumn("balance", 5000).Error)

	report, err := svc.VerifyAccount(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, int64(1000), report.ReplayedBalance)
	assert.Equal(t, int64(5000), report.StoredBalance)
	assert.NotEmpty(t, report.Problems)
}

func TestVerifyAll(t *testing.T) {
	store := repotest.NewStore(t)
	svc := newTestService(t, store)
	a := repotest.Profile(t, store, models.RoleAgent, nil)
	b := repotest.Profile(t, store, models.RoleChefAgence, nil)
	repotest.Fund(t, store, a.ID, 10)
	repotest.Fund(t, store, b.ID, 20)

	reports, err := svc.VerifyAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.Consistent)
	}
}

func TestListEntries_NewestFirst(t *testing.T) {
	store := repotest.NewStore(t)
	svc := newTestService(t, store)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)
	for i := 0; i < 3; i++ {
		repotest.Fund(t, store, agent.ID, 5)
	}

	entries, total, err := svc.ListEntries(context.Background(), agent.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].Sequence)
}

func TestApplyBalanceDelta_MinInt64Rejected(t *testing.T) {
	store := repotest.NewStore(t)
	svc := newMeteredService(t, store, metrics.New())
	agent := repotest.Profile(t, store, models.RoleAgent, nil)

	var err error
	require.NotPanics(t, func() {
		_, err = svc.ApplyBalanceDelta(context.Background(), DeltaRequest{
			AccountID: agent.ID,
			Delta:     math.MinInt64,
			Kind:      models.LedgerKindAdjustment,
		})
	})
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
	assert.Equal(t, 0, repotest.LedgerCount(t, store, agent.ID))
	assert.Equal(t, int64(0), repotest.Balance(t, store, agent.ID))
}

func TestRun_BalanceChangesReportedAfterCommit(t *testing.T) {
	ctx := context.Background()
	errLater := errors.New("later step failed")

	t.Run("rolled back unit of work", func(t *testing.T) {
		store := repotest.NewStore(t)
		m := &recordingMetrics{}
		svc := newMeteredService(t, store, m)
		agent := repotest.Profile(t, store, models.RoleAgent, nil)

		err := svc.Run(ctx, "recharge", func(tx repositories.Store) error {
			if _, err := svc.Apply(ctx, tx, DeltaRequest{
				AccountID: agent.ID,
				Delta:     100,
				Kind:      models.LedgerKindRecharge,
			}); err != nil {
				return err
			}
			return errLater
		})
		assert.ErrorIs(t, err, errLater)
		assert.Equal(t, 0, repotest.LedgerCount(t, store, agent.ID))
		assert.Empty(t, m.changes)
	})

	t.Run("committed unit of work", func(t *testing.T) {
		store := repotest.NewStore(t)
		m := &recordingMetrics{}
		svc := newMeteredService(t, store, m)
		agent := repotest.Profile(t, store, models.RoleAgent, nil)

		err := svc.Run(ctx, "recharge", func(tx repositories.Store) error {
			for _, d := range []int64{100, -30} {
				kind := models.LedgerKindOperationCredit
				if d < 0 {
					kind = models.LedgerKindOperationDebit
				}
				if _, err := svc.Apply(ctx, tx, DeltaRequest{AccountID: agent.ID, Delta: d, Kind: kind}); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{100, -30}, m.changes)
	})

	t.Run("retried attempts are not reported", func(t *testing.T) {
		inner := repotest.NewStore(t)
		faults := &repotest.Faults{}
		m := &recordingMetrics{}
		svc := newMeteredService(t, repotest.NewFaultyStore(inner, faults), m)
		agent := repotest.Profile(t, inner, models.RoleAgent, nil)

		// The first two attempts lose the compare-and-swap.
		faults.FailOn("UpdateBalance", repositories.ErrStaleBalance, 2)

		_, err := svc.ApplyBalanceDelta(ctx, DeltaRequest{
			AccountID: agent.ID,
			Delta:     300,
			Kind:      models.LedgerKindRecharge,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, m.retries)
		assert.Equal(t, []int64{300}, m.changes)
	})
}

// staleReadStore serves the previous version of an account while stale is
// positive, as a reader racing a committed writer would see it.
type staleReadStore struct {
	repositories.Store
	stale *int
}

func (s staleReadStore) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	return s.Store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return fn(staleReadStore{Store: tx, stale: s.stale})
	})
}

func (s staleReadStore) GetProfileForUpdate(ctx context.Context, id string) (*models.Profile, error) {
	profile, err := s.Store.GetProfileForUpdate(ctx, id)
	if err != nil || *s.stale == 0 || profile.Version == 0 {
		return profile, err
	}
	*s.stale--

	chain, err := s.Store.LedgerChain(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := *profile
	prev.Version--
	prev.Balance = chain[len(chain)-1].BalanceBefore
	return &prev, nil
}

func TestApplyBalanceDelta_StaleReadRetriesDuplicateSequence(t *testing.T) {
	ctx := context.Background()
	inner := repotest.NewStore(t)
	agent := repotest.Profile(t, inner, models.RoleAgent, nil)
	repotest.Fund(t, inner, agent.ID, 5)

	stale := 1
	m := &recordingMetrics{}
	svc := newMeteredService(t, staleReadStore{Store: inner, stale: &stale}, m)

	entry, err := svc.ApplyBalanceDelta(ctx, DeltaRequest{
		AccountID: agent.ID,
		Delta:     10,
		Kind:      models.LedgerKindCommissionCredit,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stale)
	assert.Equal(t, 1, m.retries)

	assert.Equal(t, int64(2), entry.Sequence)
	assert.Equal(t, int64(5), entry.BalanceBefore)
	assert.Equal(t, int64(15), entry.BalanceAfter)
	assert.Equal(t, int64(15), repotest.Balance(t, inner, agent.ID))
	assert.Equal(t, 2, repotest.LedgerCount(t, inner, agent.ID))

	report, err := svc.VerifyAccount(ctx, agent.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, report.Problems)
}
