package ledger

import (
	"context"
	"fmt"

	"finops/internal/models"

	"github.com/sirupsen/logrus"
)

// VerifyAccount replays the account's chain from zero and reports every
// broken link and any mismatch with the stored balance.
func (s *service) VerifyAccount(ctx context.Context, accountID string) (*VerificationReport, error) {
	profile, err := s.store.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.LedgerChain(ctx, accountID)
	if err != nil {
		return nil, err
	}

	report := replay(profile, entries)
	if !report.Consistent {
		s.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"problems":   len(report.Problems),
		}).Error("ledger chain inconsistent")
	}
	return report, nil
}

// VerifyAll runs VerifyAccount over every profile.
func (s *service) VerifyAll(ctx context.Context) ([]VerificationReport, error) {
	ids, err := s.store.ListProfileIDs(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]VerificationReport, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := s.VerifyAccount(ctx, id)
		if err != nil {
			return reports, err
		}
		reports = append(reports, *r)
	}
	return reports, nil
}

func replay(profile *models.Profile, entries []models.LedgerEntry) *VerificationReport {
	report := &VerificationReport{
		AccountID:     profile.ID,
		Entries:       len(entries),
		StoredBalance: profile.Balance,
		StoredVersion: profile.Version,
	}

	var running int64
	for i, e := range entries {
		want := int64(i + 1)
		if e.Sequence != want {
			report.Problems = append(report.Problems,
				fmt.Sprintf("entry %s: sequence %d, expected %d", e.ID, e.Sequence, want))
		}
		if e.BalanceBefore != running {
			report.Problems = append(report.Problems,
				fmt.Sprintf("entry %d: balance_before %d does not follow previous balance %d", e.Sequence, e.BalanceBefore, running))
		}
		if e.BalanceAfter != e.BalanceBefore+e.Delta {
			report.Problems = append(report.Problems,
				fmt.Sprintf("entry %d: balance_after %d != %d%+d", e.Sequence, e.BalanceAfter, e.BalanceBefore, e.Delta))
		}
		running += e.Delta
	}

	report.ReplayedBalance = running
	if running != profile.Balance {
		report.Problems = append(report.Problems,
			fmt.Sprintf("replayed balance %d != stored balance %d", running, profile.Balance))
	}
	if int64(len(entries)) != profile.Version {
		report.Problems = append(report.Problems,
			fmt.Sprintf("%d entries but account version is %d", len(entries), profile.Version))
	}
	report.Consistent = len(report.Problems) == 0
	return report
}
