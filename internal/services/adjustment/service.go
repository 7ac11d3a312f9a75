// Package adjustment applies manual balance corrections by admins.
package adjustment

import (
	"context"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/services/auth"
	"finops/internal/services/ledger"
	"finops/internal/validation"

	"github.com/sirupsen/logrus"
)

// Request is a signed correction of one account's balance.
type Request struct {
	AccountID   string
	Amount      int64
	Description string
}

type Service interface {
	Adjust(ctx context.Context, caller auth.Identity, req Request) (*models.LedgerEntry, error)
}

type service struct {
	ledger ledger.Service
	log    logrus.FieldLogger
}

func NewService(ledgerService ledger.Service, log logrus.FieldLogger) Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{ledger: ledgerService, log: log.WithField("component", "adjustment")}
}

func (s *service) Adjust(ctx context.Context, caller auth.Identity, req Request) (*models.LedgerEntry, error) {
	if !caller.Can().CanAdjust {
		return nil, apperrors.ErrInsufficientPermissions
	}

	v := validation.New()
	v.Required("account_id", req.AccountID)
	v.Check(req.Amount != 0, "amount", "must not be zero")
	v.Required("description", req.Description)
	v.MaxLength("description", req.Description, validation.MaxDescriptionLength)
	if err := v.Err(); err != nil {
		return nil, err
	}

	entry, err := s.ledger.ApplyBalanceDelta(ctx, ledger.DeltaRequest{
		AccountID:   req.AccountID,
		Delta:       req.Amount,
		Kind:        models.LedgerKindAdjustment,
		Description: req.Description,
		Metadata:    map[string]interface{}{"adjusted_by": caller.UserID},
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id":  entry.AccountID,
		"amount":      entry.Delta,
		"adjusted_by": caller.UserID,
	}).Info("balance adjusted")
	return entry, nil
}
