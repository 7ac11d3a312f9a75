// Package operation finalizes pending operations with an approve or reject
// decision.
package operation

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/repositories"
	"finops/internal/services/auth"
	"finops/internal/services/ledger"
	"finops/internal/validation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const operationName = "validate_operation"

// ValidationRequest carries a validator's decision. BalanceImpact and
// CommissionComputed are taken as supplied and stamped on the records.
type ValidationRequest struct {
	OperationID        string
	ValidatorID        string
	Decision           string
	Notes              string
	BalanceImpact      int64
	CommissionComputed int64
}

type Service interface {
	ValidateOperation(ctx context.Context, caller auth.Identity, req ValidationRequest) (*models.OperationValidation, error)
}

type service struct {
	ledger ledger.Service
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewService(ledgerService ledger.Service, log logrus.FieldLogger) Service {
	if ledgerService == nil {
		panic("ledger service is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &service{
		ledger: ledgerService,
		log:    log.WithField("component", "operation"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) ValidateOperation(ctx context.Context, caller auth.Identity, req ValidationRequest) (*models.OperationValidation, error) {
	if !caller.Can().CanValidate {
		return nil, apperrors.ErrInsufficientPermissions
	}
	if req.ValidatorID != "" && req.ValidatorID != caller.UserID {
		return nil, apperrors.Unauthorized("validator_id must be the authenticated caller")
	}

	v := validation.New()
	v.Required("operation_id", req.OperationID)
	v.OneOf("validation_status", req.Decision, models.DecisionApproved, models.DecisionRejected)
	v.NonNegative("commission_calculated", req.CommissionComputed)
	v.MaxLength("validation_notes", req.Notes, validation.MaxNotesLength)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var result *models.OperationValidation
	err := s.ledger.Run(ctx, operationName, func(tx repositories.Store) error {
		op, err := tx.GetOperationForUpdate(ctx, req.OperationID)
		if err != nil {
			return err
		}
		if op.IsTerminal() {
			return apperrors.ErrOperationFinalized
		}

		now := s.now()
		validationRecord := &models.OperationValidation{
			OperationID:        op.ID,
			ValidatorID:        caller.UserID,
			Decision:           req.Decision,
			Notes:              req.Notes,
			BalanceImpact:      req.BalanceImpact,
			CommissionComputed: req.CommissionComputed,
			ValidatedAt:        now,
		}

		status := models.OperationStatusRejected
		if req.Decision == models.DecisionApproved {
			status = models.OperationStatusCompleted
			if req.BalanceImpact != 0 {
				entry, err := s.ledger.Apply(ctx, tx, ledger.DeltaRequest{
					AccountID:   op.InitiatorID,
					Delta:       req.BalanceImpact,
					Kind:        impactKind(req.BalanceImpact),
					Description: fmt.Sprintf("Operation %s validated", op.ReferenceNumber),
					OperationID: &op.ID,
					Metadata: map[string]interface{}{
						"operation_type": op.OperationType,
						"validator_id":   caller.UserID,
					},
				})
				if err != nil {
					return err
				}
				validationRecord.LedgerEntryID = &entry.ID
			}
		}

		if err := tx.CreateValidation(ctx, validationRecord); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.ErrOperationFinalized
			}
			return err
		}
		if err := tx.FinalizeOperation(ctx, op.ID, status, caller.UserID, req.CommissionComputed, now); err != nil {
			return err
		}

		result = validationRecord
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"operation_id": req.OperationID,
			"decision":     req.Decision,
			"caller":       caller.UserID,
		}).Warn("operation validation failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"operation_id":   result.OperationID,
		"decision":       result.Decision,
		"balance_impact": result.BalanceImpact,
	}).Info("operation validated")
	return result, nil
}

func impactKind(delta int64) models.LedgerKind {
	if delta < 0 {
		return models.LedgerKindOperationDebit
	}
	return models.LedgerKindOperationCredit
}
