// Package commission settles commission records, one at a time or in bulk.
package commission

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
	"finops/internal/utils/reference"
	"finops/internal/validation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	singleOperation = "commission_transfer"
	bulkOperation   = "bulk_commission_transfer"
)

type Service interface {
	TransferCommission(ctx context.Context, caller auth.Identity, req TransferRequest) (*models.CommissionTransfer, error)
	// BulkTransferCommissions settles each record in its own transaction, in
	// request order. A failed item does not stop later items; the returned
	// error has kind PartialFailure whenever any item failed.
	BulkTransferCommissions(ctx context.Context, caller auth.Identity, req BulkTransferRequest) (*BulkResult, error)
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
		log:    log.WithField("component", "commission"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) TransferCommission(ctx context.Context, caller auth.Identity, req TransferRequest) (*models.CommissionTransfer, error) {
	v := validation.New()
	v.Required("commission_record_id", req.CommissionRecordID)
	v.Required("recipient_id", req.RecipientID)
	v.OneOf("transfer_type", string(req.TransferType),
		string(models.TransferTypeAgentPayment), string(models.TransferTypeChefPayment))
	v.NonNegative("amount", req.Amount)
	if err := v.Err(); err != nil {
		return nil, err
	}
	data, err := DecodeTransferData(req.Method, req.Data)
	if err != nil {
		return nil, err
	}

	var result *models.CommissionTransfer
	err = s.ledger.Run(ctx, singleOperation, func(tx repositories.Store) error {
		rec, err := tx.GetCommissionRecordForUpdate(ctx, req.CommissionRecordID)
		if err != nil {
			return err
		}

		var share int64
		switch req.TransferType {
		case models.TransferTypeAgentPayment:
			share, err = s.authorizeAgentPayment(ctx, tx, caller, rec, req.RecipientID)
		case models.TransferTypeChefPayment:
			share, err = s.authorizeChefPayment(ctx, tx, caller, rec, req.RecipientID)
		}
		if err != nil {
			return err
		}

		if rec.Status != models.CommissionStatusPending {
			return apperrors.ErrCommissionSettled
		}
		amount, err := resolveAmount(req.Amount, share)
		if err != nil {
			return err
		}

		result, err = s.settle(ctx, tx, caller, settlement{
			record:       rec,
			transferType: req.TransferType,
			recipientID:  req.RecipientID,
			amount:       amount,
			data:         data,
		})
		return err
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"commission_record_id": req.CommissionRecordID,
			"transfer_type":        req.TransferType,
			"caller":               caller.UserID,
		}).Warn("commission transfer failed")
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"commission_record_id": result.CommissionRecordID,
		"recipient_id":         result.RecipientID,
		"amount":               result.Amount,
		"reference_number":     result.ReferenceNumber,
	}).Info("commission transferred")
	return result, nil
}

func (s *service) BulkTransferCommissions(ctx context.Context, caller auth.Identity, req BulkTransferRequest) (*BulkResult, error) {
	caps := caller.Can()
	if !caps.CanTransferSelf && !caps.CanTransferAgency {
		return nil, apperrors.Unauthorized("role cannot receive commission transfers")
	}

	v := validation.New()
	v.Check(len(req.CommissionRecordIDs) > 0, "commission_record_ids", "must contain at least one id")
	v.Check(len(req.CommissionRecordIDs) <= validation.MaxBulkItems, "commission_record_ids",
		fmt.Sprintf("must contain at most %d ids", validation.MaxBulkItems))
	seen := make(map[string]struct{}, len(req.CommissionRecordIDs))
	for _, id := range req.CommissionRecordIDs {
		v.Check(id != "", "commission_record_ids", "must not contain empty ids")
		if _, dup := seen[id]; dup {
			v.AddError("commission_record_ids", "must not contain duplicates")
		}
		seen[id] = struct{}{}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	data, err := DecodeTransferData(req.Method, req.Data)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Items: make([]BulkItemResult, 0, len(req.CommissionRecordIDs))}
	for _, id := range req.CommissionRecordIDs {
		item := BulkItemResult{CommissionRecordID: id}

		transfer, err := s.bulkItem(ctx, caller, id, data)
		if err != nil {
			item.Error = &ItemError{Kind: apperrors.KindOf(err), Message: err.Error()}
			result.Failed++
		} else {
			item.Succeeded = true
			item.Transfer = transfer
			result.Succeeded++
			result.TotalAmount += transfer.Amount
		}
		result.Items = append(result.Items, item)
	}

	entry := s.log.WithFields(logrus.Fields{
		"caller":       caller.UserID,
		"items":        len(result.Items),
		"succeeded":    result.Succeeded,
		"failed":       result.Failed,
		"total_amount": result.TotalAmount,
	})
	if result.Failed > 0 {
		entry.Warn("bulk commission transfer partially failed")
		return result, apperrors.New(apperrors.KindPartialFailure, "BULK_PARTIAL_FAILURE",
			fmt.Sprintf("%d of %d commission transfers failed", result.Failed, len(result.Items)))
	}
	entry.Info("bulk commission transfer completed")
	return result, nil
}

func (s *service) bulkItem(ctx context.Context, caller auth.Identity, recordID string, data TransferData) (*models.CommissionTransfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Transient("request cancelled before this item ran", err)
	}

	var transfer *models.CommissionTransfer
	err := s.ledger.Run(ctx, bulkOperation, func(tx repositories.Store) error {
		rec, err := tx.GetCommissionRecordForUpdate(ctx, recordID)
		if err != nil {
			return err
		}

		var share int64
		if caller.Can().CanTransferSelf {
			if rec.AgentID != caller.UserID {
				return apperrors.Unauthorized("commission belongs to another agent")
			}
			share = rec.AgentCommission
		} else {
			agent, err := tx.GetProfile(ctx, rec.AgentID)
			if err != nil {
				return err
			}
			if !caller.InAgency(agent.AgencyID) {
				return apperrors.Unauthorized("commission belongs to another agency")
			}
			share = rec.ChefCommission
		}

		if rec.Status != models.CommissionStatusPending {
			return apperrors.ErrCommissionSettled
		}
		if share <= 0 {
			return apperrors.InvalidArgument("no commission share due to the caller")
		}

		transfer, err = s.settle(ctx, tx, caller, settlement{
			record:       rec,
			transferType: models.TransferTypeBulk,
			recipientID:  caller.UserID,
			amount:       share,
			data:         data,
		})
		return err
	})
	return transfer, err
}

// authorizeAgentPayment returns the agent share after checking that the
// recipient is the record's agent and the caller may pay them.
func (s *service) authorizeAgentPayment(ctx context.Context, tx repositories.Store, caller auth.Identity, rec *models.CommissionRecord, recipientID string) (int64, error) {
	caps := caller.Can()
	if !caps.CanTransferAny && !(caps.CanTransferSelf && caller.UserID == recipientID) {
		return 0, apperrors.ErrInsufficientPermissions
	}
	if recipientID != rec.AgentID {
		return 0, apperrors.InvalidArgument("agent_payment recipient must be the commission's agent")
	}
	if _, err := activeProfile(ctx, tx, recipientID); err != nil {
		return 0, err
	}
	return rec.AgentCommission, nil
}

// authorizeChefPayment returns the chef share after checking that the
// recipient is an active chef of the agent's agency and the caller may pay
// them. An agency with a designated chef only pays that chef.
func (s *service) authorizeChefPayment(ctx context.Context, tx repositories.Store, caller auth.Identity, rec *models.CommissionRecord, recipientID string) (int64, error) {
	caps := caller.Can()
	if !caps.CanTransferAny && !(caps.CanTransferAgency && caller.UserID == recipientID) {
		return 0, apperrors.ErrInsufficientPermissions
	}

	agent, err := tx.GetProfile(ctx, rec.AgentID)
	if err != nil {
		return 0, err
	}
	if agent.AgencyID == nil {
		return 0, apperrors.InvalidArgument("commission agent belongs to no agency")
	}
	chef, err := activeProfile(ctx, tx, recipientID)
	if err != nil {
		return 0, err
	}
	if chef.RoleName != string(models.RoleChefAgence) || !chef.SameAgency(agent) {
		return 0, apperrors.InvalidArgument("chef_payment recipient must be the chef of the agent's agency")
	}
	agency, err := tx.GetAgency(ctx, *agent.AgencyID)
	if err != nil {
		return 0, err
	}
	if agency.ChefID != nil && *agency.ChefID != chef.ID {
		return 0, apperrors.InvalidArgument("chef_payment recipient is not the agency's designated chef")
	}
	return rec.ChefCommission, nil
}

func activeProfile(ctx context.Context, tx repositories.Store, id string) (*models.Profile, error) {
	p, err := tx.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperrors.InvalidArgument("recipient profile is deactivated")
	}
	return p, nil
}

func resolveAmount(requested, share int64) (int64, error) {
	if share <= 0 {
		return 0, apperrors.InvalidArgument("no commission share due for this transfer type")
	}
	if requested == 0 {
		return share, nil
	}
	if requested < 0 || requested > share {
		return 0, apperrors.InvalidArgument(fmt.Sprintf("amount must be between 1 and the share of %d", share))
	}
	return requested, nil
}

// settle writes the ledger credit, the transfer and the paid status of one
// record inside tx.
func (s *service) settle(ctx context.Context, tx repositories.Store, caller auth.Identity, st settlement) (*models.CommissionTransfer, error) {
	now := s.now()
	ref := reference.Commission(st.record.ID, string(st.transferType))

	transfer := &models.CommissionTransfer{
		CommissionRecordID: st.record.ID,
		TransferType:       st.transferType,
		RecipientID:        st.recipientID,
		Amount:             st.amount,
		Method:             st.data.Method(),
		Data:               st.data.toJSON(),
		ReferenceNumber:    ref,
		Status:             models.TransferStatusCompleted,
		ProcessedBy:        caller.UserID,
		ProcessedAt:        now,
	}

	if st.data.Method() == models.TransferMethodBalanceCredit {
		entry, err := s.ledger.Apply(ctx, tx, ledger.DeltaRequest{
			AccountID:   st.recipientID,
			Delta:       st.amount,
			Kind:        models.LedgerKindCommissionCredit,
			Description: fmt.Sprintf("Commission %s (%s)", ref, st.transferType),
			OperationID: &st.record.OperationID,
			Metadata: map[string]interface{}{
				"commission_record_id": st.record.ID,
				"transfer_type":        string(st.transferType),
				"reference_number":     ref,
			},
		})
		if err != nil {
			return nil, err
		}
		transfer.LedgerEntryID = &entry.ID
	}

	if err := tx.CreateCommissionTransfer(ctx, transfer); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrCommissionSettled
		}
		return nil, err
	}
	if err := tx.MarkCommissionPaid(ctx, st.record.ID, now); err != nil {
		return nil, err
	}
	return transfer, nil
}
