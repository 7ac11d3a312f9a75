// Package recharge credits an agent's balance to resolve a recharge ticket.
package recharge

import (
	"context"
	"fmt"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/repositories"
	"finops/internal/services/auth"
	"finops/internal/services/ledger"
	"finops/internal/utils/reference"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const operationName = "recharge"

// Request is a recharge instruction for one ticket.
type Request struct {
	TicketID string
	AgentID  string
	Amount   int64
	Method   string
	Metadata map[string]interface{}
}

type Service interface {
	ProcessRecharge(ctx context.Context, caller auth.Identity, req Request) (*models.RechargeOperation, error)
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
		log:    log.WithField("component", "recharge"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) ProcessRecharge(ctx context.Context, caller auth.Identity, req Request) (*models.RechargeOperation, error) {
	if err := validate(req); err != nil {
		return nil, failed(err)
	}
	if err := authorize(caller, req.AgentID); err != nil {
		return nil, failed(err)
	}

	var result *models.RechargeOperation
	err := s.ledger.Run(ctx, operationName, func(tx repositories.Store) error {
		ticket, err := tx.GetTicketForUpdate(ctx, req.TicketID)
		if err != nil {
			return err
		}
		if ticket.IsTerminal() {
			return apperrors.ErrTicketResolved
		}
		if ticket.TicketType != models.TicketTypeRecharge {
			return apperrors.InvalidArgument("ticket is not a recharge request")
		}
		if ticket.RequesterID != req.AgentID {
			return apperrors.InvalidArgument("ticket was not raised by this agent")
		}

		opID := uuid.NewString()
		ref := reference.Recharge(ticket.ID)
		entry, err := s.ledger.Apply(ctx, tx, ledger.DeltaRequest{
			AccountID:   req.AgentID,
			Delta:       req.Amount,
			Kind:        models.LedgerKindRecharge,
			Description: fmt.Sprintf("Recharge %s (%s)", ref, req.Method),
			OperationID: &opID,
			Metadata: map[string]interface{}{
				"ticket_id":        ticket.ID,
				"recharge_method":  req.Method,
				"reference_number": ref,
			},
		})
		if err != nil {
			return err
		}

		now := s.now()
		op := &models.RechargeOperation{
			ID:              opID,
			TicketID:        ticket.ID,
			AgentID:         req.AgentID,
			Amount:          req.Amount,
			Method:          req.Method,
			BalanceBefore:   entry.BalanceBefore,
			BalanceAfter:    entry.BalanceAfter,
			Status:          models.RechargeStatusCompleted,
			ReferenceNumber: ref,
			LedgerEntryID:   entry.ID,
			Metadata:        models.NewJSON(req.Metadata),
			ProcessedBy:     caller.UserID,
			ProcessedAt:     now,
		}
		if err := tx.CreateRechargeOperation(ctx, op); err != nil {
			return err
		}

		notes := fmt.Sprintf("Recharge of %d processed via %s, reference %s", req.Amount, req.Method, ref)
		if err := tx.ResolveTicket(ctx, ticket.ID, caller.UserID, notes, now); err != nil {
			return err
		}

		result = op
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"ticket_id": req.TicketID,
			"agent_id":  req.AgentID,
			"caller":    caller.UserID,
		}).Warn("recharge failed")
		return nil, failed(err)
	}

	s.log.WithFields(logrus.Fields{
		"ticket_id":        result.TicketID,
		"agent_id":         result.AgentID,
		"amount":           result.Amount,
		"reference_number": result.ReferenceNumber,
	}).Info("recharge processed")
	return result, nil
}

func validate(req Request) error {
	if req.TicketID == "" || req.AgentID == "" {
		return apperrors.InvalidArgument("ticket_id and agent_id are required")
	}
	if req.Amount <= 0 {
		return apperrors.ErrInvalidAmount
	}
	if !models.ValidRechargeMethod(req.Method) {
		return apperrors.InvalidArgument(fmt.Sprintf("unsupported recharge method %q", req.Method))
	}
	return nil
}

// authorize allows self-service recharges and recharges on behalf of any
// agent for admin-tier roles. Whether the agent raised the ticket is checked
// under the ticket lock.
func authorize(caller auth.Identity, agentID string) error {
	caps := caller.Can()
	if caps.CanRechargeAny {
		return nil
	}
	if caps.CanRechargeSelf && caller.UserID == agentID {
		return nil
	}
	return apperrors.ErrInsufficientPermissions
}

func failed(err error) error {
	return apperrors.Propagate("RECHARGE_PROCESSING_FAILED", "recharge processing failed", err)
}
