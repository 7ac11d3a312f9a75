package repositories

import (
	"context"
	"fmt"

	apperrors "finops/internal/errors"
	"finops/internal/models"
)

func (s *gormStore) CreateRechargeOperation(ctx context.Context, op *models.RechargeOperation) error {
	if err := s.db.WithContext(ctx).Create(op).Error; err != nil {
		return fmt.Errorf("failed to create recharge operation: %w", err)
	}
	return nil
}

func (s *gormStore) GetRechargeByTicket(ctx context.Context, ticketID string) (*models.RechargeOperation, error) {
	var op models.RechargeOperation
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&op).Error; err != nil {
		return nil, notFound(err, apperrors.NotFound("recharge operation not found"), "recharge operation")
	}
	return &op, nil
}
