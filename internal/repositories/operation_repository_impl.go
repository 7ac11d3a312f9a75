package repositories

import (
	"context"
	"fmt"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
)

func (s *gormStore) CreateOperation(ctx context.Context, op *models.Operation) error {
	if err := s.db.WithContext(ctx).Create(op).Error; err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}
	return nil
}

func (s *gormStore) GetOperation(ctx context.Context, id string) (*models.Operation, error) {
	var op models.Operation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&op).Error; err != nil {
		return nil, notFound(err, apperrors.ErrOperationNotFound, "operation")
	}
	return &op, nil
}

func (s *gormStore) GetOperationForUpdate(ctx context.Context, id string) (*models.Operation, error) {
	var op models.Operation
	if err := s.locked(ctx).Where("id = ?", id).First(&op).Error; err != nil {
		return nil, notFound(err, apperrors.ErrOperationNotFound, "operation")
	}
	return &op, nil
}

func (s *gormStore) FinalizeOperation(ctx context.Context, id, status, validatorID string, commission int64, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Operation{}).
		Where("id = ? AND status = ?", id, models.OperationStatusPending).
		UpdateColumns(map[string]interface{}{
			"status":            status,
			"validated_by":      validatorID,
			"validated_at":      at,
			"commission_amount": commission,
			"updated_at":        at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize operation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOperationFinalized
	}
	return nil
}

func (s *gormStore) CreateValidation(ctx context.Context, v *models.OperationValidation) error {
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("failed to create validation: %w", err)
	}
	return nil
}

func (s *gormStore) GetValidationByOperation(ctx context.Context, operationID string) (*models.OperationValidation, error) {
	var v models.OperationValidation
	if err := s.db.WithContext(ctx).Where("operation_id = ?", operationID).First(&v).Error; err != nil {
		return nil, notFound(err, apperrors.NotFound("validation not found"), "validation")
	}
	return &v, nil
}
