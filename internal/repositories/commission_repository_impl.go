package repositories

import (
	"context"
	"fmt"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
)

func (s *gormStore) CreateCommissionRecord(ctx context.Context, rec *models.CommissionRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create commission record: %w", err)
	}
	return nil
}

func (s *gormStore) GetCommissionRecord(ctx context.Context, id string) (*models.CommissionRecord, error) {
	var rec models.CommissionRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(err, apperrors.ErrCommissionNotFound, "commission record")
	}
	return &rec, nil
}

func (s *gormStore) GetCommissionRecordForUpdate(ctx context.Context, id string) (*models.CommissionRecord, error) {
	var rec models.CommissionRecord
	if err := s.locked(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(err, apperrors.ErrCommissionNotFound, "commission record")
	}
	return &rec, nil
}

func (s *gormStore) MarkCommissionPaid(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.CommissionRecord{}).
		Where("id = ? AND status = ?", id, models.CommissionStatusPending).
		UpdateColumns(map[string]interface{}{
			"status":     models.CommissionStatusPaid,
			"paid_at":    at,
			"updated_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark commission paid: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrCommissionSettled
	}
	return nil
}

func (s *gormStore) CreateCommissionTransfer(ctx context.Context, t *models.CommissionTransfer) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create commission transfer: %w", err)
	}
	return nil
}

func (s *gormStore) GetTransferByReference(ctx context.Context, reference string) (*models.CommissionTransfer, error) {
	var t models.CommissionTransfer
	if err := s.db.WithContext(ctx).Where("reference_number = ?", reference).First(&t).Error; err != nil {
		return nil, notFound(err, apperrors.NotFound("commission transfer not found"), "commission transfer")
	}
	return &t, nil
}

func (s *gormStore) ListTransfersByRecord(ctx context.Context, recordID string) ([]models.CommissionTransfer, error) {
	var transfers []models.CommissionTransfer
	err := s.db.WithContext(ctx).
		Where("commission_record_id = ?", recordID).
		Order("processed_at ASC").
		Find(&transfers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list commission transfers: %w", err)
	}
	return transfers, nil
}
