package repositories

import (
	"context"
	"fmt"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
)

func (s *gormStore) CreateTicket(ctx context.Context, t *models.RequestTicket) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

func (s *gormStore) GetTicket(ctx context.Context, id string) (*models.RequestTicket, error) {
	var t models.RequestTicket
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err, apperrors.ErrTicketNotFound, "ticket")
	}
	return &t, nil
}

func (s *gormStore) GetTicketForUpdate(ctx context.Context, id string) (*models.RequestTicket, error) {
	var t models.RequestTicket
	if err := s.locked(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err, apperrors.ErrTicketNotFound, "ticket")
	}
	return &t, nil
}

func (s *gormStore) ResolveTicket(ctx context.Context, id, resolverID, notes string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.RequestTicket{}).
		Where("id = ? AND status NOT IN ?", id, []string{models.TicketStatusResolved, models.TicketStatusClosed}).
		UpdateColumns(map[string]interface{}{
			"status":           models.TicketStatusResolved,
			"resolved_by":      resolverID,
			"resolved_at":      at,
			"resolution_notes": notes,
			"updated_at":       at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTicketResolved
	}
	return nil
}
