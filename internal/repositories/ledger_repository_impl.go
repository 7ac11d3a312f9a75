package repositories

import (
	"context"
	"fmt"

	"finops/internal/models"
)

func (s *gormStore) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func (s *gormStore) ListLedgerEntries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, int64, error) {
	var total int64
	base := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("account_id = ?", accountID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	var entries []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, total, nil
}

func (s *gormStore) LedgerChain(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger chain: %w", err)
	}
	return entries, nil
}
