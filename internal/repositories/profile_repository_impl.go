package repositories

import (
	"context"
	"fmt"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/models"
)

func (s *gormStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (s *gormStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFound(err, apperrors.ErrAccountNotFound, "profile")
	}
	return &profile, nil
}

func (s *gormStore) GetProfileForUpdate(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.locked(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFound(err, apperrors.ErrAccountNotFound, "profile")
	}
	return &profile, nil
}

func (s *gormStore) UpdateBalance(ctx context.Context, id string, expectedVersion, newBalance int64) error {
	result := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		UpdateColumns(map[string]interface{}{
			"balance":    newBalance,
			"version":    expectedVersion + 1,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update balance: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleBalance
	}
	return nil
}

func (s *gormStore) UpdateProfileAttributes(ctx context.Context, profile *models.Profile) error {
	result := s.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Select("full_name", "email", "role_name", "agency_id", "is_active", "updated_at").
		Updates(map[string]interface{}{
			"full_name":  profile.FullName,
			"email":      profile.Email,
			"role_name":  profile.RoleName,
			"agency_id":  profile.AgencyID,
			"is_active":  profile.IsActive,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

func (s *gormStore) ListProfileIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return ids, nil
}

func (s *gormStore) CreateAgency(ctx context.Context, agency *models.Agency) error {
	if err := s.db.WithContext(ctx).Create(agency).Error; err != nil {
		return fmt.Errorf("failed to create agency: %w", err)
	}
	return nil
}

func (s *gormStore) GetAgency(ctx context.Context, id string) (*models.Agency, error) {
	var agency models.Agency
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&agency).Error; err != nil {
		return nil, notFound(err, apperrors.NotFound("agency not found"), "agency")
	}
	return &agency, nil
}
