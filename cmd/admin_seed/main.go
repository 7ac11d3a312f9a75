// Command admin_seed creates or promotes the admin_general profile for an
// identity-provider user id.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"finops/internal/config"
	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/repositories"
	"finops/internal/services/auth"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logrus.New()

	userID := os.Getenv("ADMIN_USER_ID")
	email := os.Getenv("ADMIN_EMAIL")
	fullName := config.GetEnv("ADMIN_FULL_NAME", "Administrator")
	if userID == "" || email == "" {
		log.Fatal("ADMIN_USER_ID and ADMIN_EMAIL must be set in environment")
	}

	db, err := repositories.InitDB(cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			log.WithError(err).Warn("failed to close database connection")
		}
	}()

	created, err := seedAdmin(context.Background(), repositories.NewStore(db), userID, email, fullName)
	if err != nil {
		log.WithError(err).Fatal("failed to seed admin profile")
	}
	if created {
		log.WithField("user_id", userID).Info("admin profile created")
	} else {
		log.WithField("user_id", userID).Info("admin profile updated")
	}

	// A signed token is only useful against a local server.
	if ttl := config.GetDurationEnv("ADMIN_TOKEN_TTL", 0); ttl > 0 && !cfg.IsProduction() {
		token, err := auth.SignToken(cfg.JWTSecret, cfg.JWTAudience, userID, ttl)
		if err != nil {
			log.WithError(err).Fatal("failed to sign token")
		}
		fmt.Println(token)
	}
}

// seedAdmin makes userID an active admin_general profile. The balance of an
// existing profile is left untouched.
func seedAdmin(ctx context.Context, store repositories.Store, userID, email, fullName string) (bool, error) {
	profile, err := store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrAccountNotFound):
		profile = &models.Profile{
			ID:       userID,
			FullName: fullName,
			Email:    email,
			RoleName: string(models.RoleAdminGeneral),
			IsActive: true,
		}
		if err := store.CreateProfile(ctx, profile); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}

	profile.Email = email
	profile.FullName = fullName
	profile.RoleName = string(models.RoleAdminGeneral)
	profile.IsActive = true
	if err := store.UpdateProfileAttributes(ctx, profile); err != nil {
		return false, err
	}
	return false, nil
}
