package main

import (
	"context"
	"testing"

	"finops/internal/models"
	"finops/internal/repositories/repotest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore(t)
	userID := uuid.NewString()

	created, err := seedAdmin(ctx, store, userID, "root@example.test", "Root")
	require.NoError(t, err)
	assert.True(t, created)

	profile, err := store.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdminGeneral), profile.RoleName)
	assert.True(t, profile.IsActive)

	created, err = seedAdmin(ctx, store, userID, "ops@example.test", "Ops")
	require.NoError(t, err)
	assert.False(t, created)

	profile, err = store.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.test", profile.Email)
}

func TestSeedAdmin_PromotesExistingProfile(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore(t)
	agent := repotest.Profile(t, store, models.RoleAgent, nil)
	repotest.Fund(t, store, agent.ID, 900)

	created, err := seedAdmin(ctx, store, agent.ID, agent.Email, agent.FullName)
	require.NoError(t, err)
	assert.False(t, created)

	profile, err := store.GetProfile(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdminGeneral), profile.RoleName)
	assert.Equal(t, int64(900), profile.Balance)
}
