package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finops/internal/models"
	"finops/internal/repositories/repotest"
	"finops/internal/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "middleware-secret"
	testAudience = "authenticated"
)

func TestAuthMiddleware(t *testing.T) {
	store := repotest.NewStore(t)
	svc := auth.NewService(store, auth.Config{Secret: testSecret, Audience: testAudience}, nil)
	mw := NewAuthMiddleware(svc, nil)

	agent := repotest.Profile(t, store, models.RoleAgent, nil)
	admin := repotest.Profile(t, store, models.RoleAdminGeneral, nil)

	agentToken, err := auth.SignToken(testSecret, testAudience, agent.ID, time.Minute)
	require.NoError(t, err)
	adminToken, err := auth.SignToken(testSecret, testAudience, admin.ID, time.Minute)
	require.NoError(t, err)
	unknownToken, err := auth.SignToken(testSecret, testAudience, "00000000-0000-0000-0000-000000000000", time.Minute)
	require.NoError(t, err)

	echo := func(c *fiber.Ctx) error {
		id, _ := Identity(c)
		return c.JSON(fiber.Map{"user_id": id.UserID, "role": id.Role})
	}
	app := fiber.New()
	app.Get("/me", mw.Handler, echo)
	app.Get("/admin", mw.Handler, AdminTier(), echo)
	app.Get("/adjust", mw.Handler, RequireCapability(func(c models.Capabilities) bool { return c.CanAdjust }), echo)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "missing header", path: "/me", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/me", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad token", path: "/me", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "unknown profile", path: "/me", header: "Bearer " + unknownToken, wantStatus: http.StatusUnauthorized},
		{name: "agent", path: "/me", header: "Bearer " + agentToken, wantStatus: http.StatusOK, wantUser: agent.ID},
		{name: "agent on admin route", path: "/admin", header: "Bearer " + agentToken, wantStatus: http.StatusForbidden},
		{name: "admin on admin route", path: "/admin", header: "Bearer " + adminToken, wantStatus: http.StatusOK, wantUser: admin.ID},
		{name: "agent cannot adjust", path: "/adjust", header: "Bearer " + agentToken, wantStatus: http.StatusForbidden},
		{name: "admin can adjust", path: "/adjust", header: "Bearer " + adminToken, wantStatus: http.StatusOK, wantUser: admin.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.wantUser != "" {
				assert.Equal(t, tt.wantUser, body["user_id"])
			} else {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}
