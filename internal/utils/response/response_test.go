package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	apperrors "finops/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, h fiber.Handler) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)
	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantError  string
	}{
		{
			name:       "domain error",
			err:        apperrors.ErrTicketResolved,
			wantStatus: fiber.StatusConflict,
			wantKind:   "already_finalized",
			wantError:  "request ticket is already resolved",
		},
		{
			name:       "plain error is hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: fiber.StatusInternalServerError,
			wantKind:   "internal",
			wantError:  "internal server error",
		},
		{
			name:       "internal cause is hidden",
			err:        apperrors.Internal("failed to load caller profile", errors.New("dial tcp")),
			wantStatus: fiber.StatusInternalServerError,
			wantKind:   "internal",
			wantError:  "failed to load caller profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, func(c *fiber.Ctx) error { return Error(c, tt.err) })
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantKind, body["kind"])
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestSuccessAndPartialFailure(t *testing.T) {
	status, body := call(t, func(c *fiber.Ctx) error { return Success(c, "operation", fiber.Map{"id": "x"}) })
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["operation"])

	status, body = call(t, func(c *fiber.Ctx) error {
		err := apperrors.New(apperrors.KindPartialFailure, "BULK_PARTIAL_FAILURE", "1 of 3 failed")
		return PartialFailure(c, err, "results", []string{"a"})
	})
	assert.Equal(t, fiber.StatusMultiStatus, status)
	assert.Equal(t, "partial_failure", body["kind"])
	assert.Len(t, body["results"], 1)
}
