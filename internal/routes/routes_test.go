package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "finops/internal/errors"
	"finops/internal/handlers"
	"finops/internal/middleware"
	"finops/internal/models"
	"finops/internal/repositories"
	"finops/internal/repositories/cache"
	"finops/internal/repositories/repotest"
	"finops/internal/services/adjustment"
	"finops/internal/services/auth"
	"finops/internal/services/commission"
	"finops/internal/services/ledger"
	"finops/internal/services/operation"
	"finops/internal/services/recharge"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "routes-secret"
	testAudience = "authenticated"
)

type apiHarness struct {
	app   *fiber.App
	store repositories.Store
}

func newHarness(t *testing.T) *apiHarness {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := repotest.NewStore(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ledgerSvc := ledger.NewService(store, ledger.Config{MaxRetries: 2, InitialInterval: time.Millisecond}, nil, log)
	app := fiber.New()
	SetupRoutes(app, Dependencies{
		Auth:           auth.NewService(store, auth.Config{Secret: testSecret, Audience: testAudience}, log),
		Ledger:         ledgerSvc,
		Recharge:       recharge.NewService(ledgerSvc, log),
		Commission:     commission.NewService(ledgerSvc, log),
		Operation:      operation.NewService(ledgerSvc, log),
		Adjustment:     adjustment.NewService(ledgerSvc, log),
		Health:         handlers.NewHealthHandler(store, client, "test"),
		Idempotency:    cache.NewCacheService(client, time.Minute),
		IdempotencyTTL: time.Hour,
		Log:            log,
	})
	return &apiHarness{app: app, store: store}
}

func (h *apiHarness) do(t *testing.T, method, path string, caller *models.Profile, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if caller != nil {
		token, err := auth.SignToken(testSecret, testAudience, caller.ID, time.Minute)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAPI_ProcessRecharge(t *testing.T) {
	h := newHarness(t)
	agent := repotest.Profile(t, h.store, models.RoleAgent, nil)
	ticket := repotest.Ticket(t, h.store, agent.ID, models.TicketTypeRecharge, 100000)

	body := map[string]interface{}{
		"ticket_id":       ticket.ID,
		"agent_id":        agent.ID,
		"amount":          100000,
		"recharge_method": models.RechargeMethodCash,
	}
	status, out := h.do(t, http.MethodPost, "/api/process-recharge", agent, body)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, true, out["success"])
	op := out["operation"].(map[string]interface{})
	assert.Equal(t, float64(100000), op["balance_after"])
	assert.Equal(t, int64(100000), repotest.Balance(t, h.store, agent.ID))

	status, out = h.do(t, http.MethodPost, "/api/process-recharge", agent, body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(apperrors.KindAlreadyFinalized), out["kind"])
	assert.Equal(t, int64(100000), repotest.Balance(t, h.store, agent.ID))
}

func TestAPI_RequestErrors(t *testing.T) {
	h := newHarness(t)
	agent := repotest.Profile(t, h.store, models.RoleAgent, nil)

	tests := []struct {
		name       string
		caller     *models.Profile
		path       string
		body       interface{}
		wantStatus int
	}{
		{name: "no token", path: "/api/process-recharge", body: map[string]interface{}{}, wantStatus: http.StatusUnauthorized},
		{name: "missing fields", caller: agent, path: "/api/process-recharge", body: map[string]interface{}{}, wantStatus: http.StatusBadRequest},
		{name: "fractional amount", caller: agent, path: "/api/process-recharge", body: map[string]interface{}{
			"ticket_id": agent.ID, "agent_id": agent.ID, "amount": 10.5, "recharge_method": "cash",
		}, wantStatus: http.StatusBadRequest},
		{name: "unknown ticket", caller: agent, path: "/api/process-recharge", body: map[string]interface{}{
			"ticket_id": "7a1d6f58-3c1e-4a43-9d7b-2f5b0f7c9e11", "agent_id": agent.ID, "amount": 10, "recharge_method": "cash",
		}, wantStatus: http.StatusNotFound},
		{name: "bad transfer type", caller: agent, path: "/api/process-commission-transfer", body: map[string]interface{}{
			"transfer_type": "gift", "transfer_method": "balance_credit",
		}, wantStatus: http.StatusBadRequest},
		{name: "agent cannot validate", caller: agent, path: "/api/validate-operation", body: map[string]interface{}{
			"operation_id": agent.ID, "validator_id": agent.ID, "validation_status": "approved",
		}, wantStatus: http.StatusForbidden},
		{name: "agent cannot adjust", caller: agent, path: "/api/admin/adjustments", body: map[string]interface{}{
			"account_id": agent.ID, "amount": 5, "description": "fix",
		}, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := h.do(t, http.MethodPost, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.wantStatus, status, out)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestAPI_CommissionTransfer(t *testing.T) {
	h := newHarness(t)
	agency := repotest.Agency(t, h.store, "Douala")
	agent := repotest.Profile(t, h.store, models.RoleAgent, &agency)
	rec := repotest.CommissionRecord(t, h.store, agent.ID, 5000, 1000)

	status, out := h.do(t, http.MethodPost, "/api/process-commission-transfer", agent, map[string]interface{}{
		"commission_record_id": rec.ID,
		"transfer_type":        models.TransferTypeAgentPayment,
		"recipient_id":         agent.ID,
		"transfer_method":      models.TransferMethodBalanceCredit,
	})
	require.Equal(t, http.StatusOK, status, out)
	transfer := out["transfer"].(map[string]interface{})
	assert.Equal(t, float64(5000), transfer["amount"])
	assert.Equal(t, int64(5000), repotest.Balance(t, h.store, agent.ID))
}

func TestAPI_BulkTransferPartialFailure(t *testing.T) {
	h := newHarness(t)
	agency := repotest.Agency(t, h.store, "Douala")
	agent := repotest.Profile(t, h.store, models.RoleAgent, &agency)
	first := repotest.CommissionRecord(t, h.store, agent.ID, 3000, 0)
	second := repotest.CommissionRecord(t, h.store, agent.ID, 2000, 0)

	single := map[string]interface{}{
		"commission_record_id": second.ID,
		"transfer_type":        models.TransferTypeAgentPayment,
		"recipient_id":         agent.ID,
		"transfer_method":      models.TransferMethodBalanceCredit,
	}
	status, _ := h.do(t, http.MethodPost, "/api/process-commission-transfer", agent, single)
	require.Equal(t, http.StatusOK, status)

	status, out := h.do(t, http.MethodPost, "/api/process-commission-transfer", agent, map[string]interface{}{
		"commission_record_ids": []string{first.ID, second.ID},
		"transfer_type":         models.TransferTypeBulk,
		"transfer_method":       models.TransferMethodBalanceCredit,
	})
	assert.Equal(t, http.StatusMultiStatus, status)
	assert.Equal(t, "partial_failure", out["kind"])

	results := out["results"].(map[string]interface{})
	items := results["results"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, true, items[0].(map[string]interface{})["succeeded"])
	assert.Equal(t, false, items[1].(map[string]interface{})["succeeded"])
	assert.Equal(t, int64(5000), repotest.Balance(t, h.store, agent.ID))
}

func TestAPI_ValidateOperation(t *testing.T) {
	h := newHarness(t)
	initiator := repotest.Profile(t, h.store, models.RoleAgent, nil)
	admin := repotest.Profile(t, h.store, models.RoleSousAdmin, nil)
	op := repotest.Operation(t, h.store, initiator.ID, 7000)

	status, out := h.do(t, http.MethodPost, "/api/validate-operation", admin, map[string]interface{}{
		"operation_id":          op.ID,
		"validator_id":          admin.ID,
		"validation_status":     models.DecisionApproved,
		"balance_impact":        7000,
		"commission_calculated": 150,
	})
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, int64(7000), repotest.Balance(t, h.store, initiator.ID))

	stored, err := h.store.GetOperation(context.Background(), op.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OperationStatusCompleted, stored.Status)
}

func TestAPI_AdminRoutes(t *testing.T) {
	h := newHarness(t)
	agent := repotest.Profile(t, h.store, models.RoleAgent, nil)
	sous := repotest.Profile(t, h.store, models.RoleSousAdmin, nil)
	general := repotest.Profile(t, h.store, models.RoleAdminGeneral, nil)

	adjust := map[string]interface{}{"account_id": agent.ID, "amount": -250, "description": "cash count correction"}

	status, _ := h.do(t, http.MethodPost, "/api/admin/adjustments", sous, adjust)
	assert.Equal(t, http.StatusForbidden, status)

	status, out := h.do(t, http.MethodPost, "/api/admin/adjustments", general, adjust)
	require.Equal(t, http.StatusOK, status, out)
	assert.Equal(t, int64(-250), repotest.Balance(t, h.store, agent.ID))

	status, out = h.do(t, http.MethodGet, "/api/admin/ledger/"+agent.ID+"/verify", sous, nil)
	require.Equal(t, http.StatusOK, status, out)
	report := out["report"].(map[string]interface{})
	assert.Equal(t, true, report["consistent"])

	status, _ = h.do(t, http.MethodGet, "/api/admin/ledger/"+agent.ID+"/verify", agent, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAPI_ListOwnLedger(t *testing.T) {
	h := newHarness(t)
	agent := repotest.Profile(t, h.store, models.RoleAgent, nil)
	other := repotest.Profile(t, h.store, models.RoleAgent, nil)
	repotest.Fund(t, h.store, agent.ID, 100)
	repotest.Fund(t, h.store, agent.ID, 200)
	repotest.Fund(t, h.store, other.ID, 999)

	status, out := h.do(t, http.MethodGet, "/api/ledger?limit=1", agent, nil)
	require.Equal(t, http.StatusOK, status, out)

	data := out["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, float64(200), data[0].(map[string]interface{})["delta"])
	meta := out["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["total_items"])
	assert.Equal(t, float64(2), meta["total_pages"])
}

func TestAPI_IdempotencyKeyReplays(t *testing.T) {
	h := newHarness(t)
	admin := repotest.Profile(t, h.store, models.RoleAdminGeneral, nil)
	agent := repotest.Profile(t, h.store, models.RoleAgent, nil)
	adjust := map[string]interface{}{"account_id": agent.ID, "amount": 400, "description": "opening float"}

	status, first := h.do(t, http.MethodPost, "/api/admin/adjustments", admin, adjust, middleware.HeaderIdempotencyKey, "float-1")
	require.Equal(t, http.StatusOK, status, first)
	status, second := h.do(t, http.MethodPost, "/api/admin/adjustments", admin, adjust, middleware.HeaderIdempotencyKey, "float-1")
	require.Equal(t, http.StatusOK, status, second)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(400), repotest.Balance(t, h.store, agent.ID))
	assert.Equal(t, 1, repotest.LedgerCount(t, h.store, agent.ID))
}

func TestAPI_Health(t *testing.T) {
	h := newHarness(t)

	status, out := h.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
	services := out["services"].(map[string]interface{})
	assert.Equal(t, "connected", services["database"])
	assert.Equal(t, "connected", services["redis"])
}
