package handlers

import (
	"finops/internal/services/ledger"
	"finops/internal/utils/pagination"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// LedgerHandler exposes ledger reads and the replay audit.
type LedgerHandler struct {
	service ledger.Service
}

func NewLedgerHandler(s ledger.Service) *LedgerHandler { return &LedgerHandler{service: s} }

// ListEntries handles GET /api/ledger, returning the caller's own entries
// newest first.
func (h *LedgerHandler) ListEntries(c *fiber.Ctx) error {
	id, err := caller(c)
	if err != nil {
		return response.Error(c, err)
	}

	p := pagination.ParseFromRequest(c)
	entries, total, err := h.service.ListEntries(c.UserContext(), id.UserID, p.Limit, p.Offset)
	if err != nil {
		return response.Error(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, entries))
}

// VerifyAccount handles GET /api/admin/ledger/:account_id/verify.
func (h *LedgerHandler) VerifyAccount(c *fiber.Ctx) error {
	report, err := h.service.VerifyAccount(c.UserContext(), c.Params("account_id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, "report", report)
}
