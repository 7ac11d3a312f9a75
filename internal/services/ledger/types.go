package ledger

import (
	"time"

	"finops/internal/models"
)

// DeltaRequest describes one signed balance change.
type DeltaRequest struct {
	AccountID   string
	Delta       int64
	Kind        models.LedgerKind
	Description string
	OperationID *string
	Metadata    map[string]interface{}
}

// Config tunes the stale-balance retry loop.
type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// VerificationReport is the result of replaying one account's chain.
type VerificationReport struct {
	AccountID       string   `json:"account_id"`
	Entries         int      `json:"entries"`
	StoredBalance   int64    `json:"stored_balance"`
	ReplayedBalance int64    `json:"replayed_balance"`
	StoredVersion   int64    `json:"stored_version"`
	Consistent      bool     `json:"consistent"`
	Problems        []string `json:"problems,omitempty"`
}

// MetricsCollector receives ledger and unit-of-work measurements.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordRetry(operation string)
	RecordError(operation, kind string)
	RecordBalanceChange(kind string, delta int64)
}
