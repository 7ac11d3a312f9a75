package ledger

import apperrors "finops/internal/errors"

// Service errors
var (
	ErrZeroDelta = &apperrors.DomainError{
		Kind:    apperrors.KindInvalidArgument,
		Code:    "ZERO_DELTA",
		Message: "balance delta must not be zero",
	}
	ErrUnknownKind = &apperrors.DomainError{
		Kind:    apperrors.KindInvalidArgument,
		Code:    "UNKNOWN_TRANSACTION_KIND",
		Message: "unknown ledger transaction kind",
	}
	ErrBalanceOverflow = &apperrors.DomainError{
		Kind:    apperrors.KindInvalidArgument,
		Code:    "BALANCE_OVERFLOW",
		Message: "balance change would overflow",
	}
)
