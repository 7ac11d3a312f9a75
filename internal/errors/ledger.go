package errors

var (
	ErrAccountNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "ACCOUNT_NOT_FOUND",
		Message: "account not found",
	}
	ErrTicketNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "TICKET_NOT_FOUND",
		Message: "request ticket not found",
	}
	ErrOperationNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "OPERATION_NOT_FOUND",
		Message: "operation not found",
	}
	ErrCommissionNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "COMMISSION_NOT_FOUND",
		Message: "commission record not found",
	}
	ErrTicketResolved = &DomainError{
		Kind:    KindAlreadyFinalized,
		Code:    "TICKET_ALREADY_RESOLVED",
		Message: "request ticket is already resolved",
	}
	ErrOperationFinalized = &DomainError{
		Kind:    KindAlreadyFinalized,
		Code:    "OPERATION_ALREADY_FINALIZED",
		Message: "operation has already been validated",
	}
	ErrCommissionSettled = &DomainError{
		Kind:    KindAlreadyFinalized,
		Code:    "COMMISSION_ALREADY_SETTLED",
		Message: "commission record is no longer pending",
	}
	ErrInvalidAmount = &DomainError{
		Kind:    KindInvalidArgument,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be a positive whole number",
	}
	ErrInsufficientPermissions = &DomainError{
		Kind:    KindUnauthorized,
		Code:    "INSUFFICIENT_PERMISSIONS",
		Message: "insufficient permissions",
	}
)
