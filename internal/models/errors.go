package models

import "errors"

// Error kinds surfaced by the escrow ledger. All of them fire before any
// mutation, so a caller receiving one can assume no state changed.
var (
	// ErrNotFound means the referenced product or order id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller is not the authorized principal for the action.
	ErrForbidden = errors.New("forbidden")
	// ErrProductDeleted means the operation targets a soft-deleted product.
	ErrProductDeleted = errors.New("product deleted")
	// ErrAlreadyReserved means the product is already reserved or sold.
	ErrAlreadyReserved = errors.New("product already reserved")
	// ErrInvalidState means a precondition on the current state is violated,
	// typically a mutation attempted on a terminal order.
	ErrInvalidState = errors.New("invalid state")
	// ErrAmountMismatch means the deposited value does not equal the listed price.
	ErrAmountMismatch = errors.New("deposited amount does not match price")
	// ErrValidation means a creation argument is malformed (empty name or
	// seller); a caller mistake, not a server fault.
	ErrValidation = errors.New("validation failed")
)

// ErrReconciliation is fatal: the terminal flag was committed but the
// subsequent value transfer failed. The committed state is the authoritative
// record of entitlement; the transfer must be settled manually, never retried
// against the already-set flag.
var ErrReconciliation = errors.New("reconciliation required: state committed but transfer failed")
