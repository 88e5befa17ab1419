package contract

import "errors"

// Rejections the caller is expected to handle. None of these are fatal and
// a rejected action never leaves partial writes behind.
var (
	// ErrNotFound means no contract exists for the given id.
	ErrNotFound = errors.New("contract: not found")

	// ErrUnauthorized means the actor is not a party to the contract, or
	// not the dispute authority for admin-only operations.
	ErrUnauthorized = errors.New("contract: actor not authorized")

	// ErrInvalidState means the action is not legal for the current status.
	ErrInvalidState = errors.New("contract: action not valid in current status")

	// ErrDuplicateAction means the actor's stance already records this
	// action and repeating it changes nothing.
	ErrDuplicateAction = errors.New("contract: action already recorded")

	// ErrConflictingWrite means the stored contract changed between read
	// and write. The caller should re-read and retry.
	ErrConflictingWrite = errors.New("contract: contract changed since read")

	// ErrInvalidAmount means a non-positive rate was supplied.
	ErrInvalidAmount = errors.New("contract: rate must be positive")

	// ErrOpenContractExists means the client/provider pair already has a
	// pending, offered or active contract.
	ErrOpenContractExists = errors.New("contract: open contract already exists between these users")
)
