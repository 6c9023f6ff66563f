package pool

import "errors"

// Engine failure taxonomy. Config errors surface before an operation
// starts; slippage and liquidity errors surface to the caller with no state
// mutated; ErrConsistencyFault marks an internal invariant violation and is
// never a user error; the operation aborts before commit rather than
// persist an inconsistent state.
var (
	// Config errors.
	ErrInvalidFeeConfig = errors.New("pool: trading fee exceeds maximum")
	ErrDuplicateAssets  = errors.New("pool: pool assets must differ")
	ErrPoolExists       = errors.New("pool: pool already exists for this configuration")
	ErrPoolNotFound     = errors.New("pool: pool not found")
	ErrPoolLocked       = errors.New("pool: pool is locked")
	ErrNotAllowlisted   = errors.New("pool: depositor not on allowlist")
	ErrAccountMismatch  = errors.New("pool: supplied identities do not match pool configuration")

	// Slippage errors.
	ErrSlippageExceeded = errors.New("pool: slippage tolerance exceeded")

	// Liquidity errors.
	ErrZeroAmount                   = errors.New("pool: amount must be nonzero")
	ErrZeroOutput                   = errors.New("pool: computed output rounds to zero")
	ErrInsufficientLiquidity        = errors.New("pool: insufficient liquidity")
	ErrInsufficientInitialLiquidity = errors.New("pool: initial deposit too small to seed shares")

	// Internal consistency faults.
	ErrConsistencyFault = errors.New("pool: internal invariant violated")
)
