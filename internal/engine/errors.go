package engine

import "errors"

var (
	// ErrInvalidConfiguration is returned when a pool is constructed with a
	// zero or duplicate asset identifier.
	ErrInvalidConfiguration = errors.New("invalid pool configuration")
	// ErrInvalidAmount is returned when an operation receives a nil, zero or
	// negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidAsset is returned when a swap names an asset outside the
	// pool's pair.
	ErrInvalidAsset = errors.New("asset is not part of the pool")
	// ErrTransferFailed wraps a ledger failure; the pool's own state is
	// unchanged when it is returned.
	ErrTransferFailed = errors.New("ledger transfer failed")
	// ErrInsufficientLiquidityMinted is returned when a deposit would mint
	// zero shares.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrInsufficientOutput is returned when a swap would produce zero output.
	ErrInsufficientOutput = errors.New("insufficient output amount")
	// ErrInsufficientLiquidity is returned when a swap would drain the output
	// reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientAmounts is returned when a withdrawal would pay out zero
	// of either asset.
	ErrInsufficientAmounts = errors.New("insufficient withdrawal amounts")
	// ErrInsufficientShares is returned when a provider burns more shares
	// than they hold.
	ErrInsufficientShares = errors.New("insufficient shares")
	// ErrNoLiquidity is returned when withdrawing from an empty pool.
	ErrNoLiquidity = errors.New("pool has no liquidity")
	// ErrPoolExists is returned when registering a pair that already has a
	// pool.
	ErrPoolExists = errors.New("pool already exists for pair")
	// ErrPoolNotFound is returned for lookups of unknown pool ids.
	ErrPoolNotFound = errors.New("pool not found")
)
