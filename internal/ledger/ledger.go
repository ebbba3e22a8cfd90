// Package ledger defines the external balance ledger the pool engine
// delegates all asset movement to.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientBalance is returned when a transfer exceeds the sender's
// holdings of the asset.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger moves quantities of named assets between parties and reports
// holdings. Every call is atomic from the engine's point of view: a transfer
// either fully happens or leaves both balances untouched.
type Ledger interface {
	// TransferFrom moves amount of asset from one party to another on the
	// caller's behalf.
	TransferFrom(ctx context.Context, asset, from, to common.Address, amount *big.Int) error
	// Transfer moves amount of asset out of the pool's own custody.
	Transfer(ctx context.Context, asset, from, to common.Address, amount *big.Int) error
	// BalanceOf reports the holder's current holdings of asset.
	BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error)
}
