package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Memory is an in-process Ledger backed by a balance map. It serves tests and
// the single-node serve command; a production deployment would put a real
// settlement system behind the Ledger interface instead.
type Memory struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*big.Int
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[common.Address]map[common.Address]*big.Int)}
}

// Mint credits amount of asset to holder out of thin air.
func (m *Memory) Mint(asset, holder common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(asset, holder, amount)
}

func (m *Memory) TransferFrom(ctx context.Context, asset, from, to common.Address, amount *big.Int) error {
	return m.move(asset, from, to, amount)
}

func (m *Memory) Transfer(ctx context.Context, asset, from, to common.Address, amount *big.Int) error {
	return m.move(asset, from, to, amount)
}

func (m *Memory) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if holdings, ok := m.balances[asset]; ok {
		if bal, ok := holdings[holder]; ok {
			return new(big.Int).Set(bal), nil
		}
	}
	return new(big.Int), nil
}

func (m *Memory) move(asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}
	if amount.Sign() == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holdings := m.balances[asset]
	bal, ok := holdings[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: asset %s holder %s", ErrInsufficientBalance, asset.Hex(), from.Hex())
	}

	bal.Sub(bal, amount)
	m.credit(asset, to, amount)
	return nil
}

// credit assumes the lock is held.
func (m *Memory) credit(asset, holder common.Address, amount *big.Int) {
	holdings, ok := m.balances[asset]
	if !ok {
		holdings = make(map[common.Address]*big.Int)
		m.balances[asset] = holdings
	}
	bal, ok := holdings[holder]
	if !ok {
		bal = new(big.Int)
		holdings[holder] = bal
	}
	bal.Add(bal, amount)
}
