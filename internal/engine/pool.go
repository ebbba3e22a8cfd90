// Package engine implements the constant-product pool: liquidity share
// accounting, swap pricing and reserve bookkeeping. Asset movement is
// delegated to an external ledger; the engine only tracks its own reserves.
package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammPool/internal/ledger"
	"ammPool/internal/model"
	"ammPool/internal/storage"
)

// Pool owns the reserves and share ledger for one asset pair. All three
// operations run under a single mutex held for the whole state transition,
// including the delegated ledger calls, so a reentrant call through the
// ledger blocks instead of observing half-applied reserves.
type Pool struct {
	id      uint64
	assetA  common.Address
	assetB  common.Address
	account common.Address

	mu          sync.Mutex
	reserveA    *big.Int
	reserveB    *big.Int
	totalShares *big.Int
	shares      map[common.Address]*big.Int
	seq         uint64

	ledger ledger.Ledger
	events storage.EventSink
	logger *zap.Logger
}

// NewPool binds a pair of distinct, non-zero asset identifiers for the pool's
// lifetime. Reserves and shares start at zero.
func NewPool(id uint64, assetA, assetB common.Address, l ledger.Ledger, sink storage.EventSink, logger *zap.Logger) (*Pool, error) {
	if assetA == (common.Address{}) || assetB == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero asset address", ErrInvalidConfiguration)
	}
	if assetA == assetB {
		return nil, fmt.Errorf("%w: identical assets", ErrInvalidConfiguration)
	}
	if l == nil {
		return nil, fmt.Errorf("%w: ledger is required", ErrInvalidConfiguration)
	}
	if sink == nil {
		sink = storage.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		id:          id,
		assetA:      assetA,
		assetB:      assetB,
		account:     poolAccount(id),
		reserveA:    new(big.Int),
		reserveB:    new(big.Int),
		totalShares: new(big.Int),
		shares:      make(map[common.Address]*big.Int),
		ledger:      l,
		events:      sink,
		logger:      logger,
	}, nil
}

// poolAccount derives the pool's own ledger identity from its id.
func poolAccount(id uint64) common.Address {
	var b [12]byte
	copy(b[:4], "pool")
	binary.BigEndian.PutUint64(b[4:], id)
	return common.BytesToAddress(b[:])
}

func (p *Pool) ID() uint64 { return p.id }

// Assets returns the pair bound at construction.
func (p *Pool) Assets() (common.Address, common.Address) { return p.assetA, p.assetB }

// Account is the pool's identity on the ledger.
func (p *Pool) Account() common.Address { return p.account }

// Provision deposits amountA of assetA and amountB of assetB from the
// provider and mints liquidity shares. The first provisioning mints the
// geometric mean of the amounts; later ones mint the more dilutive of the two
// deposit ratios, with any excess of the non-limiting asset donated to the
// pool. Reserves are resynced from the ledger's actual holdings afterwards,
// so externally donated balances are absorbed rather than lost.
func (p *Pool) Provision(ctx context.Context, amountA, amountB *big.Int, provider common.Address) (*big.Int, error) {
	if !positive(amountA) || !positive(amountB) {
		return nil, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ledger.TransferFrom(ctx, p.assetA, provider, p.account, amountA); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := p.ledger.TransferFrom(ctx, p.assetB, provider, p.account, amountB); err != nil {
		p.compensate(ctx, p.assetA, provider, amountA)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	balanceA, balanceB, err := p.custodyBalances(ctx)
	if err != nil {
		p.compensate(ctx, p.assetA, provider, amountA)
		p.compensate(ctx, p.assetB, provider, amountB)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	minted := p.sharesForDeposit(amountA, amountB)
	if minted.Sign() == 0 {
		p.compensate(ctx, p.assetA, provider, amountA)
		p.compensate(ctx, p.assetB, provider, amountB)
		return nil, ErrInsufficientLiquidityMinted
	}

	p.creditShares(provider, minted)
	p.totalShares.Add(p.totalShares, minted)
	p.reserveA.Set(balanceA)
	p.reserveB.Set(balanceB)

	p.emit(model.EventProvision, provider, amountA, amountB, minted)
	return new(big.Int).Set(minted), nil
}

// custodyBalances reads the pool's live holdings of both assets from the
// ledger. Caller holds the lock.
func (p *Pool) custodyBalances(ctx context.Context) (*big.Int, *big.Int, error) {
	balanceA, err := p.ledger.BalanceOf(ctx, p.assetA, p.account)
	if err != nil {
		return nil, nil, err
	}
	balanceB, err := p.ledger.BalanceOf(ctx, p.assetB, p.account)
	if err != nil {
		return nil, nil, err
	}
	return balanceA, balanceB, nil
}

// sharesForDeposit computes the mint amount against the reserves as they were
// before this deposit. Caller holds the lock.
func (p *Pool) sharesForDeposit(amountA, amountB *big.Int) *big.Int {
	if p.totalShares.Sign() == 0 {
		product := new(big.Int).Mul(amountA, amountB)
		return isqrt(product)
	}

	byA := new(big.Int).Mul(amountA, p.totalShares)
	byA.Quo(byA, p.reserveA)
	byB := new(big.Int).Mul(amountB, p.totalShares)
	byB.Quo(byB, p.reserveB)
	return new(big.Int).Set(minBig(byA, byB))
}

// Swap trades amountIn of inputAsset for the other asset at the
// constant-product price with a 0.3% fee on the input. The quote and its
// guards are evaluated before any ledger call, so a failed transfer leaves
// the pool untouched.
func (p *Pool) Swap(ctx context.Context, amountIn *big.Int, inputAsset, trader common.Address) (*big.Int, error) {
	if !positive(amountIn) {
		return nil, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var reserveIn, reserveOut *big.Int
	var outputAsset common.Address
	switch inputAsset {
	case p.assetA:
		reserveIn, reserveOut = p.reserveA, p.reserveB
		outputAsset = p.assetB
	case p.assetB:
		reserveIn, reserveOut = p.reserveB, p.reserveA
		outputAsset = p.assetA
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAsset, inputAsset.Hex())
	}

	amountOut := getAmountOut(amountIn, reserveIn, reserveOut)
	if amountOut.Sign() == 0 {
		return nil, ErrInsufficientOutput
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	if err := p.ledger.TransferFrom(ctx, inputAsset, trader, p.account, amountIn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := p.ledger.Transfer(ctx, outputAsset, p.account, trader, amountOut); err != nil {
		p.compensate(ctx, inputAsset, trader, amountIn)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, amountOut)

	if inputAsset == p.assetA {
		p.emit(model.EventSwap, trader, amountIn, amountOut, amountOut)
	} else {
		p.emit(model.EventSwap, trader, amountOut, amountIn, amountOut)
	}
	return amountOut, nil
}

// Withdraw burns shares and pays out the pro-rata portion of both reserves.
// Both outgoing transfers happen before any bookkeeping, so a ledger failure
// leaves reserves and the share ledger fully intact.
func (p *Pool) Withdraw(ctx context.Context, shares *big.Int, provider common.Address) (*big.Int, *big.Int, error) {
	if !positive(shares) {
		return nil, nil, ErrInvalidAmount
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalShares.Sign() == 0 {
		return nil, nil, ErrNoLiquidity
	}
	held, ok := p.shares[provider]
	if !ok || held.Cmp(shares) < 0 {
		return nil, nil, ErrInsufficientShares
	}

	amountA := new(big.Int).Mul(shares, p.reserveA)
	amountA.Quo(amountA, p.totalShares)
	amountB := new(big.Int).Mul(shares, p.reserveB)
	amountB.Quo(amountB, p.totalShares)
	if amountA.Sign() == 0 || amountB.Sign() == 0 {
		return nil, nil, ErrInsufficientAmounts
	}

	if err := p.ledger.Transfer(ctx, p.assetA, p.account, provider, amountA); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if err := p.ledger.Transfer(ctx, p.assetB, p.account, provider, amountB); err != nil {
		p.clawback(ctx, p.assetA, provider, amountA)
		return nil, nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	held.Sub(held, shares)
	if held.Sign() == 0 {
		delete(p.shares, provider)
	}
	p.totalShares.Sub(p.totalShares, shares)
	p.reserveA.Sub(p.reserveA, amountA)
	p.reserveB.Sub(p.reserveB, amountB)

	p.emit(model.EventWithdraw, provider, amountA, amountB, shares)
	return amountA, amountB, nil
}

// Snapshot returns a copy of the pool's accounting state.
func (p *Pool) Snapshot() model.PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.PoolState{
		PoolID:      p.id,
		AssetA:      p.assetA.Hex(),
		AssetB:      p.assetB.Hex(),
		ReserveA:    p.reserveA.String(),
		ReserveB:    p.reserveB.String(),
		TotalShares: p.totalShares.String(),
	}
}

// SharesOf returns the provider's current share balance.
func (p *Pool) SharesOf(provider common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if held, ok := p.shares[provider]; ok {
		return new(big.Int).Set(held)
	}
	return new(big.Int)
}

// creditShares assumes the lock is held.
func (p *Pool) creditShares(provider common.Address, minted *big.Int) {
	held, ok := p.shares[provider]
	if !ok {
		held = new(big.Int)
		p.shares[provider] = held
	}
	held.Add(held, minted)
}

// compensate returns an already-moved amount to its sender after a later leg
// of the same operation failed. A failed compensation is an out-of-band
// inconsistency the ledger operator has to settle; it is logged, not
// propagated.
func (p *Pool) compensate(ctx context.Context, asset, to common.Address, amount *big.Int) {
	if err := p.ledger.Transfer(ctx, asset, p.account, to, amount); err != nil {
		p.logger.Error("compensating transfer failed",
			zap.Uint64("pool_id", p.id),
			zap.String("asset", asset.Hex()),
			zap.String("to", to.Hex()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
	}
}

// clawback pulls an already-paid amount back from its recipient after a later
// leg of the same operation failed. The pull goes through TransferFrom, so a
// ledger that enforces allowances needs the recipient's grant to the pool
// still in place for it to succeed. Like compensate, a failure here is logged
// for the ledger operator rather than propagated.
func (p *Pool) clawback(ctx context.Context, asset, from common.Address, amount *big.Int) {
	if err := p.ledger.TransferFrom(ctx, asset, from, p.account, amount); err != nil {
		p.logger.Error("clawback transfer failed",
			zap.Uint64("pool_id", p.id),
			zap.String("asset", asset.Hex()),
			zap.String("from", from.Hex()),
			zap.String("amount", amount.String()),
			zap.Error(err),
		)
	}
}

// emit publishes the audit event for a completed operation. The sink is a
// side channel: a journaling failure is logged and does not fail the
// operation. Caller holds the lock.
func (p *Pool) emit(kind string, actor common.Address, amountA, amountB, derived *big.Int) {
	p.seq++
	event := model.PoolEvent{
		Seq:       p.seq,
		PoolID:    p.id,
		Kind:      kind,
		Actor:     actor.Hex(),
		AssetA:    p.assetA.Hex(),
		AssetB:    p.assetB.Hex(),
		AmountA:   amountA.String(),
		AmountB:   amountB.String(),
		Derived:   derived.String(),
		EmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := p.events.PutEventBatch([]model.PoolEvent{event}); err != nil {
		p.logger.Warn("event journal write failed",
			zap.Uint64("pool_id", p.id),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func positive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}
