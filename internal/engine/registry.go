package engine

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammPool/internal/ledger"
	"ammPool/internal/model"
	"ammPool/internal/storage"
)

// pairKey identifies an asset pair regardless of ordering.
type pairKey struct {
	lo common.Address
	hi common.Address
}

func newPairKey(a, b common.Address) pairKey {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Registry holds every live pool and enforces one pool per asset pair. Pool
// ids are assigned sequentially and never reused.
type Registry struct {
	mu     sync.RWMutex
	nextID uint64
	pools  map[uint64]*Pool
	byPair map[pairKey]uint64

	ledger ledger.Ledger
	events storage.EventSink
	logger *zap.Logger
}

func NewRegistry(l ledger.Ledger, sink storage.EventSink, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		nextID: 1,
		pools:  make(map[uint64]*Pool),
		byPair: make(map[pairKey]uint64),
		ledger: l,
		events: sink,
		logger: logger,
	}
}

// Create registers a pool for the pair. The pair is unordered: a pool for
// (A, B) blocks a later (B, A).
func (r *Registry) Create(assetA, assetB common.Address) (*Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := newPairKey(assetA, assetB)
	if id, ok := r.byPair[key]; ok {
		return nil, fmt.Errorf("%w: pair already served by pool %d", ErrPoolExists, id)
	}

	pool, err := NewPool(r.nextID, assetA, assetB, r.ledger, r.events, r.logger)
	if err != nil {
		return nil, err
	}

	r.pools[pool.ID()] = pool
	r.byPair[key] = pool.ID()
	r.nextID++

	r.logger.Info("pool created",
		zap.Uint64("pool_id", pool.ID()),
		zap.String("asset_a", assetA.Hex()),
		zap.String("asset_b", assetB.Hex()),
	)
	return pool, nil
}

// Get looks a pool up by id.
func (r *Registry) Get(id uint64) (*Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	return pool, nil
}

// View snapshots every registered pool, ordered by id.
func (r *Registry) View() []model.PoolState {
	r.mu.RLock()
	pools := make([]*Pool, 0, len(r.pools))
	for _, pool := range r.pools {
		pools = append(pools, pool)
	}
	r.mu.RUnlock()

	sort.Slice(pools, func(i, j int) bool { return pools[i].ID() < pools[j].ID() })

	states := make([]model.PoolState, 0, len(pools))
	for _, pool := range pools {
		states = append(states, pool.Snapshot())
	}
	return states
}
