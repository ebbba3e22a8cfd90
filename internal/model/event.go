package model

// Event kinds emitted by the pool engine.
const (
	EventProvision = "provision"
	EventSwap      = "swap"
	EventWithdraw  = "withdraw"
)

// PoolEvent is the audit record emitted after every successful pool operation.
// It is a side-channel notification for journaling and indexing, not part of
// the operation's result.
type PoolEvent struct {
	Seq       uint64 `json:"seq"`
	PoolID    uint64 `json:"pool_id"`
	Kind      string `json:"kind"`
	Actor     string `json:"actor"`
	AssetA    string `json:"asset_a"`
	AssetB    string `json:"asset_b"`
	AmountA   string `json:"amount_a"`
	AmountB   string `json:"amount_b"`
	Derived   string `json:"derived"`
	EmittedAt string `json:"emitted_at"`
}
