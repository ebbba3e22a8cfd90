package model

// PoolState is a point-in-time snapshot of one pool's accounting state.
// Amounts are decimal strings so the record survives JSON and SQL round trips
// without precision loss.
type PoolState struct {
	PoolID      uint64 `json:"pool_id"`
	AssetA      string `json:"asset_a"`
	AssetB      string `json:"asset_b"`
	ReserveA    string `json:"reserve_a"`
	ReserveB    string `json:"reserve_b"`
	TotalShares string `json:"total_shares"`
}
