package api

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"

	"ammPool/internal/engine"
	"ammPool/internal/ledger"
	"ammPool/internal/model"
)

var (
	assetA   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	assetB   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	provider = common.HexToAddress("0x0000000000000000000000000000000000001001")
)

func newTestApp(t *testing.T) (*fiber.App, *engine.Registry) {
	t.Helper()
	mem := ledger.NewMemory()
	mem.Mint(assetA, provider, big.NewInt(1_000_000))
	mem.Mint(assetB, provider, big.NewInt(1_000_000))

	registry := engine.NewRegistry(mem, nil, nil)
	app := fiber.New()
	NewPoolHandler(nil, registry).Register(app)
	return app, registry
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, payload
}

func createPool(t *testing.T, app *fiber.App) model.PoolState {
	t.Helper()
	resp, payload := doJSON(t, app, http.MethodPost, "/pools",
		`{"asset_a":"`+assetA.Hex()+`","asset_b":"`+assetB.Hex()+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create pool status: %d (%s)", resp.StatusCode, payload)
	}
	var state model.PoolState
	if err := json.Unmarshal(payload, &state); err != nil {
		t.Fatalf("decode pool state: %v", err)
	}
	return state
}

func TestCreateAndGetPool(t *testing.T) {
	app, _ := newTestApp(t)

	state := createPool(t, app)
	if state.PoolID != 1 || state.TotalShares != "0" {
		t.Fatalf("unexpected created pool: %+v", state)
	}

	resp, payload := doJSON(t, app, http.MethodGet, "/pools/1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get pool status: %d", resp.StatusCode)
	}
	var got model.PoolState
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode pool state: %v", err)
	}
	if got != state {
		t.Fatalf("pool state mismatch: %+v != %+v", got, state)
	}
}

func TestCreatePoolConflicts(t *testing.T) {
	app, _ := newTestApp(t)
	createPool(t, app)

	resp, _ := doJSON(t, app, http.MethodPost, "/pools",
		`{"asset_a":"`+assetB.Hex()+`","asset_b":"`+assetA.Hex()+`"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate pair, got %d", resp.StatusCode)
	}
}

func TestCreatePoolValidation(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/pools", `{"asset_a":"nonsense","asset_b":"`+assetB.Hex()+`"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad address, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/pools", `{"asset_b":"`+assetB.Hex()+`"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing address, got %d", resp.StatusCode)
	}
}

func TestGetPoolNotFound(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/pools/7", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/pools/abc", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", resp.StatusCode)
	}
}

func TestProvisionSwapWithdrawFlow(t *testing.T) {
	app, _ := newTestApp(t)
	createPool(t, app)

	resp, payload := doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"provider":"`+provider.Hex()+`","amount_a":"1000","amount_b":"1000"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("provision status: %d (%s)", resp.StatusCode, payload)
	}
	var prov ProvisionResponse
	if err := json.Unmarshal(payload, &prov); err != nil {
		t.Fatalf("decode provision response: %v", err)
	}
	if prov.SharesMinted != "1000" {
		t.Fatalf("shares minted: got %s, want 1000", prov.SharesMinted)
	}

	resp, payload = doJSON(t, app, http.MethodPost, "/pools/1/swap",
		`{"trader":"`+provider.Hex()+`","input_asset":"`+assetA.Hex()+`","amount_in":"100"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("swap status: %d (%s)", resp.StatusCode, payload)
	}
	var swap SwapResponse
	if err := json.Unmarshal(payload, &swap); err != nil {
		t.Fatalf("decode swap response: %v", err)
	}
	if swap.AmountOut != "90" {
		t.Fatalf("swap amount out: got %s, want 90", swap.AmountOut)
	}
	if swap.Pool.ReserveA != "1100" || swap.Pool.ReserveB != "910" {
		t.Fatalf("unexpected reserves after swap: %+v", swap.Pool)
	}

	resp, payload = doJSON(t, app, http.MethodPost, "/pools/1/withdraw",
		`{"provider":"`+provider.Hex()+`","shares":"500"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("withdraw status: %d (%s)", resp.StatusCode, payload)
	}
	var withdraw WithdrawResponse
	if err := json.Unmarshal(payload, &withdraw); err != nil {
		t.Fatalf("decode withdraw response: %v", err)
	}
	if withdraw.AmountA != "550" || withdraw.AmountB != "455" {
		t.Fatalf("withdraw payout: got (%s, %s), want (550, 455)", withdraw.AmountA, withdraw.AmountB)
	}
	if withdraw.Pool.TotalShares != "500" {
		t.Fatalf("total shares after withdraw: %+v", withdraw.Pool)
	}
}

func TestProvisionValidation(t *testing.T) {
	app, _ := newTestApp(t)
	createPool(t, app)

	resp, _ := doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"provider":"`+provider.Hex()+`","amount_a":"0","amount_b":"1000"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"provider":"`+provider.Hex()+`","amount_a":"ten","amount_b":"1000"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed amount, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"amount_a":"10","amount_b":"1000"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing provider, got %d", resp.StatusCode)
	}
}

func TestSwapUnknownAsset(t *testing.T) {
	app, _ := newTestApp(t)
	createPool(t, app)

	doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"provider":"`+provider.Hex()+`","amount_a":"1000","amount_b":"1000"}`)

	other := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	resp, _ := doJSON(t, app, http.MethodPost, "/pools/1/swap",
		`{"trader":"`+provider.Hex()+`","input_asset":"`+other.Hex()+`","amount_in":"100"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown asset, got %d", resp.StatusCode)
	}
}

func TestSwapSettlementFailureMapsTo502(t *testing.T) {
	app, _ := newTestApp(t)
	createPool(t, app)

	doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"provider":"`+provider.Hex()+`","amount_a":"1000","amount_b":"1000"}`)

	// The trader holds nothing, so the input transfer is rejected by the
	// ledger rather than by request validation.
	broke := common.HexToAddress("0x0000000000000000000000000000000000002002")
	resp, _ := doJSON(t, app, http.MethodPost, "/pools/1/swap",
		`{"trader":"`+broke.Hex()+`","input_asset":"`+assetA.Hex()+`","amount_in":"100"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 for ledger rejection, got %d", resp.StatusCode)
	}
}

func TestListPools(t *testing.T) {
	app, _ := newTestApp(t)

	resp, payload := doJSON(t, app, http.MethodGet, "/pools", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status: %d", resp.StatusCode)
	}
	var states []model.PoolState
	if err := json.Unmarshal(payload, &states); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected empty list, got %d", len(states))
	}

	createPool(t, app)
	_, payload = doJSON(t, app, http.MethodGet, "/pools", "")
	if err := json.Unmarshal(payload, &states); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(states) != 1 || states[0].PoolID != 1 {
		t.Fatalf("unexpected list: %+v", states)
	}
}

func TestGetShares(t *testing.T) {
	app, _ := newTestApp(t)
	createPool(t, app)

	doJSON(t, app, http.MethodPost, "/pools/1/provision",
		`{"provider":"`+provider.Hex()+`","amount_a":"100","amount_b":"400"}`)

	resp, payload := doJSON(t, app, http.MethodGet, "/pools/1/shares/"+provider.Hex(), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get shares status: %d", resp.StatusCode)
	}
	var shares SharesResponse
	if err := json.Unmarshal(payload, &shares); err != nil {
		t.Fatalf("decode shares: %v", err)
	}
	if shares.Shares != "200" {
		t.Fatalf("shares: got %s, want 200", shares.Shares)
	}
}
