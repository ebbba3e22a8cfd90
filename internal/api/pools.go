// Package api exposes the pool engine over HTTP.
package api

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"ammPool/internal/engine"
	"ammPool/internal/model"
)

// PoolHandler serves the pool registry and its per-pool operations.
type PoolHandler struct {
	logger   *zap.Logger
	registry *engine.Registry
}

func NewPoolHandler(logger *zap.Logger, registry *engine.Registry) *PoolHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolHandler{logger: logger, registry: registry}
}

// Register mounts all pool routes on the app.
func (h *PoolHandler) Register(app *fiber.App) {
	app.Post("/pools", h.CreatePool())
	app.Get("/pools", h.ListPools())
	app.Get("/pools/:id", h.GetPool())
	app.Get("/pools/:id/shares/:holder", h.GetShares())
	app.Post("/pools/:id/provision", h.Provision())
	app.Post("/pools/:id/swap", h.Swap())
	app.Post("/pools/:id/withdraw", h.Withdraw())
}

type CreatePoolRequest struct {
	AssetA string `json:"asset_a"`
	AssetB string `json:"asset_b"`
}

func (h *PoolHandler) CreatePool() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req CreatePoolRequest
		if err := c.Bind().Body(&req); err != nil {
			return ErrInvalidRequestBody
		}
		assetA, err := parseAddress("asset_a", req.AssetA)
		if err != nil {
			return err
		}
		assetB, err := parseAddress("asset_b", req.AssetB)
		if err != nil {
			return err
		}

		pool, err := h.registry.Create(assetA, assetB)
		if err != nil {
			return h.engineError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(pool.Snapshot())
	}
}

func (h *PoolHandler) ListPools() fiber.Handler {
	return func(c fiber.Ctx) error {
		states := h.registry.View()
		if states == nil {
			states = []model.PoolState{}
		}
		return c.JSON(states)
	}
}

func (h *PoolHandler) GetPool() fiber.Handler {
	return func(c fiber.Ctx) error {
		pool, err := h.lookupPool(c)
		if err != nil {
			return err
		}
		return c.JSON(pool.Snapshot())
	}
}

type SharesResponse struct {
	PoolID uint64 `json:"pool_id"`
	Holder string `json:"holder"`
	Shares string `json:"shares"`
}

func (h *PoolHandler) GetShares() fiber.Handler {
	return func(c fiber.Ctx) error {
		pool, err := h.lookupPool(c)
		if err != nil {
			return err
		}
		holder, err := parseAddress("holder", c.Params("holder"))
		if err != nil {
			return err
		}
		return c.JSON(SharesResponse{
			PoolID: pool.ID(),
			Holder: holder.Hex(),
			Shares: pool.SharesOf(holder).String(),
		})
	}
}

type ProvisionRequest struct {
	Provider string `json:"provider"`
	AmountA  string `json:"amount_a"`
	AmountB  string `json:"amount_b"`
}

type ProvisionResponse struct {
	SharesMinted string          `json:"shares_minted"`
	Pool         model.PoolState `json:"pool"`
}

func (h *PoolHandler) Provision() fiber.Handler {
	return func(c fiber.Ctx) error {
		pool, err := h.lookupPool(c)
		if err != nil {
			return err
		}
		var req ProvisionRequest
		if err := c.Bind().Body(&req); err != nil {
			return ErrInvalidRequestBody
		}
		provider, err := parseAddress("provider", req.Provider)
		if err != nil {
			return err
		}
		amountA, err := parseAmount(req.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseAmount(req.AmountB)
		if err != nil {
			return err
		}

		minted, err := pool.Provision(context.Background(), amountA, amountB, provider)
		if err != nil {
			return h.engineError(c, err)
		}

		h.logger.Info("liquidity provisioned",
			zap.Uint64("pool_id", pool.ID()),
			zap.String("provider", provider.Hex()),
			zap.String("shares_minted", minted.String()),
		)
		return c.JSON(ProvisionResponse{SharesMinted: minted.String(), Pool: pool.Snapshot()})
	}
}

type SwapRequest struct {
	Trader     string `json:"trader"`
	InputAsset string `json:"input_asset"`
	AmountIn   string `json:"amount_in"`
}

type SwapResponse struct {
	AmountOut string          `json:"amount_out"`
	Pool      model.PoolState `json:"pool"`
}

func (h *PoolHandler) Swap() fiber.Handler {
	return func(c fiber.Ctx) error {
		pool, err := h.lookupPool(c)
		if err != nil {
			return err
		}
		var req SwapRequest
		if err := c.Bind().Body(&req); err != nil {
			return ErrInvalidRequestBody
		}
		trader, err := parseAddress("trader", req.Trader)
		if err != nil {
			return err
		}
		inputAsset, err := parseAddress("input_asset", req.InputAsset)
		if err != nil {
			return err
		}
		amountIn, err := parseAmount(req.AmountIn)
		if err != nil {
			return err
		}

		amountOut, err := pool.Swap(context.Background(), amountIn, inputAsset, trader)
		if err != nil {
			return h.engineError(c, err)
		}

		h.logger.Info("swap executed",
			zap.Uint64("pool_id", pool.ID()),
			zap.String("trader", trader.Hex()),
			zap.String("amount_in", amountIn.String()),
			zap.String("amount_out", amountOut.String()),
		)
		return c.JSON(SwapResponse{AmountOut: amountOut.String(), Pool: pool.Snapshot()})
	}
}

type WithdrawRequest struct {
	Provider string `json:"provider"`
	Shares   string `json:"shares"`
}

type WithdrawResponse struct {
	AmountA string          `json:"amount_a"`
	AmountB string          `json:"amount_b"`
	Pool    model.PoolState `json:"pool"`
}

func (h *PoolHandler) Withdraw() fiber.Handler {
	return func(c fiber.Ctx) error {
		pool, err := h.lookupPool(c)
		if err != nil {
			return err
		}
		var req WithdrawRequest
		if err := c.Bind().Body(&req); err != nil {
			return ErrInvalidRequestBody
		}
		provider, err := parseAddress("provider", req.Provider)
		if err != nil {
			return err
		}
		shares, err := parseAmount(req.Shares)
		if err != nil {
			return err
		}

		amountA, amountB, err := pool.Withdraw(context.Background(), shares, provider)
		if err != nil {
			return h.engineError(c, err)
		}

		h.logger.Info("liquidity withdrawn",
			zap.Uint64("pool_id", pool.ID()),
			zap.String("provider", provider.Hex()),
			zap.String("shares", shares.String()),
		)
		return c.JSON(WithdrawResponse{
			AmountA: amountA.String(),
			AmountB: amountB.String(),
			Pool:    pool.Snapshot(),
		})
	}
}

func (h *PoolHandler) lookupPool(c fiber.Ctx) (*engine.Pool, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nil, ErrInvalidPoolID
	}
	pool, err := h.registry.Get(id)
	if err != nil {
		return nil, h.engineError(c, err)
	}
	return pool, nil
}

func (h *PoolHandler) engineError(c fiber.Ctx, err error) error {
	if mapped := mapEngineError(err); mapped != nil {
		return mapped
	}
	h.logger.Error("pool operation failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return fiber.NewError(fiber.StatusInternalServerError, "pool operation failed")
}

func parseAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, NewAddressRequired(field)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, NewInvalidAddress(field)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, ErrAmountRequired
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, ErrInvalidAmountFormat
	}
	return amount, nil
}
