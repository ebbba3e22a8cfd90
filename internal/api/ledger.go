package api

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"ammPool/internal/ledger"
)

// LedgerHandler exposes the in-memory ledger for single-node deployments:
// a mint faucet and balance lookups.
type LedgerHandler struct {
	logger *zap.Logger
	ledger *ledger.Memory
}

func NewLedgerHandler(logger *zap.Logger, mem *ledger.Memory) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{logger: logger, ledger: mem}
}

func (h *LedgerHandler) Register(app *fiber.App) {
	app.Post("/ledger/mint", h.Mint())
	app.Get("/ledger/:asset/balance/:holder", h.Balance())
}

type MintRequest struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

func (h *LedgerHandler) Mint() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req MintRequest
		if err := c.Bind().Body(&req); err != nil {
			return ErrInvalidRequestBody
		}
		asset, err := parseAddress("asset", req.Asset)
		if err != nil {
			return err
		}
		holder, err := parseAddress("holder", req.Holder)
		if err != nil {
			return err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return err
		}
		if amount.Sign() <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
		}

		h.ledger.Mint(asset, holder, amount)
		h.logger.Info("balance minted",
			zap.String("asset", asset.Hex()),
			zap.String("holder", holder.Hex()),
			zap.String("amount", amount.String()),
		)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type BalanceResponse struct {
	Asset   string `json:"asset"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

func (h *LedgerHandler) Balance() fiber.Handler {
	return func(c fiber.Ctx) error {
		asset, err := parseAddress("asset", c.Params("asset"))
		if err != nil {
			return err
		}
		holder, err := parseAddress("holder", c.Params("holder"))
		if err != nil {
			return err
		}

		balance, err := h.ledger.BalanceOf(context.Background(), asset, holder)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "balance lookup failed")
		}
		return c.JSON(BalanceResponse{
			Asset:   asset.Hex(),
			Holder:  holder.Hex(),
			Balance: balance.String(),
		})
	}
}
