package api

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"ammPool/internal/engine"
)

// ErrInvalidRequestBody indicates that the request body could not be parsed
// into the expected structure.
var ErrInvalidRequestBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrInvalidPoolID is returned when the pool id path segment is not a
// decimal integer.
var ErrInvalidPoolID = fiber.NewError(fiber.StatusBadRequest, "invalid pool id")

// ErrAmountRequired is returned when a required amount field is missing.
var ErrAmountRequired = fiber.NewError(fiber.StatusBadRequest, "amount is required")

// ErrInvalidAmountFormat is returned when an amount cannot be parsed as a
// base-10 integer.
var ErrInvalidAmountFormat = fiber.NewError(fiber.StatusBadRequest, "invalid amount format")

// ErrSettlementUnavailable maps a failed ledger transfer to a 502 so callers
// can tell an upstream settlement outage apart from a rejected request.
var ErrSettlementUnavailable = fiber.NewError(fiber.StatusBadGateway, "ledger transfer failed")

// NewAddressRequired returns a 400 Bad Request for a missing address field.
func NewAddressRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" address is required")
}

// NewInvalidAddress returns a 400 Bad Request for an invalid address format.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

// mapEngineError translates engine sentinels into HTTP errors. Anything
// unrecognized becomes a 500 and is reported by the caller.
func mapEngineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrPoolNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrPoolExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrTransferFailed):
		return ErrSettlementUnavailable
	case errors.Is(err, engine.ErrInvalidConfiguration),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidAsset),
		errors.Is(err, engine.ErrInsufficientLiquidityMinted),
		errors.Is(err, engine.ErrInsufficientOutput),
		errors.Is(err, engine.ErrInsufficientLiquidity),
		errors.Is(err, engine.ErrInsufficientAmounts),
		errors.Is(err, engine.ErrInsufficientShares),
		errors.Is(err, engine.ErrNoLiquidity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return nil
	}
}
