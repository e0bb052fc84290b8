package escrow

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// Handler exposes escrow account endpoints for the authenticated caller.
type Handler struct {
	ledger Ledger
}

// NewHandler builds an escrow HTTP handler.
func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit funds the caller's withdrawable balance.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	balance, err := h.ledger.Deposit(c.UserContext(), uid, req.Amount)
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"identity": uid,
		"balance":  balance,
	})
}

// Withdraw drains the caller's withdrawable balance through the payout gateway.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	amount, err := h.ledger.Withdraw(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"identity":    uid,
		"transferred": amount,
	})
}

// Balance returns the caller's withdrawable balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	balance, err := h.ledger.Withdrawable(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"identity": uid,
		"balance":  balance,
	})
}
