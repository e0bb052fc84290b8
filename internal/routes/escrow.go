package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/escrow"
)

// RegisterEscrowRoutes wires escrow account endpoints.
func RegisterEscrowRoutes(r fiber.Router, h *escrow.Handler) {
	r.Post("/escrow/deposit", h.Deposit)
	r.Post("/escrow/withdraw", h.Withdraw)
	r.Get("/escrow/balance", h.Balance)
}
