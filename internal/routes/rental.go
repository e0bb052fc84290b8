package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/rental"
)

// RegisterRentalRoutes wires booking, check-in and settlement endpoints.
func RegisterRentalRoutes(r fiber.Router, h *rental.Handler) {
	r.Post("/rentals", h.Book)
	r.Get("/rentals/:rentalId", h.Get)
	r.Post("/rentals/:rentalId/checkin", h.CheckIn)
	r.Post("/rentals/:rentalId/finalize", h.Finalize)
}

// RegisterAdminRoutes wires the privileged fee configuration endpoints.
func RegisterAdminRoutes(r fiber.Router, h *rental.Handler) {
	r.Put("/fee", h.SetFee)
	r.Put("/fee-recipient", h.SetFeeRecipient)
}
