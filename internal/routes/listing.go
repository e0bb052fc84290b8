package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/listing"
)

// RegisterListingRoutes wires the owner-facing listing endpoints. The public
// read endpoint is registered separately, outside the auth group.
func RegisterListingRoutes(r fiber.Router, h *listing.Handler) {
	r.Post("/listings", h.Create)
	r.Put("/listings/:assetId", h.Update)
	r.Delete("/listings/:assetId", h.Cancel)
}
