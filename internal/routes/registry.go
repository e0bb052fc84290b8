package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
	"github.com/imranpollob/nft-rental-marketplace/internal/registry"
)

// RegisterDevRegistryRoutes exposes the in-process registry for development:
// minting assets and exercising the transfer-blocked-by-grant behavior.
// Never mounted outside dev mode.
func RegisterDevRegistryRoutes(r fiber.Router, reg *registry.Memory) {
	r.Post("/registry/assets", func(c *fiber.Ctx) error {
		var req struct {
			AssetID string `json:"asset_id"`
			Owner   string `json:"owner"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.AssetID == "" || req.Owner == "" {
			return fiber.NewError(http.StatusBadRequest, "asset_id and owner are required")
		}
		if err := reg.Mint(c.UserContext(), req.AssetID, req.Owner); err != nil {
			return fiber.NewError(fault.HTTPStatus(err), err.Error())
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"asset_id": req.AssetID, "owner": req.Owner})
	})

	r.Post("/registry/assets/:assetId/transfer", func(c *fiber.Ctx) error {
		var req struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := reg.Transfer(c.UserContext(), req.From, c.Params("assetId"), req.To); err != nil {
			return fiber.NewError(fault.HTTPStatus(err), err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"asset_id": c.Params("assetId"), "owner": req.To})
	})
}
