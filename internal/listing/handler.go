package listing

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// Handler exposes listing HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a listing HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type termsRequest struct {
	AssetID        string `json:"asset_id"`
	PricePerSecond int64  `json:"price_per_second"`
	MinDuration    int64  `json:"min_duration"`
	MaxDuration    int64  `json:"max_duration"`
	Deposit        int64  `json:"deposit"`
	ScheduleHash   string `json:"schedule_hash"`
}

type listingResponse struct {
	AssetID        string `json:"asset_id"`
	Owner          string `json:"owner"`
	PricePerSecond int64  `json:"price_per_second"`
	MinDuration    int64  `json:"min_duration"`
	MaxDuration    int64  `json:"max_duration"`
	Deposit        int64  `json:"deposit"`
	ScheduleHash   string `json:"schedule_hash,omitempty"`
	Active         bool   `json:"active"`
	Version        int64  `json:"version"`
}

func toResponse(l Listing) listingResponse {
	return listingResponse{
		AssetID:        l.AssetID,
		Owner:          l.Owner,
		PricePerSecond: l.PricePerSecond,
		MinDuration:    l.MinDuration,
		MaxDuration:    l.MaxDuration,
		Deposit:        l.Deposit,
		ScheduleHash:   l.ScheduleHash,
		Active:         l.Active,
		Version:        l.Version,
	}
}

func (r termsRequest) terms() Terms {
	return Terms{
		PricePerSecond: r.PricePerSecond,
		MinDuration:    r.MinDuration,
		MaxDuration:    r.MaxDuration,
		Deposit:        r.Deposit,
		ScheduleHash:   r.ScheduleHash,
	}
}

// Create publishes rental terms for an asset owned by the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req termsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.AssetID == "" {
		return fiber.NewError(http.StatusBadRequest, "asset_id is required")
	}
	uid, _ := c.Locals("user_id").(string)

	l, err := h.service.Create(c.UserContext(), uid, req.AssetID, req.terms())
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(l))
}

// Update replaces the terms of the caller's listing.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req termsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	l, err := h.service.Update(c.UserContext(), uid, c.Params("assetId"), req.terms())
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(l))
}

// Cancel deactivates the caller's listing.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	l, err := h.service.Cancel(c.UserContext(), uid, c.Params("assetId"))
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(l))
}

// Get returns the listing for an asset.
func (h *Handler) Get(c *fiber.Ctx) error {
	l, err := h.service.Get(c.UserContext(), c.Params("assetId"))
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(l))
}
