package rental

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
)

// Handler exposes rental HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a rental HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type bookRequest struct {
	AssetID        string `json:"asset_id"`
	Start          int64  `json:"start"`
	End            int64  `json:"end"`
	Payment        int64  `json:"payment"`
	ListingVersion int64  `json:"listing_version"`
}

type rentalResponse struct {
	ID        string `json:"id"`
	AssetID   string `json:"asset_id"`
	Renter    string `json:"renter"`
	Owner     string `json:"owner"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Amount    int64  `json:"amount"`
	Deposit   int64  `json:"deposit"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func toResponse(rt Rental) rentalResponse {
	return rentalResponse{
		ID:        rt.ID,
		AssetID:   rt.AssetID,
		Renter:    rt.Renter,
		Owner:     rt.Owner,
		Start:     rt.Start,
		End:       rt.End,
		Amount:    rt.Amount,
		Deposit:   rt.Deposit,
		Status:    string(rt.Status),
		CreatedAt: rt.CreatedAt.Format(time.RFC3339),
	}
}

// Book creates a rental over the requested interval.
func (h *Handler) Book(c *fiber.Ctx) error {
	var req bookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.AssetID == "" {
		return fiber.NewError(http.StatusBadRequest, "asset_id is required")
	}
	uid, _ := c.Locals("user_id").(string)

	rt, err := h.service.Book(c.UserContext(), BookInput{
		Renter:         uid,
		AssetID:        req.AssetID,
		Start:          req.Start,
		End:            req.End,
		Payment:        req.Payment,
		ListingVersion: req.ListingVersion,
	})
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(rt))
}

// CheckIn grants the caller usage of the rented asset.
func (h *Handler) CheckIn(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)

	rt, err := h.service.CheckIn(c.UserContext(), uid, c.Params("rentalId"))
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(rt))
}

// Finalize settles an ended rental. Deliberately open to any caller.
func (h *Handler) Finalize(c *fiber.Ctx) error {
	rt, err := h.service.Finalize(c.UserContext(), c.Params("rentalId"))
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(rt))
}

// Get returns a rental visible to its renter, its owner, or an admin.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)

	rt, err := h.service.Get(c.UserContext(), c.Params("rentalId"))
	if err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	if uid != rt.Renter && uid != rt.Owner && role != "admin" {
		return fiber.NewError(http.StatusForbidden, "not a party to this rental")
	}
	return c.Status(http.StatusOK).JSON(toResponse(rt))
}

type feeRequest struct {
	Bps int64 `json:"bps"`
}

// SetFee updates the protocol fee in basis points. Admin only.
func (h *Handler) SetFee(c *fiber.Ctx) error {
	var req feeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetFeeBps(req.Bps); err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	bps, recipient := h.service.FeeConfig()
	return c.Status(http.StatusOK).JSON(fiber.Map{"fee_bps": bps, "fee_recipient": recipient})
}

type feeRecipientRequest struct {
	Identity string `json:"identity"`
}

// SetFeeRecipient updates the fee beneficiary. Admin only.
func (h *Handler) SetFeeRecipient(c *fiber.Ctx) error {
	var req feeRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetFeeRecipient(req.Identity); err != nil {
		return fiber.NewError(fault.HTTPStatus(err), err.Error())
	}
	bps, recipient := h.service.FeeConfig()
	return c.Status(http.StatusOK).JSON(fiber.Map{"fee_bps": bps, "fee_recipient": recipient})
}
