package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-desk/internal/api/dto"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/service"
)

// AssetsHandler manages the asset register.
type AssetsHandler struct {
	service *service.AssetService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assetService *service.AssetService) *AssetsHandler {
	return &AssetsHandler{service: assetService}
}

// Create POST /assets.
func (h *AssetsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.service.CreateAsset(c.UserContext(), user, assetInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assetResponse(asset)})
}

// List GET /assets.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	filter := service.AssetListFilter{
		SiteID:    optionalQuery(c, "site_id"),
		AssetType: optionalQuery(c, "asset_type"),
		HOStock:   c.QueryBool("ho_stock"),
	}
	if status := optionalQuery(c, "status"); status != nil {
		s := domain.AssetStatus(*status)
		filter.Status = &s
	}
	filter.Limit, filter.Offset = pageParams(c)
	assets, err := h.service.ListAssets(c.UserContext(), user, filter)
	if err != nil {
		return err
	}
	items := make([]dto.AssetResponse, 0, len(assets))
	for i := range assets {
		items = append(items, assetResponse(&assets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	asset, err := h.service.GetAsset(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// Update PUT /assets/:id.
func (h *AssetsHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.service.UpdateAsset(c.UserContext(), user, c.Params("id"), assetInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// SetStatus POST /assets/:id/status.
func (h *AssetsHandler) SetStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssetStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	asset, err := h.service.SetStatus(c.UserContext(), user, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// Decommission DELETE /assets/:id. Assets are retired, never removed.
func (h *AssetsHandler) Decommission(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	asset, err := h.service.Decommission(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// Credentials GET /assets/:id/credentials.
func (h *AssetsHandler) Credentials(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	creds, err := h.service.RevealCredentials(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(fiber.Map{"data": creds})
}

func assetInput(req dto.AssetRequest) service.AssetInput {
	return service.AssetInput{
		AssetCode:    req.AssetCode,
		AssetType:    req.AssetType,
		DeviceType:   req.DeviceType,
		Make:         req.Make,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		SiteID:       req.SiteID,
		Status:       req.Status,
		Criticality:  req.Criticality,
		LocationName: req.LocationName,
		IPAddress:    req.IPAddress,
		Credentials:  req.Credentials,
	}
}
