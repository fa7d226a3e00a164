package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-desk/internal/api/dto"
	"github.com/fieldops/maintenance-desk/internal/service"
)

// SitesHandler manages sites.
type SitesHandler struct {
	service *service.SiteService
}

// NewSitesHandler constructs handler.
func NewSitesHandler(siteService *service.SiteService) *SitesHandler {
	return &SitesHandler{service: siteService}
}

// Create POST /sites.
func (h *SitesHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SiteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	site, err := h.service.CreateSite(c.UserContext(), user, siteInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": siteResponse(site)})
}

// List GET /sites.
func (h *SitesHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	sites, err := h.service.ListSites(c.UserContext(), user, c.QueryBool("active"))
	if err != nil {
		return err
	}
	items := make([]dto.SiteResponse, 0, len(sites))
	for i := range sites {
		items = append(items, siteResponse(&sites[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /sites/:id.
func (h *SitesHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	site, err := h.service.GetSite(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": siteResponse(site)})
}

// Update PUT /sites/:id.
func (h *SitesHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SiteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	site, err := h.service.UpdateSite(c.UserContext(), user, c.Params("id"), siteInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": siteResponse(site)})
}

func siteInput(req dto.SiteRequest) service.SiteInput {
	return service.SiteInput{
		Code:         req.Code,
		Name:         req.Name,
		Region:       req.Region,
		Address:      req.Address,
		IsHeadOffice: req.IsHeadOffice,
		IsActive:     req.IsActive,
	}
}
