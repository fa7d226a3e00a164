package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-desk/internal/api/dto"
	"github.com/fieldops/maintenance-desk/internal/service"
	"github.com/fieldops/maintenance-desk/internal/workflow"
)

// RMAStepRoute binds an RMA step to its route segment under /rma/:id.
type RMAStepRoute struct {
	Path string
	Step workflow.RMAStep
}

// RMAStepRoutes lists every RMA step route in workflow order.
var RMAStepRoutes = []RMAStepRoute{
	{Path: "approve", Step: workflow.RMAStepApprove},
	{Path: "reject", Step: workflow.RMAStepReject},
	{Path: "ship", Step: workflow.RMAStepShip},
	{Path: "receive-at-ho", Step: workflow.RMAStepReceiveAtHO},
	{Path: "forward-to-service-center", Step: workflow.RMAStepForwardToService},
	{Path: "mark-repaired", Step: workflow.RMAStepMarkRepaired},
	{Path: "destination", Step: workflow.RMAStepSelectDestination},
	{Path: "receive-at-site", Step: workflow.RMAStepReceiveAtSite},
	{Path: "install", Step: workflow.RMAStepInstall},
	{Path: "replacement/requisition", Step: workflow.RMAStepRaiseRequisition},
	{Path: "replacement/dispatch", Step: workflow.RMAStepDispatchReplacement},
	{Path: "replacement/receive", Step: workflow.RMAStepReceiveReplacement},
	{Path: "replacement/install", Step: workflow.RMAStepInstallReplacement},
}

// RMAHandler exposes the RMA workflow.
type RMAHandler struct {
	service *service.RMAService
}

// NewRMAHandler constructs handler.
func NewRMAHandler(rmaService *service.RMAService) *RMAHandler {
	return &RMAHandler{service: rmaService}
}

// Request POST /tickets/:id/rma.
func (h *RMAHandler) Request(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.RMARequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	rma, err := h.service.RequestRMA(c.UserContext(), user, c.Params("id"), service.RMARequestInput{
		Type:   req.Type,
		Reason: req.Reason,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": rmaResponse(rma)})
}

// ListForTicket GET /tickets/:id/rma.
func (h *RMAHandler) ListForTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	rmas, err := h.service.ListForTicket(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.RMAResponse, 0, len(rmas))
	for i := range rmas {
		items = append(items, rmaResponse(&rmas[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /rma/:id.
func (h *RMAHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	rma, err := h.service.GetRMA(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rmaResponse(rma)})
}

// Step returns the handler for POST /rma/:id/<step>.
func (h *RMAHandler) Step(step workflow.RMAStep) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		var req dto.RMAStepRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		input := service.RMAStepInput{
			Reason:              req.Reason,
			ShipToServiceCenter: req.ShipToServiceCenter,
			Destination:         req.Destination,
			DestinationSiteID:   req.DestinationSiteID,
			StockSource:         req.StockSource,
			SourceSiteID:        req.SourceSiteID,
			ReplacementAssetID:  req.ReplacementAssetID,
			ReplacementDetails:  req.ReplacementDetails,
		}
		if strings.TrimSpace(req.Carrier) != "" || strings.TrimSpace(req.TrackingNumber) != "" {
			input.Logistics = &service.LogisticsInput{Carrier: req.Carrier, TrackingNumber: req.TrackingNumber}
		}
		rma, err := h.service.Advance(c.UserContext(), user, c.Params("id"), step, input)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": rmaResponse(rma)})
	}
}
