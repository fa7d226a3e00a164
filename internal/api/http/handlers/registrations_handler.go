package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/maintenance-desk/internal/api/dto"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/service"
)

// RegistrationsHandler serves client sign-ups and their review.
type RegistrationsHandler struct {
	service *service.RegistrationService
}

// NewRegistrationsHandler constructs handler.
func NewRegistrationsHandler(registrationService *service.RegistrationService) *RegistrationsHandler {
	return &RegistrationsHandler{service: registrationService}
}

// Submit POST /registrations. Public.
func (h *RegistrationsHandler) Submit(c *fiber.Ctx) error {
	var req dto.RegistrationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reg, err := h.service.Submit(c.UserContext(), service.RegistrationInput{
		Organization: req.Organization,
		ContactName:  req.ContactName,
		Email:        req.Email,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": registrationResponse(reg)})
}

// List GET /admin/registrations.
func (h *RegistrationsHandler) List(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var status *domain.RegistrationStatus
	if raw := optionalQuery(c, "status"); raw != nil {
		s := domain.RegistrationStatus(*raw)
		status = &s
	}
	regs, err := h.service.List(c.UserContext(), actor, status)
	if err != nil {
		return err
	}
	items := make([]dto.RegistrationResponse, 0, len(regs))
	for i := range regs {
		items = append(items, registrationResponse(&regs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Approve POST /admin/registrations/:id/approve.
func (h *RegistrationsHandler) Approve(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ApproveRegistrationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.service.Approve(c.UserContext(), actor, c.Params("id"), req.Password)
	if err != nil {
		return err
	}
	data := fiber.Map{
		"registration": registrationResponse(result.Registration),
		"user":         userResponse(result.User),
	}
	if result.TemporaryPassword != "" {
		data["temporary_password"] = result.TemporaryPassword
	}
	return c.JSON(fiber.Map{"data": data, "warnings": result.Warnings})
}

// Reject POST /admin/registrations/:id/reject.
func (h *RegistrationsHandler) Reject(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.RejectRegistrationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.service.Reject(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":     fiber.Map{"registration": registrationResponse(result.Registration)},
		"warnings": result.Warnings,
	})
}
