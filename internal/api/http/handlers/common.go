package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fieldops/maintenance-desk/internal/api/dto"
	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/domain"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.PrincipalFromContext(c)
	if !ok || user == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return user, nil
}

// RequireUUIDParam rejects the request unless route param name is a UUID.
func RequireUUIDParam(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := uuid.Parse(c.Params(name)); err != nil {
			return apperrors.NewValidationError(name+" must be a uuid", map[string]any{"field": name})
		}
		return c.Next()
	}
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func optionalBool(c *fiber.Ctx, key string) *bool {
	switch strings.ToLower(c.Query(key)) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

func pageParams(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	if pageSize > 200 {
		pageSize = 200
	}
	return pageSize, (page - 1) * pageSize
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                    t.ID,
		TicketNumber:          t.TicketNumber,
		Title:                 t.Title,
		Description:           t.Description,
		Category:              t.Category,
		SubCategory:           t.SubCategory,
		Status:                t.Status,
		Priority:              t.Priority,
		Impact:                t.Impact,
		Urgency:               t.Urgency,
		AssetCriticality:      t.AssetCriticality,
		PriorityScore:         t.PriorityScore,
		AssetID:               t.AssetID,
		SiteID:                t.SiteID,
		AssignedTo:            t.AssignedTo,
		EscalationLevel:       t.EscalationLevel,
		EscalationAcceptedBy:  t.EscalationAcceptedBy,
		EscalationReason:      t.EscalationReason,
		SLAResponseDue:        t.SLAResponseDue,
		SLARestoreDue:         t.SLARestoreDue,
		RespondedAt:           t.RespondedAt,
		ResolvedAt:            t.ResolvedAt,
		ClosedAt:              t.ClosedAt,
		ResolutionSummary:     t.ResolutionSummary,
		RootCause:             t.RootCause,
		RejectionReason:       t.RejectionReason,
		IsSLAResponseBreached: t.IsSLAResponseBreached,
		IsSLARestoreBreached:  t.IsSLARestoreBreached,
		SLAStatus:             t.SLAStatus,
		CreatedBy:             t.CreatedBy,
		CreatedOn:             t.CreatedOn,
		UpdatedAt:             t.UpdatedAt,
	}
}

func activityResponse(a *domain.Activity) dto.ActivityResponse {
	attachments := a.Attachments
	if attachments == nil {
		attachments = []domain.AttachmentReference{}
	}
	return dto.ActivityResponse{
		ID:           a.ID,
		TicketID:     a.TicketID,
		UserID:       a.UserID,
		ActivityType: a.ActivityType,
		Content:      a.Content,
		OldStatus:    a.OldStatus,
		NewStatus:    a.NewStatus,
		IsInternal:   a.IsInternal,
		Attachments:  attachments,
		CreatedAt:    a.CreatedAt,
	}
}

func rmaResponse(r *domain.RMA) dto.RMAResponse {
	logistics := r.Logistics
	if logistics == nil {
		logistics = []domain.Logistics{}
	}
	return dto.RMAResponse{
		ID:                      r.ID,
		RMANumber:               r.RMANumber,
		TicketID:                r.TicketID,
		AssetID:                 r.AssetID,
		Type:                    r.Type,
		Status:                  r.Status,
		Reason:                  r.Reason,
		OriginalDetailsSnapshot: r.OriginalDetailsSnapshot,
		RepairDestination:       r.RepairDestination,
		DestinationSiteID:       r.DestinationSiteID,
		ReplacementStatus:       r.ReplacementStatus,
		StockSource:             r.StockSource,
		SourceSiteID:            r.SourceSiteID,
		ReplacementAssetID:      r.ReplacementAssetID,
		ReplacementDetails:      r.ReplacementDetails,
		Logistics:               logistics,
		RejectionReason:         r.RejectionReason,
		RequestedBy:             r.RequestedBy,
		Active:                  r.IsActive(),
		CreatedAt:               r.CreatedAt,
		UpdatedAt:               r.UpdatedAt,
	}
}

func assetResponse(a *domain.Asset) dto.AssetResponse {
	return dto.AssetResponse{
		ID:             a.ID,
		AssetCode:      a.AssetCode,
		AssetType:      a.AssetType,
		DeviceType:     a.DeviceType,
		Make:           a.Make,
		Model:          a.Model,
		SerialNumber:   a.SerialNumber,
		SiteID:         a.SiteID,
		Status:         a.Status,
		Criticality:    a.Criticality,
		LocationName:   a.LocationName,
		IPAddress:      a.IPAddress,
		HasCredentials: len(a.SealedCredentials) > 0,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func siteResponse(s *domain.Site) dto.SiteResponse {
	return dto.SiteResponse{
		ID:           s.ID,
		Code:         s.Code,
		Name:         s.Name,
		Region:       s.Region,
		Address:      s.Address,
		IsHeadOffice: s.IsHeadOffice,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	siteIDs := u.SiteIDs
	if siteIDs == nil {
		siteIDs = []string{}
	}
	rights := u.SiteRights
	if rights == nil {
		rights = []domain.SiteRight{}
	}
	return dto.UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		EscalationTier: u.EscalationTier,
		SiteIDs:        siteIDs,
		SiteRights:     rights,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func registrationResponse(r *domain.ClientRegistration) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		ID:           r.ID,
		Organization: r.Organization,
		ContactName:  r.ContactName,
		Email:        r.Email,
		Status:       r.Status,
		ReviewedBy:   r.ReviewedBy,
		Reason:       r.Reason,
		UserID:       r.UserID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
