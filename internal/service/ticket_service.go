package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/observability"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/workflow"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	activities repository.ActivityRepository
	assets     repository.AssetRepository
	sites      repository.SiteRepository
	users      repository.UserRepository
	numbers    repository.NumberGenerator
	events     publisher
	sla        workflow.SLAPolicy
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	AssetRepo    repository.AssetRepository
	SiteRepo     repository.SiteRepository
	UserRepo     repository.UserRepository
	Numbers      repository.NumberGenerator
	Dispatcher   events.Dispatcher
	SLAPolicy    workflow.SLAPolicy
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// TicketCreateInput describes ticket creation payload. SiteID may be empty
// when AssetID is set; the asset's site is used.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    string
	SubCategory string
	Impact      int
	Urgency     int
	AssetID     *string
	SiteID      string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	SiteIDs     []string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssigneeID  *string
	AssetID     *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CommentInput is the payload of a ticket comment.
type CommentInput struct {
	Body        string
	IsInternal  bool
	Attachments []domain.AttachmentReference
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	policy := deps.SLAPolicy
	if len(policy.Targets) == 0 {
		policy = workflow.DefaultSLAPolicy()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		activities: deps.ActivityRepo,
		assets:     deps.AssetRepo,
		sites:      deps.SiteRepo,
		users:      deps.UserRepo,
		numbers:    deps.Numbers,
		events:     publisher{dispatcher: deps.Dispatcher},
		sla:        policy,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// SLAPolicy returns the policy deadlines are computed with.
func (s *TicketService) SLAPolicy() workflow.SLAPolicy {
	return s.sla
}

// CreateTicket opens a ticket, deriving priority and SLA deadlines.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleDispatcher, domain.RoleEngineer) {
		return nil, apperrors.NewForbidden("role cannot create tickets")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}

	criticality := workflow.DefaultCriticality
	siteID := strings.TrimSpace(input.SiteID)
	if input.AssetID != nil && *input.AssetID != "" {
		asset, err := s.assets.GetByID(ctx, *input.AssetID)
		if err != nil {
			return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": *input.AssetID})
		}
		if asset.Status == domain.AssetStatusDecommissioned {
			return nil, apperrors.NewValidationError("asset is decommissioned", map[string]any{"asset_id": asset.ID})
		}
		criticality = asset.Criticality
		if asset.SiteID != nil {
			if siteID == "" {
				siteID = *asset.SiteID
			} else if siteID != *asset.SiteID {
				return nil, apperrors.NewValidationError("asset is not installed at the given site", map[string]any{"asset_id": asset.ID, "site_id": siteID})
			}
		}
	} else {
		input.AssetID = nil
	}
	if siteID == "" {
		return nil, apperrors.NewValidationError("site_id is required", map[string]any{"field": "site_id"})
	}
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "site", map[string]any{"site_id": siteID})
	}
	if !site.IsActive {
		return nil, apperrors.NewValidationError("site is inactive", map[string]any{"site_id": siteID})
	}
	if err := workflow.ValidateRatings(input.Impact, input.Urgency, criticality); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	now := s.now()
	score := workflow.PriorityScore(input.Impact, input.Urgency, criticality)
	priority := workflow.PriorityForScore(score)
	responseDue, restoreDue := s.sla.Deadlines(priority, now)
	ticket := &domain.Ticket{
		Title:            title,
		Description:      strings.TrimSpace(input.Description),
		Category:         strings.TrimSpace(input.Category),
		SubCategory:      strings.TrimSpace(input.SubCategory),
		Status:           domain.TicketStatusOpen,
		Priority:         priority,
		Impact:           input.Impact,
		Urgency:          input.Urgency,
		AssetCriticality: criticality,
		PriorityScore:    score,
		AssetID:          input.AssetID,
		SiteID:           siteID,
		SLAResponseDue:   responseDue,
		SLARestoreDue:    restoreDue,
		CreatedBy:        actor.ID,
		CreatedOn:        now,
		UpdatedAt:        now,
	}
	err = createNumbered(ctx, s.numbers, repository.TicketNumberPrefix, now, func(number string) error {
		ticket.ID = newID()
		ticket.TicketNumber = number
		return s.tickets.Create(ctx, ticket)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	open := domain.TicketStatusOpen
	if err := s.appendActivity(ctx, &domain.Activity{
		TicketID:     ticket.ID,
		UserID:       actor.ID,
		ActivityType: domain.ActivityTypeStatusChange,
		Content:      "ticket created",
		NewStatus:    &open,
	}); err != nil {
		return nil, err
	}

	event := events.New(events.EventTicketCreated, events.AggregateTicket, ticket.ID, actor.ID, now, events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		SiteID:       ticket.SiteID,
		AssetID:      ticket.AssetID,
		Priority:     ticket.Priority,
		Title:        ticket.Title,
	})
	event.TicketID = ticket.ID
	_ = s.events.publish(ctx, event)

	s.sla.Apply(ticket, now)
	return ticket, nil
}

// GetTicket fetches a ticket the actor may see, with SLA flags evaluated.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket is outside your sites")
	}
	s.sla.Apply(ticket, s.now())
	return ticket, nil
}

// ListTickets returns tickets visible to actor.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		SiteIDs:     filter.SiteIDs,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		AssigneeID:  filter.AssigneeID,
		AssetID:     filter.AssetID,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if !applySiteScope(&repoFilter, actor) {
		return []domain.Ticket{}, nil
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	for i := range tickets {
		s.sla.Apply(&tickets[i], now)
	}
	return tickets, nil
}

// AvailableActions lists what actor may do to the ticket right now.
func (s *TicketService) AvailableActions(ctx context.Context, actor *domain.User, ticketID string) ([]workflow.Action, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return workflow.AvailableActions(actor, ticket), nil
}

// Perform runs one transition. Checks run in a fixed order: payload, load,
// status, permission, guarded write; nothing is written when any fails.
func (s *TicketService) Perform(ctx context.Context, actor *domain.User, ticketID string, action workflow.Action, payload workflow.Payload) (*domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := workflow.ValidatePayload(action, payload); err != nil {
		return nil, workflowError(err, nil)
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	next, err := workflow.Next(ticket, action)
	if err != nil {
		return nil, workflowError(err, map[string]any{"status": oldStatus, "action": action})
	}
	if !workflow.CanPerform(actor, action, ticket) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("not permitted to %s this ticket", strings.ToLower(string(action))))
	}

	now := s.now()
	previousAssignee := ticket.AssignedTo
	if err := s.applyAction(ctx, actor, ticket, action, payload, now); err != nil {
		return nil, err
	}
	ticket.Status = next
	ticket.UpdatedAt = now
	if err := s.tickets.UpdateWithStatus(ctx, ticket, oldStatus); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendActivity(ctx, &domain.Activity{
		TicketID:     ticket.ID,
		UserID:       actor.ID,
		ActivityType: activityTypeFor(action),
		Content:      transitionNote(action, payload),
		OldStatus:    &oldStatus,
		NewStatus:    &next,
	}); err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(string(action), string(next))
	s.logger.Debug("ticket transition",
		zap.String("ticket_id", ticket.ID),
		zap.String("action", string(action)),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(next)),
		zap.String("actor_id", actor.ID))
	s.publishTransition(ctx, actor, ticket, action, payload, oldStatus, previousAssignee, now)

	s.sla.Apply(ticket, now)
	return ticket, nil
}

func (s *TicketService) applyAction(ctx context.Context, actor *domain.User, t *domain.Ticket, action workflow.Action, p workflow.Payload, now time.Time) error {
	switch action {
	case workflow.ActionAssign:
		assignee, err := s.loadAssignee(ctx, p.AssigneeID)
		if err != nil {
			return err
		}
		t.AssignedTo = ptrTo(assignee.ID)
	case workflow.ActionAcknowledge:
		if t.RespondedAt == nil {
			t.RespondedAt = ptrTo(now)
		}
	case workflow.ActionResolve:
		t.RootCause = strings.TrimSpace(p.RootCause)
		t.ResolutionSummary = strings.TrimSpace(p.ResolutionSummary)
		t.RejectionReason = ""
		t.ResolvedAt = ptrTo(now)
	case workflow.ActionClose, workflow.ActionCancel:
		t.ClosedAt = ptrTo(now)
	case workflow.ActionRejectResolution:
		// The restore clock runs again until the next resolution.
		t.RejectionReason = strings.TrimSpace(p.Reason)
		t.ResolvedAt = nil
	case workflow.ActionEscalate:
		if t.Status == domain.TicketStatusResolved || t.Status == domain.TicketStatusVerified {
			// The restore clock runs again until the next resolution.
			t.ResolvedAt = nil
			t.RootCause = ""
			t.ResolutionSummary = ""
		}
		t.EscalationLevel++
		t.EscalationAcceptedBy = nil
		t.EscalationReason = strings.TrimSpace(p.Reason)
	case workflow.ActionAcceptEscalation:
		t.AssignedTo = ptrTo(actor.ID)
		t.EscalationAcceptedBy = ptrTo(actor.ID)
		if t.RespondedAt == nil {
			t.RespondedAt = ptrTo(now)
		}
	case workflow.ActionDelegateEscalation:
		assignee, err := s.loadAssignee(ctx, p.AssigneeID)
		if err != nil {
			return err
		}
		if !workflow.QualifiedForEscalation(assignee, t.EscalationLevel) {
			return apperrors.NewValidationError("assignee is not qualified for this escalation level", map[string]any{
				"assignee_id":      assignee.ID,
				"escalation_level": t.EscalationLevel,
			})
		}
		t.AssignedTo = ptrTo(assignee.ID)
		t.EscalationAcceptedBy = ptrTo(assignee.ID)
		if t.RespondedAt == nil {
			t.RespondedAt = ptrTo(now)
		}
	case workflow.ActionReopen:
		t.AssignedTo = nil
		t.EscalationAcceptedBy = nil
		t.ResolutionSummary = ""
		t.RootCause = ""
		t.RejectionReason = ""
		t.RespondedAt = nil
		t.ResolvedAt = nil
		t.ClosedAt = nil
		t.SLAResponseDue, t.SLARestoreDue = s.sla.Deadlines(t.Priority, now)
	}
	return nil
}

func (s *TicketService) loadAssignee(ctx context.Context, id string) (*domain.User, error) {
	assignee, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError("assignee does not exist", map[string]any{"assignee_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active || assignee.Role == domain.RoleViewer {
		return nil, apperrors.NewValidationError("assignee must be an active staff user", map[string]any{"assignee_id": id})
	}
	return assignee, nil
}

func (s *TicketService) publishTransition(ctx context.Context, actor *domain.User, t *domain.Ticket, action workflow.Action, p workflow.Payload, oldStatus domain.TicketStatus, previousAssignee *string, now time.Time) {
	changed := events.New(events.EventTicketStatusChanged, events.AggregateTicket, t.ID, actor.ID, now, events.TicketStatusChangedPayload{
		Action:    string(action),
		OldStatus: oldStatus,
		NewStatus: t.Status,
		Reason:    strings.TrimSpace(p.Reason),
	})
	changed.TicketID = t.ID
	_ = s.events.publish(ctx, changed)

	switch action {
	case workflow.ActionAssign, workflow.ActionAcceptEscalation, workflow.ActionDelegateEscalation:
		assigned := events.New(events.EventTicketAssigned, events.AggregateTicket, t.ID, actor.ID, now, events.TicketAssignedPayload{
			PreviousAssignee: previousAssignee,
			AssigneeID:       *t.AssignedTo,
		})
		assigned.TicketID = t.ID
		_ = s.events.publish(ctx, assigned)
	case workflow.ActionEscalate:
		escalated := events.New(events.EventTicketEscalated, events.AggregateTicket, t.ID, actor.ID, now, events.TicketEscalatedPayload{
			Level:  t.EscalationLevel,
			Reason: t.EscalationReason,
		})
		escalated.TicketID = t.ID
		_ = s.events.publish(ctx, escalated)
	}
}

// AddComment appends a comment activity.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID string, input CommentInput) (*domain.Activity, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Body)
	if body == "" && len(input.Attachments) == 0 {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanPerform(actor, workflow.ActionComment, ticket) {
		return nil, apperrors.NewForbidden("not permitted to comment on this ticket")
	}
	activity := &domain.Activity{
		TicketID:     ticket.ID,
		UserID:       actor.ID,
		ActivityType: domain.ActivityTypeComment,
		Content:      body,
		IsInternal:   input.IsInternal,
		Attachments:  input.Attachments,
	}
	if body == "" {
		activity.ActivityType = domain.ActivityTypeAttachment
	}
	if err := s.appendActivity(ctx, activity); err != nil {
		return nil, err
	}
	event := events.New(events.EventTicketCommented, events.AggregateTicket, ticket.ID, actor.ID, activity.CreatedAt, events.TicketCommentedPayload{
		ActivityID:  activity.ID,
		IsInternal:  activity.IsInternal,
		BodyPreview: stringPreview(body, 120),
	})
	event.TicketID = ticket.ID
	_ = s.events.publish(ctx, event)
	return activity, nil
}

// ListActivities returns the ticket's log. Viewers never see internal entries.
func (s *TicketService) ListActivities(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Activity, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.ListByTicket(ctx, ticket.ID, actor.Role != domain.RoleViewer)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return activities, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) appendActivity(ctx context.Context, activity *domain.Activity) error {
	activity.ID = newID()
	activity.CreatedAt = s.now()
	if err := s.activities.Create(ctx, activity); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func activityTypeFor(action workflow.Action) domain.ActivityType {
	switch action {
	case workflow.ActionAssign:
		return domain.ActivityTypeAssignment
	case workflow.ActionEscalate, workflow.ActionAcceptEscalation, workflow.ActionDelegateEscalation:
		return domain.ActivityTypeEscalation
	case workflow.ActionResolve:
		return domain.ActivityTypeResolution
	}
	return domain.ActivityTypeStatusChange
}

func transitionNote(action workflow.Action, p workflow.Payload) string {
	note := strings.ReplaceAll(strings.ToLower(string(action)), "_", " ")
	switch {
	case action == workflow.ActionResolve:
		return fmt.Sprintf("%s: %s (root cause: %s)", note, strings.TrimSpace(p.ResolutionSummary), strings.TrimSpace(p.RootCause))
	case strings.TrimSpace(p.Reason) != "":
		return note + ": " + strings.TrimSpace(p.Reason)
	case strings.TrimSpace(p.AssigneeID) != "":
		return note + " to " + strings.TrimSpace(p.AssigneeID)
	}
	return note
}

// canViewTicket scopes non-admin users with home sites to those sites,
// sites they hold grants on, and tickets assigned to them.
func canViewTicket(actor *domain.User, t *domain.Ticket) bool {
	if actor.Role == domain.RoleAdmin || len(actor.SiteIDs) == 0 || t.IsAssignee(actor.ID) {
		return true
	}
	for _, site := range visibleSites(actor) {
		if site == t.SiteID {
			return true
		}
	}
	return false
}

func visibleSites(actor *domain.User) []string {
	out := append([]string{}, actor.SiteIDs...)
	for _, right := range actor.SiteRights {
		out = append(out, right.SiteID)
	}
	return out
}

// applySiteScope narrows filter to the actor's sites. It returns false when
// the requested sites and the visible sites do not overlap.
func applySiteScope(filter *repository.TicketFilter, actor *domain.User) bool {
	if actor.Role == domain.RoleAdmin || len(actor.SiteIDs) == 0 {
		return true
	}
	visible := visibleSites(actor)
	if len(filter.SiteIDs) == 0 {
		filter.SiteIDs = visible
		return true
	}
	allowed := make(map[string]struct{}, len(visible))
	for _, site := range visible {
		allowed[site] = struct{}{}
	}
	scoped := filter.SiteIDs[:0:0]
	for _, site := range filter.SiteIDs {
		if _, ok := allowed[site]; ok {
			scoped = append(scoped, site)
		}
	}
	filter.SiteIDs = scoped
	return len(scoped) > 0
}
