package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/observability"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/workflow"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

const rmaRequestStep = "REQUEST"

// RMAService runs the repair and replacement tracks of an RMA. RMA, asset
// and ticket writes are sequential; re-running a step that already reached
// its target re-applies the asset side effect only.
type RMAService struct {
	rmas       repository.RMARepository
	tickets    repository.TicketRepository
	assets     repository.AssetRepository
	sites      repository.SiteRepository
	activities repository.ActivityRepository
	numbers    repository.NumberGenerator
	events     publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// RMADependencies bundles collaborators for the RMA service.
type RMADependencies struct {
	RMARepo      repository.RMARepository
	TicketRepo   repository.TicketRepository
	AssetRepo    repository.AssetRepository
	SiteRepo     repository.SiteRepository
	ActivityRepo repository.ActivityRepository
	Numbers      repository.NumberGenerator
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// RMARequestInput opens an RMA.
type RMARequestInput struct {
	Type   domain.RMAType
	Reason string
}

// LogisticsInput is the carrier and tracking number of a shipment.
type LogisticsInput struct {
	Carrier        string
	TrackingNumber string
}

// RMAStepInput carries the optional payload of any RMA step; each step reads
// only the fields it needs.
type RMAStepInput struct {
	Logistics           *LogisticsInput
	Reason              string
	ShipToServiceCenter bool
	Destination         domain.RepairDestination
	DestinationSiteID   *string
	StockSource         domain.StockSource
	SourceSiteID        *string
	ReplacementAssetID  *string
	ReplacementDetails  *domain.ReplacementDetails
}

// NewRMAService constructs the service.
func NewRMAService(deps RMADependencies) *RMAService {
	return &RMAService{
		rmas:       deps.RMARepo,
		tickets:    deps.TicketRepo,
		assets:     deps.AssetRepo,
		sites:      deps.SiteRepo,
		activities: deps.ActivityRepo,
		numbers:    deps.Numbers,
		events:     publisher{dispatcher: deps.Dispatcher},
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// RequestRMA opens an RMA on the ticket's asset and marks the asset faulty.
func (s *RMAService) RequestRMA(ctx context.Context, actor *domain.User, ticketID string, input RMARequestInput) (*domain.RMA, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if input.Type != domain.RMATypeRepairOnly && input.Type != domain.RMATypeRepairAndReplace {
		return nil, apperrors.NewValidationError("type must be REPAIR_ONLY or REPAIR_AND_REPLACE", map[string]any{"field": "type"})
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("rma request requires reason", map[string]any{"fields": []string{"reason"}})
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssetID == nil {
		return nil, apperrors.NewValidationError("ticket has no asset to return", map[string]any{"ticket_id": ticket.ID})
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewStateConflict("ticket is no longer open", map[string]any{"status": ticket.Status})
	}
	if !workflow.CanRequestRMA(actor, ticket) {
		return nil, apperrors.NewForbidden("not permitted to request an rma for this ticket")
	}

	existing, err := s.rmas.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, candidate := range existing {
		if candidate.IsActive() {
			return nil, apperrors.NewConflict("ticket already has an active rma", map[string]any{
				"rma_id":     candidate.ID,
				"rma_number": candidate.RMANumber,
			})
		}
	}

	asset, err := s.assets.GetByID(ctx, *ticket.AssetID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": *ticket.AssetID})
	}

	now := s.now()
	rma := &domain.RMA{
		TicketID:                ticket.ID,
		AssetID:                 asset.ID,
		Type:                    input.Type,
		Status:                  domain.RMAStatusRequested,
		Reason:                  reason,
		OriginalDetailsSnapshot: asset.Snapshot(),
		RequestedBy:             actor.ID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	err = createNumbered(ctx, s.numbers, repository.RMANumberPrefix, now, func(number string) error {
		rma.ID = newID()
		rma.RMANumber = number
		return s.rmas.Create(ctx, rma)
	})
	if errors.Is(err, repository.ErrActiveRMA) {
		return nil, apperrors.NewConflict("ticket already has an active rma", map[string]any{"ticket_id": ticket.ID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.setAssetStatus(ctx, actor, ticket.ID, asset.ID, domain.AssetStatusFaulty, false, nil); err != nil {
		return nil, err
	}
	if err := s.recordStep(ctx, actor, rma, rmaRequestStep, fmt.Sprintf("%s requested (%s): %s", rma.RMANumber, rma.Type, reason)); err != nil {
		return nil, err
	}
	return rma, nil
}

// Advance runs one RMA step.
func (s *RMAService) Advance(ctx context.Context, actor *domain.User, rmaID string, step workflow.RMAStep, input RMAStepInput) (*domain.RMA, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	rule, ok := workflow.RMARuleFor(step)
	if !ok {
		return nil, workflowError(workflow.ErrUnknownAction, map[string]any{"step": step})
	}
	if err := validateStepInput(step, rule, input); err != nil {
		return nil, err
	}

	rma, err := s.load(ctx, rmaID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, rma.TicketID)
	if err != nil {
		return nil, err
	}

	current := workflow.TrackStatus(rma, rule.Track)
	target := stepTarget(step, rule, input)
	replay := current == target && !rule.Allows(current)
	if !replay {
		if err := workflow.CheckRMAStep(rma, step); err != nil {
			return nil, workflowError(err, map[string]any{"status": current, "step": step})
		}
	}
	if !workflow.CanPerformRMAStep(actor, step, ticket) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("not permitted to run %s on this rma", strings.ToLower(string(step))))
	}

	if replay {
		s.logger.Info("rma step replayed",
			zap.String("rma_id", rma.ID),
			zap.String("step", string(step)),
			zap.String("status", string(current)))
		if err := s.applySideEffect(ctx, actor, rma, ticket, step); err != nil {
			return nil, err
		}
		return rma, nil
	}

	now := s.now()
	expected, expectedReplacement := rma.Status, rma.ReplacementStatus
	if err := s.applyStep(ctx, rma, ticket, step, target, input); err != nil {
		return nil, err
	}
	if rule.Logistics && input.Logistics != nil {
		rma.Logistics = append(rma.Logistics, domain.Logistics{
			Step:           string(step),
			Carrier:        strings.TrimSpace(input.Logistics.Carrier),
			TrackingNumber: strings.TrimSpace(input.Logistics.TrackingNumber),
			RecordedBy:     actor.ID,
			RecordedAt:     now,
		})
	}
	rma.UpdatedAt = now
	if err := s.rmas.UpdateWithStatus(ctx, rma, expected, expectedReplacement); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.applySideEffect(ctx, actor, rma, ticket, step); err != nil {
		return nil, err
	}
	if err := s.recordStep(ctx, actor, rma, string(step), stepNote(rma, step, target, input)); err != nil {
		return nil, err
	}
	return rma, nil
}

// GetRMA returns an RMA whose ticket actor may see.
func (s *RMAService) GetRMA(ctx context.Context, actor *domain.User, rmaID string) (*domain.RMA, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	rma, err := s.load(ctx, rmaID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, rma.TicketID)
	if err != nil {
		return nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("rma is outside your sites")
	}
	return rma, nil
}

// ListForTicket returns the ticket's RMAs, newest first.
func (s *RMAService) ListForTicket(ctx context.Context, actor *domain.User, ticketID string) ([]domain.RMA, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canViewTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket is outside your sites")
	}
	rmas, err := s.rmas.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rmas, nil
}

func validateStepInput(step workflow.RMAStep, rule workflow.RMAStepRule, input RMAStepInput) error {
	needsLogistics := rule.Logistics
	switch step {
	case workflow.RMAStepReject:
		if strings.TrimSpace(input.Reason) == "" {
			return apperrors.NewValidationError("reject requires reason", map[string]any{"fields": []string{"reason"}})
		}
	case workflow.RMAStepSelectDestination:
		switch input.Destination {
		case domain.RepairDestinationHOStock:
			needsLogistics = false
		case domain.RepairDestinationBackToSite:
		case domain.RepairDestinationOtherSite:
			if input.DestinationSiteID == nil || strings.TrimSpace(*input.DestinationSiteID) == "" {
				return apperrors.NewValidationError("OTHER_SITE requires destination_site_id", map[string]any{"fields": []string{"destination_site_id"}})
			}
		default:
			return apperrors.NewValidationError("destination must be BACK_TO_SITE, HO_STOCK or OTHER_SITE", map[string]any{"field": "destination"})
		}
	case workflow.RMAStepRaiseRequisition:
		switch input.StockSource {
		case domain.StockSourceHOStock, domain.StockSourceMarketPurchase:
		case domain.StockSourceSiteTransfer:
			if input.SourceSiteID == nil || strings.TrimSpace(*input.SourceSiteID) == "" {
				return apperrors.NewValidationError("SITE_TRANSFER requires source_site_id", map[string]any{"fields": []string{"source_site_id"}})
			}
		default:
			return apperrors.NewValidationError("stock_source must be HO_STOCK, SITE_TRANSFER or MARKET_PURCHASE", map[string]any{"field": "stock_source"})
		}
	}
	if needsLogistics {
		if input.Logistics == nil ||
			strings.TrimSpace(input.Logistics.Carrier) == "" ||
			strings.TrimSpace(input.Logistics.TrackingNumber) == "" {
			return apperrors.NewValidationError(
				fmt.Sprintf("%s requires carrier and tracking_number", strings.ToLower(string(step))),
				map[string]any{"fields": []string{"carrier", "tracking_number"}})
		}
	}
	return nil
}

// stepTarget resolves the status a step leads to for this input.
func stepTarget(step workflow.RMAStep, rule workflow.RMAStepRule, input RMAStepInput) domain.RMAStatus {
	switch step {
	case workflow.RMAStepShip:
		if input.ShipToServiceCenter {
			return domain.RMAStatusSentToServiceCenter
		}
		return domain.RMAStatusSentToHO
	case workflow.RMAStepSelectDestination:
		if input.Destination == domain.RepairDestinationHOStock {
			return domain.RMAStatusMovedToHOStock
		}
		return domain.RMAStatusReturnShippedToSite
	}
	return rule.Targets[0]
}

func (s *RMAService) applyStep(ctx context.Context, rma *domain.RMA, ticket *domain.Ticket, step workflow.RMAStep, target domain.RMAStatus, input RMAStepInput) error {
	switch step {
	case workflow.RMAStepReject:
		rma.RejectionReason = strings.TrimSpace(input.Reason)
	case workflow.RMAStepSelectDestination:
		destination := input.Destination
		rma.RepairDestination = &destination
		switch destination {
		case domain.RepairDestinationOtherSite:
			siteID := strings.TrimSpace(*input.DestinationSiteID)
			if err := s.requireActiveSite(ctx, siteID, "destination_site_id"); err != nil {
				return err
			}
			rma.DestinationSiteID = &siteID
		case domain.RepairDestinationBackToSite:
			rma.DestinationSiteID = ptrTo(ticket.SiteID)
		default:
			rma.DestinationSiteID = nil
		}
	case workflow.RMAStepRaiseRequisition:
		source := input.StockSource
		rma.StockSource = &source
		rma.SourceSiteID = nil
		if source == domain.StockSourceSiteTransfer {
			siteID := strings.TrimSpace(*input.SourceSiteID)
			if err := s.requireActiveSite(ctx, siteID, "source_site_id"); err != nil {
				return err
			}
			rma.SourceSiteID = &siteID
		}
		if input.ReplacementAssetID != nil && *input.ReplacementAssetID != "" {
			spare, err := s.assets.GetByID(ctx, *input.ReplacementAssetID)
			if err != nil {
				return apperrors.NotFoundOr(err, "replacement asset", map[string]any{"asset_id": *input.ReplacementAssetID})
			}
			if spare.Status != domain.AssetStatusSpare || spare.ID == rma.AssetID {
				return apperrors.NewValidationError("replacement asset must be a spare unit", map[string]any{"asset_id": spare.ID, "status": spare.Status})
			}
			if err := spareAtSource(spare, source, rma.SourceSiteID); err != nil {
				return err
			}
			rma.ReplacementAssetID = ptrTo(spare.ID)
		}
		rma.ReplacementDetails = input.ReplacementDetails
	}

	if rule, _ := workflow.RMARuleFor(step); rule.Track == workflow.TrackReplacement {
		rma.ReplacementStatus = ptrTo(target)
	} else {
		rma.Status = target
	}
	s.metrics.RecordRMAStep(string(step))
	return nil
}

// applySideEffect brings asset state in line with the step. It reads only
// the persisted RMA so a replay produces the same writes.
func (s *RMAService) applySideEffect(ctx context.Context, actor *domain.User, rma *domain.RMA, ticket *domain.Ticket, step workflow.RMAStep) error {
	switch step {
	case workflow.RMAStepShip:
		return s.setAssetStatus(ctx, actor, ticket.ID, rma.AssetID, domain.AssetStatusInRepair, false, nil)
	case workflow.RMAStepSelectDestination:
		if rma.Status == domain.RMAStatusMovedToHOStock {
			return s.setAssetStatus(ctx, actor, ticket.ID, rma.AssetID, domain.AssetStatusSpare, true, nil)
		}
	case workflow.RMAStepInstall:
		siteID := ticket.SiteID
		if rma.DestinationSiteID != nil {
			siteID = *rma.DestinationSiteID
		}
		return s.setAssetStatus(ctx, actor, ticket.ID, rma.AssetID, domain.AssetStatusOperational, true, &siteID)
	case workflow.RMAStepInstallReplacement:
		if rma.ReplacementAssetID != nil {
			return s.setAssetStatus(ctx, actor, ticket.ID, *rma.ReplacementAssetID, domain.AssetStatusOperational, true, ptrTo(ticket.SiteID))
		}
	}
	return nil
}

// setAssetStatus writes status (and the site when moveSite is set) if they
// differ from what is stored.
func (s *RMAService) setAssetStatus(ctx context.Context, actor *domain.User, ticketID, assetID string, status domain.AssetStatus, moveSite bool, siteID *string) error {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": assetID})
	}
	sameSite := !moveSite || equalSite(asset.SiteID, siteID)
	if asset.Status == status && sameSite {
		return nil
	}
	oldStatus := asset.Status
	asset.Status = status
	if moveSite {
		asset.SiteID = siteID
	}
	asset.UpdatedAt = s.now()
	if err := s.assets.Update(ctx, asset); err != nil {
		return apperrors.MapError(err)
	}
	event := events.New(events.EventAssetStatusChanged, events.AggregateAsset, asset.ID, actor.ID, asset.UpdatedAt, events.AssetStatusChangedPayload{
		AssetCode: asset.AssetCode,
		OldStatus: oldStatus,
		NewStatus: status,
		SiteID:    asset.SiteID,
	})
	event.TicketID = ticketID
	_ = s.events.publish(ctx, event)
	return nil
}

func (s *RMAService) recordStep(ctx context.Context, actor *domain.User, rma *domain.RMA, step, note string) error {
	activity := &domain.Activity{
		ID:           newID(),
		TicketID:     rma.TicketID,
		UserID:       actor.ID,
		ActivityType: domain.ActivityTypeRMAUpdate,
		Content:      note,
		CreatedAt:    s.now(),
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		return apperrors.MapError(err)
	}
	event := events.New(events.EventRMAUpdated, events.AggregateRMA, rma.ID, actor.ID, activity.CreatedAt, events.RMAUpdatedPayload{
		RMANumber:         rma.RMANumber,
		Step:              step,
		Status:            rma.Status,
		ReplacementStatus: rma.ReplacementStatus,
	})
	event.TicketID = rma.TicketID
	_ = s.events.publish(ctx, event)
	return nil
}

func (s *RMAService) requireActiveSite(ctx context.Context, siteID, field string) error {
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError(field+" does not exist", map[string]any{"field": field, "site_id": siteID})
		}
		return apperrors.MapError(err)
	}
	if !site.IsActive {
		return apperrors.NewValidationError(field+" is inactive", map[string]any{"field": field, "site_id": siteID})
	}
	return nil
}

func (s *RMAService) load(ctx context.Context, rmaID string) (*domain.RMA, error) {
	rma, err := s.rmas.GetByID(ctx, rmaID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "rma", map[string]any{"rma_id": rmaID})
	}
	return rma, nil
}

func (s *RMAService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func stepNote(rma *domain.RMA, step workflow.RMAStep, target domain.RMAStatus, input RMAStepInput) string {
	note := fmt.Sprintf("%s %s: %s", rma.RMANumber, strings.ReplaceAll(strings.ToLower(string(step)), "_", " "), target)
	if input.Logistics != nil && input.Logistics.TrackingNumber != "" {
		note += fmt.Sprintf(" (%s %s)", strings.TrimSpace(input.Logistics.Carrier), strings.TrimSpace(input.Logistics.TrackingNumber))
	}
	if step == workflow.RMAStepReject {
		note += ": " + rma.RejectionReason
	}
	return note
}

// spareAtSource checks the spare sits where the requisition draws stock from:
// head-office stock holds no site, a site transfer comes from the source site.
func spareAtSource(spare *domain.Asset, source domain.StockSource, sourceSiteID *string) error {
	switch source {
	case domain.StockSourceHOStock:
		if spare.SiteID != nil {
			return apperrors.NewValidationError("replacement asset is not in head-office stock", map[string]any{"asset_id": spare.ID, "site_id": *spare.SiteID})
		}
	case domain.StockSourceSiteTransfer:
		if !equalSite(spare.SiteID, sourceSiteID) {
			return apperrors.NewValidationError("replacement asset is not at the source site", map[string]any{"asset_id": spare.ID, "source_site_id": *sourceSiteID})
		}
	}
	return nil
}

func equalSite(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
