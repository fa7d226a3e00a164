package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/repository/memory"
	"github.com/fieldops/maintenance-desk/internal/workflow"
)

var shipment = &LogisticsInput{Carrier: "BlueDart", TrackingNumber: "BD123"}

func (f *fixture) requestRMA(ticketID string, rmaType domain.RMAType) *domain.RMA {
	f.t.Helper()
	rma, err := f.rmaSvc.RequestRMA(f.ctx, f.engineer, ticketID, RMARequestInput{Type: rmaType, Reason: "sensor dead"})
	require.NoError(f.t, err)
	return rma
}

func (f *fixture) step(actor *domain.User, rmaID string, step workflow.RMAStep, input RMAStepInput) *domain.RMA {
	f.t.Helper()
	rma, err := f.rmaSvc.Advance(f.ctx, actor, rmaID, step, input)
	require.NoError(f.t, err, "step %s", step)
	return rma
}

func TestRequestRMAMarksAssetFaulty(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()

	_, err := f.rmaSvc.RequestRMA(f.ctx, f.engineer, ticket.ID, RMARequestInput{Type: domain.RMATypeRepairOnly})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))
	_, err = f.rmaSvc.RequestRMA(f.ctx, f.viewer, ticket.ID, RMARequestInput{Type: domain.RMATypeRepairOnly, Reason: "x"})
	assert.Equal(t, "FORBIDDEN", codeOf(err))

	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)
	assert.Equal(t, domain.RMAStatusRequested, rma.Status)
	assert.Equal(t, "RMA-20260301-0001", rma.RMANumber)
	assert.Equal(t, "CAM-001", rma.OriginalDetailsSnapshot.AssetCode)
	assert.Equal(t, domain.AssetStatusFaulty, f.storedAsset("asset-1").Status)

	_, err = f.rmaSvc.RequestRMA(f.ctx, f.supervisor, ticket.ID, RMARequestInput{Type: domain.RMATypeRepairOnly, Reason: "again"})
	assert.Equal(t, "CONFLICT", codeOf(err))

	list, err := f.rmaSvc.ListForTicket(f.ctx, f.engineer, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRequestRMANeedsAsset(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.ticketSvc.CreateTicket(f.ctx, f.dispatcherUser, TicketCreateInput{Title: "Gate", SiteID: "site-2", Impact: 2, Urgency: 2})
	require.NoError(t, err)

	_, err = f.rmaSvc.RequestRMA(f.ctx, f.admin, ticket.ID, RMARequestInput{Type: domain.RMATypeRepairOnly, Reason: "x"})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))
}

func TestRepairToHeadOfficeStock(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)

	_, err := f.rmaSvc.Advance(f.ctx, f.engineer, rma.ID, workflow.RMAStepApprove, RMAStepInput{})
	assert.Equal(t, "FORBIDDEN", codeOf(err), "approval is an admin step")
	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment})
	assert.Equal(t, "STATE_CONFLICT", codeOf(err))

	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})
	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err), "shipping needs logistics")

	shipped := f.step(f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment})
	assert.Equal(t, domain.RMAStatusSentToHO, shipped.Status)
	assert.Equal(t, domain.AssetStatusInRepair, f.storedAsset("asset-1").Status)
	require.Len(t, shipped.Logistics, 1)
	assert.Equal(t, "BD123", shipped.Logistics[0].TrackingNumber)

	f.step(f.admin, rma.ID, workflow.RMAStepReceiveAtHO, RMAStepInput{})
	f.step(f.admin, rma.ID, workflow.RMAStepForwardToService, RMAStepInput{Logistics: shipment})
	f.step(f.admin, rma.ID, workflow.RMAStepMarkRepaired, RMAStepInput{})

	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepSelectDestination, RMAStepInput{Destination: domain.RepairDestinationOtherSite})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	stocked := f.step(f.admin, rma.ID, workflow.RMAStepSelectDestination, RMAStepInput{Destination: domain.RepairDestinationHOStock})
	assert.Equal(t, domain.RMAStatusMovedToHOStock, stocked.Status)
	assert.False(t, stocked.IsActive())
	asset := f.storedAsset("asset-1")
	assert.Equal(t, domain.AssetStatusSpare, asset.Status)
	assert.Nil(t, asset.SiteID)

	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepReceiveAtSite, RMAStepInput{})
	assert.Equal(t, "STATE_CONFLICT", codeOf(err))
}

func TestRepairBackToSite(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)

	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})
	direct := f.step(f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment, ShipToServiceCenter: true})
	assert.Equal(t, domain.RMAStatusSentToServiceCenter, direct.Status)
	f.step(f.admin, rma.ID, workflow.RMAStepMarkRepaired, RMAStepInput{})

	_, err := f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepSelectDestination, RMAStepInput{Destination: domain.RepairDestinationBackToSite})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err), "return shipment needs logistics")

	returning := f.step(f.admin, rma.ID, workflow.RMAStepSelectDestination, RMAStepInput{Destination: domain.RepairDestinationBackToSite, Logistics: shipment})
	assert.Equal(t, domain.RMAStatusReturnShippedToSite, returning.Status)
	require.NotNil(t, returning.DestinationSiteID)
	assert.Equal(t, "site-1", *returning.DestinationSiteID)

	_, err = f.rmaSvc.Advance(f.ctx, f.otherEngineer, rma.ID, workflow.RMAStepReceiveAtSite, RMAStepInput{})
	assert.Equal(t, "FORBIDDEN", codeOf(err), "only the assignee works on site")
	f.step(f.engineer, rma.ID, workflow.RMAStepReceiveAtSite, RMAStepInput{})
	installed := f.step(f.engineer, rma.ID, workflow.RMAStepInstall, RMAStepInput{})

	assert.Equal(t, domain.RMAStatusInstalled, installed.Status)
	asset := f.storedAsset("asset-1")
	assert.Equal(t, domain.AssetStatusOperational, asset.Status)
	require.NotNil(t, asset.SiteID)
	assert.Equal(t, "site-1", *asset.SiteID)
}

func TestRepairToOtherSiteMovesAsset(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)
	other := "site-2"

	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})
	f.step(f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment, ShipToServiceCenter: true})
	f.step(f.admin, rma.ID, workflow.RMAStepMarkRepaired, RMAStepInput{})
	f.step(f.admin, rma.ID, workflow.RMAStepSelectDestination, RMAStepInput{Destination: domain.RepairDestinationOtherSite, DestinationSiteID: &other, Logistics: shipment})
	f.step(f.admin, rma.ID, workflow.RMAStepReceiveAtSite, RMAStepInput{})
	f.step(f.admin, rma.ID, workflow.RMAStepInstall, RMAStepInput{})

	asset := f.storedAsset("asset-1")
	require.NotNil(t, asset.SiteID)
	assert.Equal(t, "site-2", *asset.SiteID)
}

func TestReplacementTrack(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairAndReplace)
	spare := "spare-1"
	requisition := RMAStepInput{StockSource: domain.StockSourceHOStock, ReplacementAssetID: &spare}

	_, err := f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepRaiseRequisition, requisition)
	assert.Equal(t, "STATE_CONFLICT", codeOf(err), "replacement waits for approval")

	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})

	notSpare := "asset-1"
	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepRaiseRequisition, RMAStepInput{StockSource: domain.StockSourceHOStock, ReplacementAssetID: &notSpare})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	raised := f.step(f.admin, rma.ID, workflow.RMAStepRaiseRequisition, requisition)
	require.NotNil(t, raised.ReplacementStatus)
	assert.Equal(t, domain.RMAStatusRequisitionRaised, *raised.ReplacementStatus)
	assert.Equal(t, domain.RMAStatusApproved, raised.Status, "repair track is untouched")

	f.step(f.admin, rma.ID, workflow.RMAStepDispatchReplacement, RMAStepInput{Logistics: shipment})
	f.step(f.engineer, rma.ID, workflow.RMAStepReceiveReplacement, RMAStepInput{})
	done := f.step(f.engineer, rma.ID, workflow.RMAStepInstallReplacement, RMAStepInput{})

	assert.Equal(t, domain.RMAStatusInstalled, *done.ReplacementStatus)
	assert.True(t, done.IsActive(), "repair track still open")
	replacement := f.storedAsset("spare-1")
	assert.Equal(t, domain.AssetStatusOperational, replacement.Status)
	require.NotNil(t, replacement.SiteID)
	assert.Equal(t, "site-1", *replacement.SiteID)
}

func TestReplacementNeedsReplaceType(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)
	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})

	_, err := f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepRaiseRequisition, RMAStepInput{StockSource: domain.StockSourceMarketPurchase})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))
}

func TestReplayedStepRestoresAssetOnly(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)
	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})
	f.step(f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment})

	// Simulate the asset write being lost after the RMA update.
	asset := f.storedAsset("asset-1")
	asset.Status = domain.AssetStatusFaulty
	require.NoError(t, f.assets.Update(f.ctx, asset))
	before, err := f.activities.ListByTicket(f.ctx, ticket.ID, true)
	require.NoError(t, err)

	replayed := f.step(f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment})
	assert.Equal(t, domain.RMAStatusSentToHO, replayed.Status)
	assert.Len(t, replayed.Logistics, 1, "no second shipment recorded")
	assert.Equal(t, domain.AssetStatusInRepair, f.storedAsset("asset-1").Status)

	after, err := f.activities.ListByTicket(f.ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestRejectRMA(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)

	_, err := f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepReject, RMAStepInput{})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	rejected := f.step(f.admin, rma.ID, workflow.RMAStepReject, RMAStepInput{Reason: "warranty void"})
	assert.Equal(t, domain.RMAStatusRejected, rejected.Status)
	assert.Equal(t, "warranty void", rejected.RejectionReason)
	assert.False(t, rejected.IsActive())

	f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)
}

// gatedRMAs holds every caller of a gated read until all of them have read,
// so concurrent requests act on the same snapshot.
type gatedRMAs struct {
	*memory.RMARepository
	lists, gets *sync.WaitGroup
}

func (g gatedRMAs) ListByTicket(ctx context.Context, ticketID string) ([]domain.RMA, error) {
	out, err := g.RMARepository.ListByTicket(ctx, ticketID)
	if g.lists != nil {
		g.lists.Done()
		g.lists.Wait()
	}
	return out, err
}

func (g gatedRMAs) GetByID(ctx context.Context, id string) (*domain.RMA, error) {
	out, err := g.RMARepository.GetByID(ctx, id)
	if g.gets != nil {
		g.gets.Done()
		g.gets.Wait()
	}
	return out, err
}

func (f *fixture) rmaServiceWith(repo repository.RMARepository, numbers repository.NumberGenerator) *RMAService {
	if numbers == nil {
		numbers = memory.NewNumberGenerator()
	}
	return NewRMAService(RMADependencies{
		RMARepo:      repo,
		TicketRepo:   f.tickets,
		AssetRepo:    f.assets,
		SiteRepo:     f.sites,
		ActivityRepo: f.activities,
		Numbers:      numbers,
		Dispatcher:   f.dispatcher,
		Clock:        func() time.Time { return f.now },
	})
}

// concurrently runs fn twice at once and returns both errors.
func concurrently(fn func() error) []error {
	errs := make([]error, 2)
	var done sync.WaitGroup
	for i := range errs {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			errs[i] = fn()
		}(i)
	}
	done.Wait()
	return errs
}

func TestConcurrentRMARequestsOpenOnlyOne(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	var reads sync.WaitGroup
	reads.Add(2)
	svc := f.rmaServiceWith(gatedRMAs{RMARepository: f.rmas, lists: &reads}, nil)

	errs := concurrently(func() error {
		_, err := svc.RequestRMA(f.ctx, f.engineer, ticket.ID, RMARequestInput{Type: domain.RMATypeRepairOnly, Reason: "sensor dead"})
		return err
	})

	codes := []string{codeOf(errs[0]), codeOf(errs[1])}
	assert.ElementsMatch(t, []string{"", "CONFLICT"}, codes)
	stored, err := f.rmas.ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestConcurrentRMAStepAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairOnly)
	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})
	var reads sync.WaitGroup
	reads.Add(2)
	svc := f.rmaServiceWith(gatedRMAs{RMARepository: f.rmas, gets: &reads}, nil)

	errs := concurrently(func() error {
		_, err := svc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepShip, RMAStepInput{Logistics: shipment})
		return err
	})

	assert.ElementsMatch(t, []string{"", "STATE_CONFLICT"}, []string{codeOf(errs[0]), codeOf(errs[1])})
	stored, err := f.rmas.GetByID(f.ctx, rma.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RMAStatusSentToHO, stored.Status)
	assert.Len(t, stored.Logistics, 1)
}

func TestRequestRMARedrawsCollidingNumber(t *testing.T) {
	f := newFixture(t)
	first := f.inProgressTicket()
	second := f.inProgressTicket()
	svc := f.rmaServiceWith(f.rmas, &repeatingNumbers{})

	a, err := svc.RequestRMA(f.ctx, f.engineer, first.ID, RMARequestInput{Type: domain.RMATypeRepairOnly, Reason: "dead"})
	require.NoError(t, err)
	b, err := svc.RequestRMA(f.ctx, f.engineer, second.ID, RMARequestInput{Type: domain.RMATypeRepairOnly, Reason: "dead"})
	require.NoError(t, err)
	assert.Equal(t, "RMA-20260301-0001", a.RMANumber)
	assert.Equal(t, "RMA-20260301-0002", b.RMANumber)
}

func TestRequisitionSpareMustBeAtStockSource(t *testing.T) {
	f := newFixture(t)
	ticket := f.inProgressTicket()
	rma := f.requestRMA(ticket.ID, domain.RMATypeRepairAndReplace)
	f.step(f.admin, rma.ID, workflow.RMAStepApprove, RMAStepInput{})

	site2 := "site-2"
	f.seedAsset(&domain.Asset{ID: "spare-2", AssetCode: "CAM-901", AssetType: "CAMERA", SiteID: &site2, Status: domain.AssetStatusSpare, Criticality: 3})
	atSite, inStock := "spare-2", "spare-1"
	site1 := "site-1"

	_, err := f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepRaiseRequisition, RMAStepInput{StockSource: domain.StockSourceHOStock, ReplacementAssetID: &atSite})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err), "head-office stock holds no site")
	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepRaiseRequisition, RMAStepInput{StockSource: domain.StockSourceSiteTransfer, SourceSiteID: &site2, ReplacementAssetID: &inStock})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))
	_, err = f.rmaSvc.Advance(f.ctx, f.admin, rma.ID, workflow.RMAStepRaiseRequisition, RMAStepInput{StockSource: domain.StockSourceSiteTransfer, SourceSiteID: &site1, ReplacementAssetID: &atSite})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err), "spare is not at the source site")
	assert.Nil(t, f.storedRMA(rma.ID).ReplacementStatus)

	raised := f.step(f.admin, rma.ID, workflow.RMAStepRaiseRequisition, RMAStepInput{StockSource: domain.StockSourceSiteTransfer, SourceSiteID: &site2, ReplacementAssetID: &atSite})
	require.NotNil(t, raised.ReplacementAssetID)
	assert.Equal(t, "spare-2", *raised.ReplacementAssetID)
}

func (f *fixture) storedRMA(id string) *domain.RMA {
	f.t.Helper()
	rma, err := f.rmas.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return rma
}
