package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/repository"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

func TestTicketUpdateWithStatusGuardsStaleWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	ticket := &domain.Ticket{ID: "t1", TicketNumber: "TKT-20260301-0001", Status: domain.TicketStatusOpen, SiteID: "s1"}
	require.NoError(t, repo.Create(ctx, ticket))

	ticket.Status = domain.TicketStatusAssigned
	require.NoError(t, repo.UpdateWithStatus(ctx, ticket, domain.TicketStatusOpen))

	ticket.Status = domain.TicketStatusCancelled
	err := repo.UpdateWithStatus(ctx, ticket, domain.TicketStatusOpen)
	assert.ErrorIs(t, err, apperrors.ErrStaleWrite)

	stored, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
}

func TestTicketCopiesDoNotAlias(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	assignee := "u1"
	require.NoError(t, repo.Create(ctx, &domain.Ticket{ID: "t1", TicketNumber: "n1", AssignedTo: &assignee}))

	assignee = "u2"
	got, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", *got.AssignedTo)

	*got.AssignedTo = "u3"
	again, _ := repo.GetByID(ctx, "t1")
	assert.Equal(t, "u1", *again.AssignedTo)
}

func TestTicketListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewTicketRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusClosed, domain.TicketStatusOpen} {
		require.NoError(t, repo.Create(ctx, &domain.Ticket{
			ID: string(rune('a' + i)), TicketNumber: string(rune('a' + i)), Title: "camera offline",
			Status: status, SiteID: "s1", CreatedOn: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := repo.List(ctx, repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID, "newest first")

	got, err = repo.List(ctx, repository.TicketFilter{SiteIDs: []string{"other"}})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAssetCodeIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewAssetRepository()
	require.NoError(t, repo.Create(ctx, &domain.Asset{ID: "a1", AssetCode: "CAM-001"}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Asset{ID: "a2", AssetCode: "CAM-001"}), apperrors.ErrDuplicate)

	hoStock, err := repo.List(ctx, repository.AssetFilter{HOStock: true})
	require.NoError(t, err)
	assert.Len(t, hoStock, 1)
}

func TestActivityListHidesInternal(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository()
	require.NoError(t, repo.Create(ctx, &domain.Activity{ID: "1", TicketID: "t1", Content: "public"}))
	require.NoError(t, repo.Create(ctx, &domain.Activity{ID: "2", TicketID: "t1", Content: "internal", IsInternal: true}))
	require.NoError(t, repo.Create(ctx, &domain.Activity{ID: "3", TicketID: "t2"}))

	public, _ := repo.ListByTicket(ctx, "t1", false)
	all, _ := repo.ListByTicket(ctx, "t1", true)
	assert.Len(t, public, 1)
	assert.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
}

func TestUserEmailCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Email: "Ops@Example.com"}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{ID: "u2", Email: "ops@example.com"}), apperrors.ErrDuplicate)

	got, err := repo.GetByEmail(ctx, " OPS@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
}

func TestSessionStoreExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewSessionStore(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Session{Token: "r1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(ctx, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNumberGeneratorCountsPerDay(t *testing.T) {
	gen := NewNumberGenerator()
	ctx := context.Background()
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first, _ := gen.Next(ctx, repository.TicketNumberPrefix, day)
	second, _ := gen.Next(ctx, repository.TicketNumberPrefix, day)
	nextDay, _ := gen.Next(ctx, repository.TicketNumberPrefix, day.AddDate(0, 0, 1))
	rma, _ := gen.Next(ctx, repository.RMANumberPrefix, day)

	assert.Equal(t, "TKT-20260301-0001", first)
	assert.Equal(t, "TKT-20260301-0002", second)
	assert.Equal(t, "TKT-20260302-0001", nextDay)
	assert.Equal(t, "RMA-20260301-0001", rma)
}

func TestRMACreateAllowsOneActivePerTicket(t *testing.T) {
	ctx := context.Background()
	repo := NewRMARepository()
	first := &domain.RMA{ID: "r1", RMANumber: "RMA-20260301-0001", TicketID: "t1", Status: domain.RMAStatusRequested}
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, &domain.RMA{ID: "r2", RMANumber: "RMA-20260301-0002", TicketID: "t1", Status: domain.RMAStatusRequested})
	assert.ErrorIs(t, err, repository.ErrActiveRMA)
	err = repo.Create(ctx, &domain.RMA{ID: "r3", RMANumber: "RMA-20260301-0001", TicketID: "t2", Status: domain.RMAStatusRequested})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	first.Status = domain.RMAStatusRejected
	require.NoError(t, repo.UpdateWithStatus(ctx, first, domain.RMAStatusRequested, nil))
	require.NoError(t, repo.Create(ctx, &domain.RMA{ID: "r2", RMANumber: "RMA-20260301-0002", TicketID: "t1", Status: domain.RMAStatusRequested}))
}

func TestRMAUpdateWithStatusGuardsBothTracks(t *testing.T) {
	ctx := context.Background()
	repo := NewRMARepository()
	rma := &domain.RMA{ID: "r1", RMANumber: "RMA-20260301-0001", TicketID: "t1", Status: domain.RMAStatusApproved}
	require.NoError(t, repo.Create(ctx, rma))

	raised := domain.RMAStatusRequisitionRaised
	rma.ReplacementStatus = &raised
	require.NoError(t, repo.UpdateWithStatus(ctx, rma, domain.RMAStatusApproved, nil))

	rma.Status = domain.RMAStatusSentToHO
	err := repo.UpdateWithStatus(ctx, rma, domain.RMAStatusApproved, nil)
	assert.ErrorIs(t, err, apperrors.ErrStaleWrite, "replacement track moved on")
	require.NoError(t, repo.UpdateWithStatus(ctx, rma, domain.RMAStatusApproved, &raised))

	err = repo.UpdateWithStatus(ctx, rma, domain.RMAStatusApproved, &raised)
	assert.ErrorIs(t, err, apperrors.ErrStaleWrite)
	stored, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RMAStatusSentToHO, stored.Status)
}
