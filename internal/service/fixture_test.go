package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/config"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/repository/memory"
	"github.com/fieldops/maintenance-desk/internal/workflow"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	now time.Time

	tickets       *memory.TicketRepository
	activities    *memory.ActivityRepository
	assets        *memory.AssetRepository
	sites         *memory.SiteRepository
	users         *memory.UserRepository
	rmas          *memory.RMARepository
	registrations *memory.RegistrationRepository
	sessions      *memory.SessionStore
	dispatcher    events.Dispatcher

	ticketSvc       *TicketService
	rmaSvc          *RMAService
	assetSvc        *AssetService
	siteSvc         *SiteService
	userSvc         *UserService
	registrationSvc *RegistrationService
	authSvc         *AuthService

	admin, supervisor, dispatcherUser, engineer, otherEngineer, tier2, viewer *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &fixture{
		t:             t,
		ctx:           context.Background(),
		now:           time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		tickets:       memory.NewTicketRepository(),
		activities:    memory.NewActivityRepository(),
		assets:        memory.NewAssetRepository(),
		sites:         memory.NewSiteRepository(),
		users:         memory.NewUserRepository(),
		rmas:          memory.NewRMARepository(),
		registrations: memory.NewRegistrationRepository(),
		dispatcher:    events.NewInMemoryDispatcher(logger, nil),
	}
	clock := func() time.Time { return f.now }
	f.sessions = memory.NewSessionStore(clock)
	numbers := memory.NewNumberGenerator()

	cipher, err := auth.NewCredentialCipher("test-secret")
	require.NoError(t, err)

	f.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:   f.tickets,
		ActivityRepo: f.activities,
		AssetRepo:    f.assets,
		SiteRepo:     f.sites,
		UserRepo:     f.users,
		Numbers:      numbers,
		Dispatcher:   f.dispatcher,
		SLAPolicy:    workflow.DefaultSLAPolicy(),
		Logger:       logger,
		Clock:        clock,
	})
	f.rmaSvc = NewRMAService(RMADependencies{
		RMARepo:      f.rmas,
		TicketRepo:   f.tickets,
		AssetRepo:    f.assets,
		SiteRepo:     f.sites,
		ActivityRepo: f.activities,
		Numbers:      numbers,
		Dispatcher:   f.dispatcher,
		Logger:       logger,
		Clock:        clock,
	})
	f.assetSvc = NewAssetService(AssetDependencies{
		AssetRepo:  f.assets,
		SiteRepo:   f.sites,
		Cipher:     cipher,
		Dispatcher: f.dispatcher,
		Logger:     logger,
		Clock:      clock,
	})
	f.siteSvc = NewSiteService(f.sites, clock)
	f.userSvc = NewUserService(UserDependencies{UserRepo: f.users, SiteRepo: f.sites, BcryptCost: 4, Logger: logger, Clock: clock})
	f.registrationSvc = NewRegistrationService(RegistrationDependencies{
		RegistrationRepo: f.registrations,
		UserRepo:         f.users,
		BcryptCost:       4,
		Dispatcher:       f.dispatcher,
		Logger:           logger,
		Clock:            clock,
	})
	f.authSvc = NewAuthService(config.AuthConfig{JWTSecret: "jwt", AccessTokenTTLMinutes: 15, RefreshTokenTTLMinutes: 60, BcryptCost: 4}, AuthDependencies{
		UserRepo: f.users,
		Sessions: f.sessions,
		Logger:   logger,
		Clock:    clock,
	})

	f.seedSite(&domain.Site{ID: "site-1", Code: "NORTH", Name: "North Gate", IsActive: true})
	f.seedSite(&domain.Site{ID: "site-2", Code: "SOUTH", Name: "South Yard", IsActive: true})
	f.seedSite(&domain.Site{ID: "site-ho", Code: "HO", Name: "Head Office", IsHeadOffice: true, IsActive: true})

	f.admin = f.seedUser("admin", domain.RoleAdmin, 3)
	f.supervisor = f.seedUser("supervisor", domain.RoleSupervisor, 1)
	f.dispatcherUser = f.seedUser("dispatcher", domain.RoleDispatcher, 0)
	f.engineer = f.seedUser("engineer", domain.RoleEngineer, 0)
	f.otherEngineer = f.seedUser("engineer-2", domain.RoleEngineer, 0)
	f.tier2 = f.seedUser("tier2", domain.RoleEngineer, 2)
	f.viewer = f.seedUser("viewer", domain.RoleViewer, 0)

	site1 := "site-1"
	f.seedAsset(&domain.Asset{ID: "asset-1", AssetCode: "CAM-001", AssetType: "CAMERA", SiteID: &site1, Status: domain.AssetStatusOperational, Criticality: 3})
	f.seedAsset(&domain.Asset{ID: "spare-1", AssetCode: "CAM-900", AssetType: "CAMERA", Status: domain.AssetStatusSpare, Criticality: 3})
	return f
}

func (f *fixture) seedSite(site *domain.Site) {
	require.NoError(f.t, f.sites.Create(f.ctx, site))
}

func (f *fixture) seedUser(id string, role domain.Role, tier int) *domain.User {
	hash, err := auth.HashPassword("password-"+id, 4)
	require.NoError(f.t, err)
	user := &domain.User{ID: id, Name: id, Email: id + "@desk.test", PasswordHash: hash, Role: role, EscalationTier: tier, Active: true}
	require.NoError(f.t, f.users.Create(f.ctx, user))
	return user
}

func (f *fixture) seedAsset(asset *domain.Asset) {
	require.NoError(f.t, f.assets.Create(f.ctx, asset))
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// newTicket opens a ticket on asset-1 with impact 5 and urgency 5.
func (f *fixture) newTicket() *domain.Ticket {
	f.t.Helper()
	assetID := "asset-1"
	ticket, err := f.ticketSvc.CreateTicket(f.ctx, f.dispatcherUser, TicketCreateInput{
		Title:   "Camera offline",
		Impact:  5,
		Urgency: 5,
		AssetID: &assetID,
	})
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) do(actor *domain.User, ticketID string, action workflow.Action, payload workflow.Payload) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.ticketSvc.Perform(f.ctx, actor, ticketID, action, payload)
	require.NoError(f.t, err, "action %s", action)
	return ticket
}

// inProgressTicket returns a ticket assigned to f.engineer and started.
func (f *fixture) inProgressTicket() *domain.Ticket {
	f.t.Helper()
	ticket := f.newTicket()
	f.do(f.dispatcherUser, ticket.ID, workflow.ActionAssign, workflow.Payload{AssigneeID: f.engineer.ID})
	f.do(f.engineer, ticket.ID, workflow.ActionAcknowledge, workflow.Payload{})
	return f.do(f.engineer, ticket.ID, workflow.ActionStart, workflow.Payload{})
}

func (f *fixture) storedTicket(id string) *domain.Ticket {
	f.t.Helper()
	ticket, err := f.tickets.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return ticket
}

func (f *fixture) storedAsset(id string) *domain.Asset {
	f.t.Helper()
	asset, err := f.assets.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return asset
}

func codeOf(err error) string {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
