package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fieldops/maintenance-desk/internal/config"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/repository/memory"
	"github.com/fieldops/maintenance-desk/internal/workflow"
)

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestRegistrationApproveCreatesViewer(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{}
	NewNotificationService(f.dispatcher, zaptest.NewLogger(t), config.NotificationConfig{EmailFrom: "desk@example.com"}, notifier).RegisterHandlers()

	_, err := f.registrationSvc.Submit(f.ctx, RegistrationInput{Organization: "Acme", ContactName: "Ravi", Email: "not-an-email"})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	reg, err := f.registrationSvc.Submit(f.ctx, RegistrationInput{Organization: "Acme", ContactName: "Ravi", Email: "Ravi@Acme.test"})
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusPending, reg.Status)
	assert.Equal(t, "ravi@acme.test", reg.Email)

	_, err = f.registrationSvc.Approve(f.ctx, f.supervisor, reg.ID, "")
	assert.Equal(t, "FORBIDDEN", codeOf(err))

	result, err := f.registrationSvc.Approve(f.ctx, f.admin, reg.ID, "")
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.TemporaryPassword, 16)
	assert.Equal(t, domain.RoleViewer, result.User.Role)
	assert.Equal(t, domain.RegistrationStatusApproved, result.Registration.Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ravi@acme.test", notifier.sent[0].To)

	_, _, err = f.authSvc.Login(f.ctx, "ravi@acme.test", result.TemporaryPassword)
	require.NoError(t, err)

	_, err = f.registrationSvc.Approve(f.ctx, f.admin, reg.ID, "")
	assert.Equal(t, "STATE_CONFLICT", codeOf(err))
}

func TestRegistrationNotificationFailureIsAWarning(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	NewNotificationService(f.dispatcher, zaptest.NewLogger(t), config.NotificationConfig{EmailFrom: "desk@example.com"}, notifier).RegisterHandlers()

	reg, err := f.registrationSvc.Submit(f.ctx, RegistrationInput{Organization: "Acme", ContactName: "Mei", Email: "mei@acme.test"})
	require.NoError(t, err)
	result, err := f.registrationSvc.Reject(f.ctx, f.admin, reg.ID, "unknown company")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "smtp down")

	stored, err := f.registrations.GetByID(f.ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusRejected, stored.Status)
	assert.Equal(t, "unknown company", stored.Reason)
}

func TestRegistrationApproveRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	reg, err := f.registrationSvc.Submit(f.ctx, RegistrationInput{Organization: "Desk", ContactName: "Eng", Email: "engineer@desk.test"})
	require.NoError(t, err)

	_, err = f.registrationSvc.Approve(f.ctx, f.admin, reg.ID, "long-enough")
	assert.Equal(t, "CONFLICT", codeOf(err))
}

func TestAssetCredentialsAndDecommission(t *testing.T) {
	f := newFixture(t)
	site := "site-2"

	_, err := f.assetSvc.CreateAsset(f.ctx, f.engineer, AssetInput{AssetCode: "NVR-1", AssetType: "NVR"})
	assert.Equal(t, "FORBIDDEN", codeOf(err))
	_, err = f.assetSvc.CreateAsset(f.ctx, f.admin, AssetInput{AssetCode: "NVR-1", AssetType: "NVR", IPAddress: "999.1.1.1"})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	asset, err := f.assetSvc.CreateAsset(f.ctx, f.supervisor, AssetInput{
		AssetCode:   "NVR-1",
		AssetType:   "NVR",
		SiteID:      &site,
		IPAddress:   "10.0.0.7",
		Credentials: &domain.AssetCredentials{Username: "admin", Password: "hunter2"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusOperational, asset.Status)
	assert.Equal(t, 2, asset.Criticality)
	assert.NotContains(t, string(asset.SealedCredentials), "hunter2")

	_, err = f.assetSvc.CreateAsset(f.ctx, f.admin, AssetInput{AssetCode: "NVR-1", AssetType: "NVR"})
	assert.Equal(t, "CONFLICT", codeOf(err))

	_, err = f.assetSvc.RevealCredentials(f.ctx, f.supervisor, asset.ID)
	assert.Equal(t, "FORBIDDEN", codeOf(err))
	creds, err := f.assetSvc.RevealCredentials(f.ctx, f.admin, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", creds.Password)

	_, err = f.assetSvc.Decommission(f.ctx, f.supervisor, asset.ID)
	assert.Equal(t, "FORBIDDEN", codeOf(err))
	retired, err := f.assetSvc.Decommission(f.ctx, f.admin, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusDecommissioned, retired.Status)

	_, err = f.assetSvc.SetStatus(f.ctx, f.admin, asset.ID, domain.AssetStatusOperational)
	assert.Equal(t, "STATE_CONFLICT", codeOf(err))

	assetID := asset.ID
	_, err = f.ticketSvc.CreateTicket(f.ctx, f.dispatcherUser, TicketCreateInput{Title: "NVR", AssetID: &assetID, Impact: 1, Urgency: 1})
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))
}

func TestAssetStatusChangePublishes(t *testing.T) {
	f := newFixture(t)
	var seen []events.Event
	f.dispatcher.Subscribe(events.EventAssetStatusChanged, func(_ context.Context, e events.Event) error {
		seen = append(seen, e)
		return nil
	})

	updated, err := f.assetSvc.SetStatus(f.ctx, f.engineer, "asset-1", domain.AssetStatusUnderMaintenance)
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusUnderMaintenance, updated.Status)
	require.Len(t, seen, 1)
	assert.Equal(t, "asset-1", seen[0].AggregateID)

	_, err = f.assetSvc.SetStatus(f.ctx, f.viewer, "asset-1", domain.AssetStatusOperational)
	assert.Equal(t, "FORBIDDEN", codeOf(err))
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)

	input := UserInput{
		Name:           "Night Engineer",
		Email:          "Night@Desk.test",
		Password:       "short",
		Role:           domain.RoleEngineer,
		EscalationTier: 1,
		SiteRights:     []domain.SiteRight{{SiteID: "site-2", Actions: []string{"ASSIGN"}}},
	}
	_, err := f.userSvc.CreateUser(f.ctx, f.admin, input)
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	input.Password = "nightshift"
	_, err = f.userSvc.CreateUser(f.ctx, f.supervisor, input)
	assert.Equal(t, "FORBIDDEN", codeOf(err))

	bad := input
	bad.SiteRights = []domain.SiteRight{{SiteID: "site-2", Actions: []string{"FLY"}}}
	_, err = f.userSvc.CreateUser(f.ctx, f.admin, bad)
	assert.Equal(t, "VALIDATION_FAILED", codeOf(err))

	missingSite := input
	missingSite.SiteIDs = []string{"nowhere"}
	_, err = f.userSvc.CreateUser(f.ctx, f.admin, missingSite)
	assert.Equal(t, "NOT_FOUND", codeOf(err))

	user, err := f.userSvc.CreateUser(f.ctx, f.admin, input)
	require.NoError(t, err)
	assert.Equal(t, "night@desk.test", user.Email)
	assert.True(t, user.Active)
	assert.True(t, user.HasSiteRight("site-2", "ASSIGN"))

	_, err = f.userSvc.GetUser(f.ctx, f.engineer, user.ID)
	assert.Equal(t, "FORBIDDEN", codeOf(err))
	self, err := f.userSvc.GetUser(f.ctx, user, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, self.ID)

	demote := UserInput{Name: "admin", Email: "admin@desk.test", Role: domain.RoleSupervisor}
	_, err = f.userSvc.UpdateUser(f.ctx, f.admin, f.admin.ID, demote)
	assert.Equal(t, "CONFLICT", codeOf(err))

	engineers := domain.RoleEngineer
	list, err := f.userSvc.ListUsers(f.ctx, f.dispatcherUser, UserListFilter{Role: &engineers})
	require.NoError(t, err)
	assert.Len(t, list, 4)
	_, err = f.userSvc.ListUsers(f.ctx, f.engineer, UserListFilter{})
	assert.Equal(t, "FORBIDDEN", codeOf(err))
}

func TestSiteGrantLetsEngineerAssign(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket()
	f.engineer.SiteRights = []domain.SiteRight{{SiteID: "site-1", Actions: []string{"ASSIGN"}}}

	assigned := f.do(f.engineer, ticket.ID, workflow.ActionAssign, workflow.Payload{AssigneeID: f.otherEngineer.ID})
	assert.Equal(t, f.otherEngineer.ID, *assigned.AssignedTo)
}

func TestBootstrapAdminOnlyOnEmptyStore(t *testing.T) {
	f := newFixture(t)
	created, err := f.userSvc.EnsureBootstrapAdmin(f.ctx, "root@desk.test", "bootstrap-pass")
	require.NoError(t, err)
	assert.False(t, created)

	empty := NewUserService(UserDependencies{UserRepo: memory.NewUserRepository(), SiteRepo: f.sites, BcryptCost: 4})
	created, err = empty.EnsureBootstrapAdmin(f.ctx, "root@desk.test", "bootstrap-pass")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSitesAreAdminManaged(t *testing.T) {
	f := newFixture(t)

	_, err := f.siteSvc.CreateSite(f.ctx, f.supervisor, SiteInput{Code: "east", Name: "East"})
	assert.Equal(t, "FORBIDDEN", codeOf(err))
	site, err := f.siteSvc.CreateSite(f.ctx, f.admin, SiteInput{Code: "east", Name: "East"})
	require.NoError(t, err)
	assert.Equal(t, "EAST", site.Code)
	assert.True(t, site.IsActive)

	inactive := false
	_, err = f.siteSvc.UpdateSite(f.ctx, f.admin, site.ID, SiteInput{Code: "EAST", Name: "East", IsActive: &inactive})
	require.NoError(t, err)
	active, err := f.siteSvc.ListSites(f.ctx, f.viewer, true)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestAuthLoginRefreshLogout(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.authSvc.Login(f.ctx, "engineer@desk.test", "wrong")
	assert.Equal(t, "UNAUTHORIZED", codeOf(err))

	user, pair, err := f.authSvc.Login(f.ctx, " Engineer@Desk.test ", "password-engineer")
	require.NoError(t, err)
	assert.Equal(t, f.engineer.ID, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, f.now.Add(time.Hour), pair.RefreshExpiresAt)

	claims, err := f.authSvc.TokenManager().ParseToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.engineer.ID, claims.Subject)

	_, rotated, err := f.authSvc.Refresh(f.ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	_, _, err = f.authSvc.Refresh(f.ctx, pair.RefreshToken)
	assert.Equal(t, "UNAUTHORIZED", codeOf(err), "refresh tokens are single use")

	require.NoError(t, f.authSvc.Logout(f.ctx, rotated.RefreshToken))
	_, _, err = f.authSvc.Refresh(f.ctx, rotated.RefreshToken)
	assert.Equal(t, "UNAUTHORIZED", codeOf(err))

	_, late, err := f.authSvc.Login(f.ctx, "engineer@desk.test", "password-engineer")
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, _, err = f.authSvc.Refresh(f.ctx, late.RefreshToken)
	assert.Equal(t, "UNAUTHORIZED", codeOf(err))
}
