package service

import (
	"context"
	"net"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/auth"
	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/workflow"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

// AssetService manages tracked devices.
type AssetService struct {
	assets repository.AssetRepository
	sites  repository.SiteRepository
	cipher *auth.CredentialCipher
	events publisher
	logger *zap.Logger
	now    Clock
}

// AssetDependencies bundles collaborators for the asset service.
type AssetDependencies struct {
	AssetRepo  repository.AssetRepository
	SiteRepo   repository.SiteRepository
	Cipher     *auth.CredentialCipher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// AssetInput is the writable part of an asset. A nil SiteID places the
// asset in head-office stock. Nil Credentials leave stored ones untouched.
type AssetInput struct {
	AssetCode    string
	AssetType    string
	DeviceType   string
	Make         string
	Model        string
	SerialNumber string
	SiteID       *string
	Status       domain.AssetStatus
	Criticality  int
	LocationName string
	IPAddress    string
	Credentials  *domain.AssetCredentials
}

// AssetListFilter narrows listings.
type AssetListFilter struct {
	SiteID    *string
	HOStock   bool
	Status    *domain.AssetStatus
	AssetType *string
	Limit     int
	Offset    int
}

// NewAssetService constructs the service.
func NewAssetService(deps AssetDependencies) *AssetService {
	return &AssetService{
		assets: deps.AssetRepo,
		sites:  deps.SiteRepo,
		cipher: deps.Cipher,
		events: publisher{dispatcher: deps.Dispatcher},
		logger: loggerOrNop(deps.Logger),
		now:    clockOrNow(deps.Clock),
	}
}

// CreateAsset registers a device.
func (s *AssetService) CreateAsset(ctx context.Context, actor *domain.User, input AssetInput) (*domain.Asset, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = domain.AssetStatusOperational
	}
	if input.Criticality == 0 {
		input.Criticality = workflow.DefaultCriticality
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	now := s.now()
	asset := &domain.Asset{
		ID:        newID(),
		Status:    input.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyAssetInput(asset, input)
	if err := s.sealCredentials(asset, input.Credentials); err != nil {
		return nil, err
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// UpdateAsset replaces the descriptive fields. Status moves through SetStatus.
func (s *AssetService) UpdateAsset(ctx context.Context, actor *domain.User, assetID string, input AssetInput) (*domain.Asset, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	asset, err := s.load(ctx, assetID)
	if err != nil {
		return nil, err
	}
	input.Status = asset.Status
	if input.Criticality == 0 {
		input.Criticality = asset.Criticality
	}
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	applyAssetInput(asset, input)
	if err := s.sealCredentials(asset, input.Credentials); err != nil {
		return nil, err
	}
	asset.UpdatedAt = s.now()
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	return asset, nil
}

// GetAsset returns one asset.
func (s *AssetService) GetAsset(ctx context.Context, actor *domain.User, assetID string) (*domain.Asset, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, assetID)
}

// ListAssets returns assets matching filter.
func (s *AssetService) ListAssets(ctx context.Context, actor *domain.User, filter AssetListFilter) ([]domain.Asset, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	assets, err := s.assets.List(ctx, repository.AssetFilter{
		SiteID:    filter.SiteID,
		HOStock:   filter.HOStock,
		Status:    filter.Status,
		AssetType: filter.AssetType,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assets, nil
}

// SetStatus moves an asset to status. Decommissioned assets are frozen.
func (s *AssetService) SetStatus(ctx context.Context, actor *domain.User, assetID string, status domain.AssetStatus) (*domain.Asset, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleEngineer) {
		return nil, apperrors.NewForbidden("role cannot change asset status")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown asset status", map[string]any{"status": status})
	}
	if status == domain.AssetStatusDecommissioned && !actor.HasRole(domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only admins decommission assets")
	}
	asset, err := s.load(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.Status == domain.AssetStatusDecommissioned {
		return nil, apperrors.NewStateConflict("asset is decommissioned", map[string]any{"asset_id": asset.ID})
	}
	if asset.Status == status {
		return asset, nil
	}
	oldStatus := asset.Status
	asset.Status = status
	asset.UpdatedAt = s.now()
	if err := s.assets.Update(ctx, asset); err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.events.publish(ctx, events.New(events.EventAssetStatusChanged, events.AggregateAsset, asset.ID, actor.ID, asset.UpdatedAt, events.AssetStatusChangedPayload{
		AssetCode: asset.AssetCode,
		OldStatus: oldStatus,
		NewStatus: status,
		SiteID:    asset.SiteID,
	}))
	return asset, nil
}

// Decommission retires an asset permanently.
func (s *AssetService) Decommission(ctx context.Context, actor *domain.User, assetID string) (*domain.Asset, error) {
	return s.SetStatus(ctx, actor, assetID, domain.AssetStatusDecommissioned)
}

// RevealCredentials opens the sealed device login. Admin only.
func (s *AssetService) RevealCredentials(ctx context.Context, actor *domain.User, assetID string) (*domain.AssetCredentials, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.HasRole(domain.RoleAdmin) {
		return nil, apperrors.NewForbidden("only admins may view device credentials")
	}
	asset, err := s.load(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if len(asset.SealedCredentials) == 0 {
		return nil, apperrors.NewNotFound("credentials", map[string]any{"asset_id": asset.ID})
	}
	if s.cipher == nil {
		return nil, apperrors.NewInternalError(errNoCipher)
	}
	creds, err := s.cipher.Open(asset.ID, asset.SealedCredentials)
	if err != nil {
		s.logger.Error("open asset credentials", zap.String("asset_id", asset.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("asset credentials revealed", zap.String("asset_id", asset.ID), zap.String("actor_id", actor.ID))
	return &creds, nil
}

func (s *AssetService) validate(ctx context.Context, input AssetInput) error {
	if strings.TrimSpace(input.AssetCode) == "" {
		return apperrors.NewValidationError("asset_code is required", map[string]any{"field": "asset_code"})
	}
	if strings.TrimSpace(input.AssetType) == "" {
		return apperrors.NewValidationError("asset_type is required", map[string]any{"field": "asset_type"})
	}
	if input.Criticality < 1 || input.Criticality > 3 {
		return apperrors.NewValidationError("criticality must be between 1 and 3", map[string]any{"field": "criticality"})
	}
	if !input.Status.Valid() {
		return apperrors.NewValidationError("unknown asset status", map[string]any{"status": input.Status})
	}
	if ip := strings.TrimSpace(input.IPAddress); ip != "" && net.ParseIP(ip) == nil {
		return apperrors.NewValidationError("ip_address is not a valid address", map[string]any{"field": "ip_address"})
	}
	if input.SiteID != nil {
		if _, err := s.sites.GetByID(ctx, *input.SiteID); err != nil {
			return apperrors.NotFoundOr(err, "site", map[string]any{"site_id": *input.SiteID})
		}
	}
	return nil
}

func (s *AssetService) sealCredentials(asset *domain.Asset, creds *domain.AssetCredentials) error {
	if creds == nil {
		return nil
	}
	if s.cipher == nil {
		return apperrors.NewInternalError(errNoCipher)
	}
	sealed, err := s.cipher.Seal(asset.ID, *creds)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	asset.SealedCredentials = sealed
	return nil
}

func (s *AssetService) load(ctx context.Context, assetID string) (*domain.Asset, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "asset", map[string]any{"asset_id": assetID})
	}
	return asset, nil
}

func applyAssetInput(asset *domain.Asset, input AssetInput) {
	asset.AssetCode = strings.TrimSpace(input.AssetCode)
	asset.AssetType = strings.TrimSpace(input.AssetType)
	asset.DeviceType = strings.TrimSpace(input.DeviceType)
	asset.Make = strings.TrimSpace(input.Make)
	asset.Model = strings.TrimSpace(input.Model)
	asset.SerialNumber = strings.TrimSpace(input.SerialNumber)
	asset.SiteID = input.SiteID
	asset.Criticality = input.Criticality
	asset.LocationName = strings.TrimSpace(input.LocationName)
	asset.IPAddress = strings.TrimSpace(input.IPAddress)
}

// requireManager admits admins and supervisors.
func requireManager(actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor) {
		return apperrors.NewForbidden("admin or supervisor role required")
	}
	return nil
}
