package dto

import (
	"time"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// AssetRequest creates or updates an asset.
type AssetRequest struct {
	AssetCode    string                   `json:"asset_code"`
	AssetType    string                   `json:"asset_type"`
	DeviceType   string                   `json:"device_type"`
	Make         string                   `json:"make"`
	Model        string                   `json:"model"`
	SerialNumber string                   `json:"serial_number"`
	SiteID       *string                  `json:"site_id"`
	Status       domain.AssetStatus       `json:"status"`
	Criticality  int                      `json:"criticality"`
	LocationName string                   `json:"location_name"`
	IPAddress    string                   `json:"ip_address"`
	Credentials  *domain.AssetCredentials `json:"credentials"`
}

// AssetStatusRequest moves an asset to a new status.
type AssetStatusRequest struct {
	Status domain.AssetStatus `json:"status"`
}

// AssetResponse never carries credentials.
type AssetResponse struct {
	ID             string             `json:"id"`
	AssetCode      string             `json:"asset_code"`
	AssetType      string             `json:"asset_type"`
	DeviceType     string             `json:"device_type"`
	Make           string             `json:"make"`
	Model          string             `json:"model"`
	SerialNumber   string             `json:"serial_number"`
	SiteID         *string            `json:"site_id"`
	Status         domain.AssetStatus `json:"status"`
	Criticality    int                `json:"criticality"`
	LocationName   string             `json:"location_name"`
	IPAddress      string             `json:"ip_address"`
	HasCredentials bool               `json:"has_credentials"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// SiteRequest creates or updates a site.
type SiteRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Region       string `json:"region"`
	Address      string `json:"address"`
	IsHeadOffice bool   `json:"is_head_office"`
	IsActive     *bool  `json:"is_active"`
}

// SiteResponse is the site view.
type SiteResponse struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Region       string    `json:"region"`
	Address      string    `json:"address"`
	IsHeadOffice bool      `json:"is_head_office"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
