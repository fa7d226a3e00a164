package domain

import "time"

// AssetStatus enumerates the operational state of an asset.
type AssetStatus string

const (
	AssetStatusOperational      AssetStatus = "OPERATIONAL"
	AssetStatusFaulty           AssetStatus = "FAULTY"
	AssetStatusUnderMaintenance AssetStatus = "UNDER_MAINTENANCE"
	AssetStatusDecommissioned   AssetStatus = "DECOMMISSIONED"
	AssetStatusSpare            AssetStatus = "SPARE"
	AssetStatusInRepair         AssetStatus = "IN_REPAIR"
)

// Valid reports whether s is a known asset status.
func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusOperational, AssetStatusFaulty, AssetStatusUnderMaintenance,
		AssetStatusDecommissioned, AssetStatusSpare, AssetStatusInRepair:
		return true
	}
	return false
}

// Asset is a tracked device (camera, NVR, switch, ...). A nil SiteID means
// the asset sits in head-office stock. SealedCredentials holds the
// encrypted username/password blob.
type Asset struct {
	ID                string
	AssetCode         string
	AssetType         string
	DeviceType        string
	Make              string
	Model             string
	SerialNumber      string
	SiteID            *string
	Status            AssetStatus
	Criticality       int
	LocationName      string
	IPAddress         string
	SealedCredentials []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AssetCredentials are the plaintext device login details.
type AssetCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AssetSnapshot freezes identifying asset details at a point in time.
type AssetSnapshot struct {
	AssetCode    string      `json:"asset_code"`
	AssetType    string      `json:"asset_type"`
	DeviceType   string      `json:"device_type"`
	Make         string      `json:"make"`
	Model        string      `json:"model"`
	SerialNumber string      `json:"serial_number"`
	SiteID       *string     `json:"site_id,omitempty"`
	Status       AssetStatus `json:"status"`
}

// Snapshot captures the asset's current identity.
func (a *Asset) Snapshot() AssetSnapshot {
	return AssetSnapshot{
		AssetCode:    a.AssetCode,
		AssetType:    a.AssetType,
		DeviceType:   a.DeviceType,
		Make:         a.Make,
		Model:        a.Model,
		SerialNumber: a.SerialNumber,
		SiteID:       a.SiteID,
		Status:       a.Status,
	}
}
