package domain

import "time"

// RMAType selects which tracks an RMA runs.
type RMAType string

const (
	RMATypeRepairOnly       RMAType = "REPAIR_ONLY"
	RMATypeRepairAndReplace RMAType = "REPAIR_AND_REPLACE"
)

// RMAStatus enumerates repair-track and replacement-track states.
type RMAStatus string

const (
	RMAStatusRequested           RMAStatus = "REQUESTED"
	RMAStatusApproved            RMAStatus = "APPROVED"
	RMAStatusRejected            RMAStatus = "REJECTED"
	RMAStatusSentToHO            RMAStatus = "SENT_TO_HO"
	RMAStatusSentToServiceCenter RMAStatus = "SENT_TO_SERVICE_CENTER"
	RMAStatusReceivedAtHO        RMAStatus = "RECEIVED_AT_HO"
	RMAStatusSentForRepairFromHO RMAStatus = "SENT_FOR_REPAIR_FROM_HO"
	RMAStatusItemRepairedAtHO    RMAStatus = "ITEM_REPAIRED_AT_HO"
	RMAStatusReturnShippedToSite RMAStatus = "RETURN_SHIPPED_TO_SITE"
	RMAStatusReceivedAtSite      RMAStatus = "RECEIVED_AT_SITE"
	RMAStatusInstalled           RMAStatus = "INSTALLED"
	RMAStatusMovedToHOStock      RMAStatus = "MOVED_TO_HO_STOCK"
)

// Replacement-track states; RECEIVED_AT_SITE and INSTALLED are shared.
const (
	RMAStatusRequisitionRaised     RMAStatus = "REQUISITION_RAISED"
	RMAStatusReplacementDispatched RMAStatus = "REPLACEMENT_DISPATCHED"
)

// RepairDestination says where a repaired item goes.
type RepairDestination string

const (
	RepairDestinationBackToSite RepairDestination = "BACK_TO_SITE"
	RepairDestinationHOStock    RepairDestination = "HO_STOCK"
	RepairDestinationOtherSite  RepairDestination = "OTHER_SITE"
)

// StockSource says where a replacement unit comes from.
type StockSource string

const (
	StockSourceHOStock        StockSource = "HO_STOCK"
	StockSourceSiteTransfer   StockSource = "SITE_TRANSFER"
	StockSourceMarketPurchase StockSource = "MARKET_PURCHASE"
)

// Logistics records shipping metadata for one RMA step.
type Logistics struct {
	Step           string    `json:"step"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	RecordedBy     string    `json:"recorded_by"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// ReplacementDetails describes the unit sent in place of the faulty one.
type ReplacementDetails struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// RMA is a return merchandise authorization for a faulty asset.
type RMA struct {
	ID                      string
	RMANumber               string
	TicketID                string
	AssetID                 string
	Type                    RMAType
	Status                  RMAStatus
	Reason                  string
	OriginalDetailsSnapshot AssetSnapshot
	RepairDestination       *RepairDestination
	DestinationSiteID       *string
	ReplacementStatus       *RMAStatus
	StockSource             *StockSource
	SourceSiteID            *string
	ReplacementAssetID      *string
	ReplacementDetails      *ReplacementDetails
	Logistics               []Logistics
	RejectionReason         string
	RequestedBy             string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// RepairTerminal reports whether the repair track has finished.
func (r *RMA) RepairTerminal() bool {
	switch r.Status {
	case RMAStatusRejected, RMAStatusInstalled, RMAStatusMovedToHOStock:
		return true
	}
	return false
}

// IsActive reports whether either track still has work outstanding.
func (r *RMA) IsActive() bool {
	if !r.RepairTerminal() {
		return true
	}
	if r.Status == RMAStatusRejected {
		return false
	}
	return r.ReplacementStatus != nil && *r.ReplacementStatus != RMAStatusInstalled
}
