package dto

import (
	"time"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// RMARequest opens an RMA on a ticket.
type RMARequest struct {
	Type   domain.RMAType `json:"type"`
	Reason string         `json:"reason"`
}

// RMAStepRequest is the body of every RMA step route.
type RMAStepRequest struct {
	Carrier             string                     `json:"carrier"`
	TrackingNumber      string                     `json:"tracking_number"`
	Reason              string                     `json:"reason"`
	ShipToServiceCenter bool                       `json:"ship_to_service_center"`
	Destination         domain.RepairDestination   `json:"destination"`
	DestinationSiteID   *string                    `json:"destination_site_id"`
	StockSource         domain.StockSource         `json:"stock_source"`
	SourceSiteID        *string                    `json:"source_site_id"`
	ReplacementAssetID  *string                    `json:"replacement_asset_id"`
	ReplacementDetails  *domain.ReplacementDetails `json:"replacement_details"`
}

// RMAResponse is the RMA view.
type RMAResponse struct {
	ID                      string                     `json:"id"`
	RMANumber               string                     `json:"rma_number"`
	TicketID                string                     `json:"ticket_id"`
	AssetID                 string                     `json:"asset_id"`
	Type                    domain.RMAType             `json:"type"`
	Status                  domain.RMAStatus           `json:"status"`
	Reason                  string                     `json:"reason"`
	OriginalDetailsSnapshot domain.AssetSnapshot       `json:"original_details_snapshot"`
	RepairDestination       *domain.RepairDestination  `json:"repair_destination"`
	DestinationSiteID       *string                    `json:"destination_site_id"`
	ReplacementStatus       *domain.RMAStatus          `json:"replacement_status"`
	StockSource             *domain.StockSource        `json:"stock_source"`
	SourceSiteID            *string                    `json:"source_site_id"`
	ReplacementAssetID      *string                    `json:"replacement_asset_id"`
	ReplacementDetails      *domain.ReplacementDetails `json:"replacement_details"`
	Logistics               []domain.Logistics         `json:"logistics"`
	RejectionReason         string                     `json:"rejection_reason,omitempty"`
	RequestedBy             string                     `json:"requested_by"`
	Active                  bool                       `json:"active"`
	CreatedAt               time.Time                  `json:"created_at"`
	UpdatedAt               time.Time                  `json:"updated_at"`
}
