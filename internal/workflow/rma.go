package workflow

import (
	"errors"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

// RMAStep names one operation of the repair or replacement track.
type RMAStep string

const (
	RMAStepApprove             RMAStep = "APPROVE"
	RMAStepReject              RMAStep = "REJECT"
	RMAStepShip                RMAStep = "SHIP"
	RMAStepReceiveAtHO         RMAStep = "RECEIVE_AT_HO"
	RMAStepForwardToService    RMAStep = "FORWARD_TO_SERVICE_CENTER"
	RMAStepMarkRepaired        RMAStep = "MARK_REPAIRED"
	RMAStepSelectDestination   RMAStep = "SELECT_DESTINATION"
	RMAStepReceiveAtSite       RMAStep = "RECEIVE_AT_SITE"
	RMAStepInstall             RMAStep = "INSTALL"
	RMAStepRaiseRequisition    RMAStep = "RAISE_REQUISITION"
	RMAStepDispatchReplacement RMAStep = "DISPATCH_REPLACEMENT"
	RMAStepReceiveReplacement  RMAStep = "RECEIVE_REPLACEMENT"
	RMAStepInstallReplacement  RMAStep = "INSTALL_REPLACEMENT"
)

// Track distinguishes the two parallel RMA flows.
type Track int

const (
	TrackRepair Track = iota
	TrackReplacement
)

// RMAStepRule is one row of the RMA step table. An empty status in From
// means the replacement track has not started.
type RMAStepRule struct {
	Track     Track
	From      []domain.RMAStatus
	Targets   []domain.RMAStatus
	Logistics bool
	SiteLevel bool
}

// Allows reports whether the step may run from status.
func (r RMAStepRule) Allows(status domain.RMAStatus) bool {
	for _, from := range r.From {
		if from == status {
			return true
		}
	}
	return false
}

// Reaches reports whether status is one of the step's outcomes.
func (r RMAStepRule) Reaches(status domain.RMAStatus) bool {
	for _, to := range r.Targets {
		if to == status {
			return true
		}
	}
	return false
}

var (
	// ErrReplacementNotAllowed means the RMA type has no replacement track.
	ErrReplacementNotAllowed = errors.New("rma type does not include replacement")
	// ErrRMANotApproved means the replacement track needs an approved RMA.
	ErrRMANotApproved = errors.New("rma must be approved first")
)

var rmaSteps = map[RMAStep]RMAStepRule{
	RMAStepApprove: {
		Track:   TrackRepair,
		From:    []domain.RMAStatus{domain.RMAStatusRequested},
		Targets: []domain.RMAStatus{domain.RMAStatusApproved},
	},
	RMAStepReject: {
		Track:   TrackRepair,
		From:    []domain.RMAStatus{domain.RMAStatusRequested},
		Targets: []domain.RMAStatus{domain.RMAStatusRejected},
	},
	RMAStepShip: {
		Track:     TrackRepair,
		From:      []domain.RMAStatus{domain.RMAStatusApproved},
		Targets:   []domain.RMAStatus{domain.RMAStatusSentToHO, domain.RMAStatusSentToServiceCenter},
		Logistics: true,
	},
	RMAStepReceiveAtHO: {
		Track:   TrackRepair,
		From:    []domain.RMAStatus{domain.RMAStatusSentToHO},
		Targets: []domain.RMAStatus{domain.RMAStatusReceivedAtHO},
	},
	RMAStepForwardToService: {
		Track:     TrackRepair,
		From:      []domain.RMAStatus{domain.RMAStatusReceivedAtHO},
		Targets:   []domain.RMAStatus{domain.RMAStatusSentForRepairFromHO},
		Logistics: true,
	},
	RMAStepMarkRepaired: {
		Track:   TrackRepair,
		From:    []domain.RMAStatus{domain.RMAStatusSentForRepairFromHO, domain.RMAStatusSentToServiceCenter},
		Targets: []domain.RMAStatus{domain.RMAStatusItemRepairedAtHO},
	},
	RMAStepSelectDestination: {
		Track:   TrackRepair,
		From:    []domain.RMAStatus{domain.RMAStatusItemRepairedAtHO},
		Targets: []domain.RMAStatus{domain.RMAStatusReturnShippedToSite, domain.RMAStatusMovedToHOStock},
		// Logistics are required unless the item stays in HO stock.
		Logistics: true,
	},
	RMAStepReceiveAtSite: {
		Track:     TrackRepair,
		From:      []domain.RMAStatus{domain.RMAStatusReturnShippedToSite},
		Targets:   []domain.RMAStatus{domain.RMAStatusReceivedAtSite},
		SiteLevel: true,
	},
	RMAStepInstall: {
		Track:     TrackRepair,
		From:      []domain.RMAStatus{domain.RMAStatusReceivedAtSite},
		Targets:   []domain.RMAStatus{domain.RMAStatusInstalled},
		SiteLevel: true,
	},
	RMAStepRaiseRequisition: {
		Track:   TrackReplacement,
		From:    []domain.RMAStatus{""},
		Targets: []domain.RMAStatus{domain.RMAStatusRequisitionRaised},
	},
	RMAStepDispatchReplacement: {
		Track:     TrackReplacement,
		From:      []domain.RMAStatus{domain.RMAStatusRequisitionRaised},
		Targets:   []domain.RMAStatus{domain.RMAStatusReplacementDispatched},
		Logistics: true,
	},
	RMAStepReceiveReplacement: {
		Track:     TrackReplacement,
		From:      []domain.RMAStatus{domain.RMAStatusReplacementDispatched},
		Targets:   []domain.RMAStatus{domain.RMAStatusReceivedAtSite},
		SiteLevel: true,
	},
	RMAStepInstallReplacement: {
		Track:     TrackReplacement,
		From:      []domain.RMAStatus{domain.RMAStatusReceivedAtSite},
		Targets:   []domain.RMAStatus{domain.RMAStatusInstalled},
		SiteLevel: true,
	},
}

// RMARuleFor returns the table row for step.
func RMARuleFor(step RMAStep) (RMAStepRule, bool) {
	rule, ok := rmaSteps[step]
	return rule, ok
}

// TrackStatus returns the current status of one track; "" when the
// replacement track has not started.
func TrackStatus(rma *domain.RMA, track Track) domain.RMAStatus {
	if track == TrackReplacement {
		if rma.ReplacementStatus == nil {
			return ""
		}
		return *rma.ReplacementStatus
	}
	return rma.Status
}

// CheckRMAStep verifies step may run on rma now.
func CheckRMAStep(rma *domain.RMA, step RMAStep) error {
	rule, ok := rmaSteps[step]
	if !ok {
		return ErrUnknownAction
	}
	if rule.Track == TrackReplacement {
		if rma.Type != domain.RMATypeRepairAndReplace {
			return ErrReplacementNotAllowed
		}
		if rma.Status == domain.RMAStatusRequested || rma.Status == domain.RMAStatusRejected {
			return ErrRMANotApproved
		}
	}
	if !rule.Allows(TrackStatus(rma, rule.Track)) {
		return ErrInvalidTransition
	}
	return nil
}

// CanPerformRMAStep gates RMA steps: admins run logistics, while the
// ticket's assigned engineer performs the site-level receive and install.
func CanPerformRMAStep(actor *domain.User, step RMAStep, t *domain.Ticket) bool {
	if actor == nil || !actor.Active {
		return false
	}
	if actor.HasRole(domain.RoleAdmin) {
		return true
	}
	rule, ok := rmaSteps[step]
	if !ok || !rule.SiteLevel || t == nil {
		return false
	}
	return t.IsAssignee(actor.ID)
}

// CanRequestRMA reports whether actor may open an RMA on t.
func CanRequestRMA(actor *domain.User, t *domain.Ticket) bool {
	if actor == nil || !actor.Active || t == nil {
		return false
	}
	return t.IsAssignee(actor.ID) || actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor)
}
