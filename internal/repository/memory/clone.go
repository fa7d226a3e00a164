// Package memory provides in-process repositories used when no database is
// configured and by tests. Values are copied on the way in and out so
// callers never share state with the store.
package memory

import (
	"slices"

	"github.com/fieldops/maintenance-desk/internal/domain"
)

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.AssetID = clonePtr(t.AssetID)
	t.AssignedTo = clonePtr(t.AssignedTo)
	t.EscalationAcceptedBy = clonePtr(t.EscalationAcceptedBy)
	t.RespondedAt = clonePtr(t.RespondedAt)
	t.ResolvedAt = clonePtr(t.ResolvedAt)
	t.ClosedAt = clonePtr(t.ClosedAt)
	return t
}

func cloneAsset(a domain.Asset) domain.Asset {
	a.SiteID = clonePtr(a.SiteID)
	a.SealedCredentials = slices.Clone(a.SealedCredentials)
	return a
}

func cloneRMA(m domain.RMA) domain.RMA {
	m.OriginalDetailsSnapshot.SiteID = clonePtr(m.OriginalDetailsSnapshot.SiteID)
	m.RepairDestination = clonePtr(m.RepairDestination)
	m.DestinationSiteID = clonePtr(m.DestinationSiteID)
	m.ReplacementStatus = clonePtr(m.ReplacementStatus)
	m.StockSource = clonePtr(m.StockSource)
	m.SourceSiteID = clonePtr(m.SourceSiteID)
	m.ReplacementAssetID = clonePtr(m.ReplacementAssetID)
	m.ReplacementDetails = clonePtr(m.ReplacementDetails)
	m.Logistics = slices.Clone(m.Logistics)
	return m
}

func cloneUser(u domain.User) domain.User {
	u.SiteIDs = slices.Clone(u.SiteIDs)
	rights := make([]domain.SiteRight, len(u.SiteRights))
	for i, r := range u.SiteRights {
		rights[i] = domain.SiteRight{SiteID: r.SiteID, Actions: slices.Clone(r.Actions)}
	}
	u.SiteRights = rights
	return u
}

func cloneActivity(a domain.Activity) domain.Activity {
	a.OldStatus = clonePtr(a.OldStatus)
	a.NewStatus = clonePtr(a.NewStatus)
	a.Attachments = slices.Clone(a.Attachments)
	return a
}

func cloneRegistration(g domain.ClientRegistration) domain.ClientRegistration {
	g.ReviewedBy = clonePtr(g.ReviewedBy)
	g.UserID = clonePtr(g.UserID)
	return g
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
