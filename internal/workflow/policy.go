package workflow

import "github.com/fieldops/maintenance-desk/internal/domain"

// CanPerform is the single permission check for ticket actions. It does not
// look at the ticket status; Next does that.
//
// Site rights only ever add permissions: a grant for the ticket's site lets
// a user run a role-restricted action, but never an assignee-only step and
// never past the accepted-escalation override.
func CanPerform(actor *domain.User, action Action, t *domain.Ticket) bool {
	if actor == nil || !actor.Active || t == nil {
		return false
	}
	isAdmin := actor.HasRole(domain.RoleAdmin)
	isAssignee := t.IsAssignee(actor.ID)
	granted := actor.HasSiteRight(t.SiteID, string(action))

	switch action {
	case ActionAcknowledge, ActionStart, ActionHold, ActionResume, ActionAcknowledgeRejection:
		return isAssignee || isAdmin
	case ActionResolve, ActionClose:
		// Once escalation is accepted only the new owner or an admin may finish it.
		if t.EscalationAccepted() {
			return isAssignee || isAdmin
		}
		return isAssignee || actor.HasRole(domain.RoleSupervisor, domain.RoleAdmin) || granted
	case ActionVerify, ActionRejectResolution:
		if isAssignee && !isAdmin {
			return false
		}
		return actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleDispatcher) || granted
	case ActionAssign, ActionReopen, ActionCancel:
		return actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleDispatcher) || granted
	case ActionEscalate:
		return isAssignee || actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleDispatcher) || granted
	case ActionAcceptEscalation:
		if isAdmin {
			return true
		}
		return actor.HasRole(domain.RoleEngineer, domain.RoleSupervisor) && QualifiedForEscalation(actor, t.EscalationLevel)
	case ActionDelegateEscalation:
		return actor.HasRole(domain.RoleAdmin, domain.RoleSupervisor) || granted
	case ActionComment:
		return actor.Role != domain.RoleViewer || granted
	}
	return false
}

// QualifiedForEscalation reports whether user can own a ticket at level.
func QualifiedForEscalation(user *domain.User, level int) bool {
	if user == nil || !user.Active || user.Role == domain.RoleViewer {
		return false
	}
	if user.Role == domain.RoleAdmin {
		return true
	}
	return user.EscalationTier >= level
}

// AvailableActions lists the transitions actor may run on t right now.
func AvailableActions(actor *domain.User, t *domain.Ticket) []Action {
	out := []Action{}
	for _, action := range TransitionActions {
		if _, err := Next(t, action); err != nil {
			continue
		}
		if CanPerform(actor, action, t) {
			out = append(out, action)
		}
	}
	if CanPerform(actor, ActionComment, t) {
		out = append(out, ActionComment)
	}
	return out
}
