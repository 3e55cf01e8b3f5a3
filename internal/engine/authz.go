package engine

import (
	"github.com/kixxpy/markethire/internal/domain"
)

// Authorization predicates live here so every handler applies the same
// rule. Admins pass every ownership check.

func canManageTask(actor domain.User, t domain.Task) bool {
	return actor.IsAdmin() || t.OwnerID == actor.ID
}

func canViewTaskResponses(actor domain.User, t domain.Task) bool {
	return actor.IsAdmin() || t.OwnerID == actor.ID
}

func canViewResponse(actor domain.User, t domain.Task, resp domain.Response) bool {
	return actor.IsAdmin() || t.OwnerID == actor.ID || resp.AuthorID == actor.ID
}

func canManageResponse(actor domain.User, resp domain.Response) bool {
	return actor.IsAdmin() || resp.AuthorID == actor.ID
}

// canReply is deliberately owner-only: replies are the task owner's side of
// the thread, and admins do not write into it.
func canReply(actor domain.User, t domain.Task) bool {
	return t.OwnerID == actor.ID
}

func canDeleteReply(actor domain.User, t domain.Task, rep domain.Reply) bool {
	return actor.IsAdmin() || rep.AuthorID == actor.ID || t.OwnerID == actor.ID
}

// visibleTask reports whether actor may see the task at all. Approved open
// listings are public; everything else is restricted to the owner and admins.
func visibleTask(actor domain.User, t domain.Task) bool {
	if t.ModerationStatus == domain.ModerationApproved {
		return true
	}
	return actor.IsAdmin() || t.OwnerID == actor.ID
}
