package engine

import (
	"context"
	"errors"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/repo"
)

// GetNotifications returns the requester's newest notifications, optionally
// narrowed by role and unread state. The read cap lives in the repo.
func (e Engine) GetNotifications(ctx context.Context, requesterID, role string, unreadOnly bool) ([]domain.Notification, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	list, err := e.Repo.ListNotifications(ctx, actor.ID, repo.NotificationFilters{Role: role, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// GetUnreadNotificationCount counts the requester's unread notifications,
// optionally narrowed to one role feed. Role-less notifications count in
// every feed.
func (e Engine) GetUnreadNotificationCount(ctx context.Context, requesterID, role string) (int, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return 0, err
	}
	return e.Repo.CountUnreadNotifications(ctx, actor.ID, role)
}

// MarkNotificationRead flips one of the requester's notifications to read.
// A notification belonging to someone else reads as missing.
func (e Engine) MarkNotificationRead(ctx context.Context, id, requesterID string) error {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return err
	}
	err = e.Repo.MarkNotificationRead(ctx, id, actor.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFound("notification not found")
	}
	return err
}

// MarkAllNotificationsRead marks the requester's unread notifications read,
// optionally only those in one role feed, and returns how many were flipped.
func (e Engine) MarkAllNotificationsRead(ctx context.Context, requesterID, role string) (int, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return 0, err
	}
	return e.Repo.MarkAllNotificationsRead(ctx, actor.ID, role)
}
