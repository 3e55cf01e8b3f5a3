package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/events"
	"github.com/kixxpy/markethire/internal/repo"
)

const maxReplyLen = 1000

// CreateReply posts the task owner's reply to a response and notifies the
// response author. The notification is best-effort and never fails the reply.
func (e Engine) CreateReply(ctx context.Context, responseID, requesterID, message string) (domain.Reply, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return domain.Reply{}, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return domain.Reply{}, domain.Invalid("message cannot be empty")
	}
	if len([]rune(message)) > maxReplyLen {
		return domain.Reply{}, domain.Invalid("message cannot exceed 1000 characters")
	}
	resp, err := e.Repo.GetResponse(ctx, responseID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Reply{}, domain.NotFound("response not found")
	}
	if err != nil {
		return domain.Reply{}, err
	}
	t, err := e.Repo.GetTask(ctx, resp.TaskID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Reply{}, domain.NotFound("response not found")
	}
	if err != nil {
		return domain.Reply{}, err
	}
	if !canReply(actor, t) {
		return domain.Reply{}, domain.Forbidden("only the task owner may reply to responses")
	}
	if t.Status != domain.TaskOpen {
		return domain.Reply{}, domain.Conflict("cannot reply to responses on a closed task")
	}

	rep := domain.Reply{
		ID:         uuid.NewString(),
		ResponseID: resp.ID,
		AuthorID:   actor.ID,
		Message:    message,
		CreatedAt:  e.stamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reply{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertReply(ctx, tx, rep); err != nil {
		return domain.Reply{}, err
	}
	if err := e.Events.Append(ctx, tx, "reply.created", "reply", rep.ID, actor.ID, events.EventPayload{"response_id": resp.ID}); err != nil {
		return domain.Reply{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Reply{}, err
	}

	e.Effects.Run(ctx, NotificationRequest{
		RecipientID: resp.AuthorID,
		Role:        domain.RolePerformer,
		Type:        "reply.created",
		Title:       "New reply",
		Message:     actor.Name + " replied to your response on \"" + t.Title + "\".",
		Link:        "/tasks/" + t.ID + "/responses",
	})
	return rep, nil
}

func (e Engine) DeleteReply(ctx context.Context, replyID, requesterID string) error {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return err
	}
	rep, err := e.Repo.GetReply(ctx, replyID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFound("reply not found")
	}
	if err != nil {
		return err
	}
	resp, err := e.Repo.GetResponse(ctx, rep.ResponseID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	var t domain.Task
	if err == nil {
		if t, err = e.Repo.GetTask(ctx, resp.TaskID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
	}
	if !canDeleteReply(actor, t, rep) {
		return domain.Forbidden("insufficient rights to delete reply")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteReply(ctx, tx, rep.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "reply.deleted", "reply", rep.ID, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplyWithAuthor pairs a reply with its author's public profile.
type ReplyWithAuthor struct {
	domain.Reply
	Author domain.Profile `json:"author"`
}

// GetResponseReplies lists the reply thread under a response, visible to the
// same parties as the response itself.
func (e Engine) GetResponseReplies(ctx context.Context, responseID, requesterID string) ([]ReplyWithAuthor, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	resp, err := e.getResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	t, err := e.getTask(ctx, resp.TaskID)
	if err != nil {
		return nil, err
	}
	if !canViewResponse(actor, t, resp) {
		return nil, domain.Forbidden("insufficient rights to view response")
	}
	replies, err := e.Repo.ListRepliesByResponse(ctx, resp.ID)
	if err != nil {
		return nil, err
	}
	authorIDs := make([]string, 0, len(replies))
	for _, rep := range replies {
		authorIDs = append(authorIDs, rep.AuthorID)
	}
	authors, err := e.Repo.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ReplyWithAuthor, 0, len(replies))
	for _, rep := range replies {
		out = append(out, ReplyWithAuthor{Reply: rep, Author: authors[rep.AuthorID].Profile()})
	}
	return out, nil
}
