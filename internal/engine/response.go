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

// ResponseCreateOptions are parameters for bidding on a task.
type ResponseCreateOptions struct {
	TaskID       string
	AuthorID     string
	Message      string
	Price        *int64
	DeadlineDays *int
}

func (e Engine) CreateResponse(ctx context.Context, opts ResponseCreateOptions) (domain.Response, error) {
	author, err := e.requireUser(ctx, opts.AuthorID)
	if err != nil {
		return domain.Response{}, err
	}
	t, err := e.getTask(ctx, opts.TaskID)
	if err != nil {
		return domain.Response{}, err
	}
	if author.ID == t.OwnerID {
		return domain.Response{}, domain.Invalid("cannot respond to own task")
	}
	if t.Status != domain.TaskOpen {
		return domain.Response{}, domain.Conflict("cannot respond to a closed task")
	}
	if _, err := e.Repo.GetResponseByTaskAuthor(ctx, t.ID, author.ID); err == nil {
		return domain.Response{}, domain.Conflict("you have already responded to this task")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Response{}, err
	}
	if strings.TrimSpace(opts.Message) == "" {
		return domain.Response{}, domain.Invalid("message cannot be empty")
	}
	if opts.Price != nil && *opts.Price <= 0 {
		return domain.Response{}, domain.Invalid("price must be a positive number")
	}
	if opts.DeadlineDays != nil && *opts.DeadlineDays <= 0 {
		return domain.Response{}, domain.Invalid("deadline must be a positive number of days")
	}

	now := e.stamp()
	resp := domain.Response{
		ID:           uuid.NewString(),
		TaskID:       t.ID,
		AuthorID:     author.ID,
		Message:      strings.TrimSpace(opts.Message),
		Price:        opts.Price,
		DeadlineDays: opts.DeadlineDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Response{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertResponse(ctx, tx, resp); err != nil {
		// The unique (task_id, author_id) index is the final authority; the
		// pre-flight read above only covers the common case.
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.Response{}, domain.Conflict("you have already responded to this task")
		}
		return domain.Response{}, err
	}
	if err := e.Events.Append(ctx, tx, "response.created", "response", resp.ID, author.ID, events.EventPayload{"task_id": t.ID}); err != nil {
		return domain.Response{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Response{}, err
	}

	e.Effects.Run(ctx, NotificationRequest{
		RecipientID: t.OwnerID,
		Role:        domain.RoleSeller,
		Type:        "response.created",
		Title:       "New response",
		Message:     author.Name + " responded to your task \"" + t.Title + "\".",
		Link:        "/tasks/" + t.ID + "/responses",
	})
	return resp, nil
}

func (e Engine) GetResponse(ctx context.Context, id, requesterID string) (domain.Response, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return domain.Response{}, err
	}
	resp, err := e.getResponse(ctx, id)
	if err != nil {
		return domain.Response{}, err
	}
	t, err := e.getTask(ctx, resp.TaskID)
	if err != nil {
		return domain.Response{}, err
	}
	if !canViewResponse(actor, t, resp) {
		return domain.Response{}, domain.Forbidden("insufficient rights to view response")
	}
	return resp, nil
}

// ResponsePatch carries the optional fields updateResponse may overwrite.
type ResponsePatch struct {
	Message       *string
	Price         *int64
	ClearPrice    bool
	DeadlineDays  *int
	ClearDeadline bool
}

// UpdateResponse edits the author's own response. Edits stay allowed after
// the task closes; only creation is gated on task status.
func (e Engine) UpdateResponse(ctx context.Context, id, requesterID string, patch ResponsePatch) (domain.Response, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return domain.Response{}, err
	}
	resp, err := e.getResponse(ctx, id)
	if err != nil {
		return domain.Response{}, err
	}
	if !canManageResponse(actor, resp) {
		return domain.Response{}, domain.Forbidden("insufficient rights to update response")
	}
	if patch.Message != nil {
		if strings.TrimSpace(*patch.Message) == "" {
			return domain.Response{}, domain.Invalid("message cannot be empty")
		}
		resp.Message = strings.TrimSpace(*patch.Message)
	}
	if patch.Price != nil {
		if *patch.Price <= 0 {
			return domain.Response{}, domain.Invalid("price must be a positive number")
		}
		resp.Price = patch.Price
	} else if patch.ClearPrice {
		resp.Price = nil
	}
	if patch.DeadlineDays != nil {
		if *patch.DeadlineDays <= 0 {
			return domain.Response{}, domain.Invalid("deadline must be a positive number of days")
		}
		resp.DeadlineDays = patch.DeadlineDays
	} else if patch.ClearDeadline {
		resp.DeadlineDays = nil
	}
	resp.UpdatedAt = e.stamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Response{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateResponse(ctx, tx, resp); err != nil {
		return domain.Response{}, err
	}
	if err := e.Events.Append(ctx, tx, "response.updated", "response", resp.ID, actor.ID, nil); err != nil {
		return domain.Response{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Response{}, err
	}
	return resp, nil
}

func (e Engine) DeleteResponse(ctx context.Context, id, requesterID string) error {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return err
	}
	resp, err := e.getResponse(ctx, id)
	if err != nil {
		return err
	}
	if !canManageResponse(actor, resp) {
		return domain.Forbidden("insufficient rights to delete response")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteResponse(ctx, tx, resp.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "response.deleted", "response", resp.ID, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ResponseWithTask pairs a response with a summary of its parent task.
type ResponseWithTask struct {
	domain.Response
	Task domain.Task `json:"task"`
}

func (e Engine) GetMyResponses(ctx context.Context, requesterID string) ([]ResponseWithTask, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	responses, err := e.Repo.ListResponsesByAuthor(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ResponseWithTask, 0, len(responses))
	for _, resp := range responses {
		t, err := e.Repo.GetTask(ctx, resp.TaskID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		out = append(out, ResponseWithTask{Response: resp, Task: t})
	}
	return out, nil
}

func (e Engine) getResponse(ctx context.Context, id string) (domain.Response, error) {
	resp, err := e.Repo.GetResponse(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Response{}, domain.NotFound("response not found")
	}
	return resp, err
}
