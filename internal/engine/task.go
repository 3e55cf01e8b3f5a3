package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/events"
	"github.com/kixxpy/markethire/internal/repo"
)

// TaskCreateOptions are parameters for posting a task.
type TaskCreateOptions struct {
	OwnerID     string
	CategoryID  string
	Title       string
	Description string
	Marketplace string
	Budget      *int64
	TagIDs      []string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	owner, err := e.requireUser(ctx, opts.OwnerID)
	if err != nil {
		return domain.Task{}, err
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Task{}, domain.Invalid("title is required")
	}
	if opts.Budget != nil && *opts.Budget <= 0 {
		return domain.Task{}, domain.Invalid("budget must be a positive number")
	}
	if _, err := e.Repo.GetCategory(ctx, opts.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, domain.NotFound("Category not found")
		}
		return domain.Task{}, err
	}
	if len(opts.TagIDs) > 0 {
		tags, err := e.Repo.GetTagsByIDs(ctx, opts.TagIDs)
		if err != nil {
			return domain.Task{}, err
		}
		if len(tags) != len(dedupe(opts.TagIDs)) {
			return domain.Task{}, domain.Invalid("one or more tags not found")
		}
	}

	now := e.stamp()
	t := domain.Task{
		ID:               uuid.NewString(),
		OwnerID:          owner.ID,
		CategoryID:       opts.CategoryID,
		Title:            strings.TrimSpace(opts.Title),
		Description:      opts.Description,
		Marketplace:      opts.Marketplace,
		Budget:           opts.Budget,
		Status:           domain.TaskOpen,
		ModerationStatus: domain.ModerationPending,
		TagIDs:           dedupe(opts.TagIDs),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.ReplaceTaskTags(ctx, tx, t.ID, t.TagIDs); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, owner.ID, events.EventPayload{"category_id": t.CategoryID}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskPatch carries the optional fields updateTask may overwrite. Nil fields
// keep their current value.
type TaskPatch struct {
	CategoryID  *string
	Title       *string
	Description *string
	Marketplace *string
	Budget      *int64
	ClearBudget bool
	TagIDs      []string
}

func (e Engine) UpdateTask(ctx context.Context, taskID, requesterID string, patch TaskPatch) (domain.Task, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if !canManageTask(actor, t) {
		return domain.Task{}, domain.Forbidden("insufficient rights to update task")
	}
	if patch.CategoryID != nil {
		if _, err := e.Repo.GetCategory(ctx, *patch.CategoryID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Task{}, domain.NotFound("Category not found")
			}
			return domain.Task{}, err
		}
		t.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return domain.Task{}, domain.Invalid("title is required")
		}
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Marketplace != nil {
		t.Marketplace = *patch.Marketplace
	}
	if patch.Budget != nil {
		if *patch.Budget <= 0 {
			return domain.Task{}, domain.Invalid("budget must be a positive number")
		}
		t.Budget = patch.Budget
	} else if patch.ClearBudget {
		t.Budget = nil
	}
	if patch.TagIDs != nil {
		tags, err := e.Repo.GetTagsByIDs(ctx, patch.TagIDs)
		if err != nil {
			return domain.Task{}, err
		}
		if len(tags) != len(dedupe(patch.TagIDs)) {
			return domain.Task{}, domain.Invalid("one or more tags not found")
		}
		t.TagIDs = dedupe(patch.TagIDs)
	}
	t.UpdatedAt = e.stamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if patch.TagIDs != nil {
		if err := e.Repo.ReplaceTaskTags(ctx, tx, t.ID, t.TagIDs); err != nil {
			return domain.Task{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", t.ID, actor.ID, nil); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// CloseTask moves an open task to its terminal closed state. There is no
// reopen operation.
func (e Engine) CloseTask(ctx context.Context, taskID, requesterID string) (domain.Task, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if !canManageTask(actor, t) {
		return domain.Task{}, domain.Forbidden("insufficient rights to update task")
	}
	if t.Status == domain.TaskClosed {
		return domain.Task{}, domain.Conflict("task already closed")
	}
	now := e.stamp()
	t.Status = domain.TaskClosed
	t.UpdatedAt = now
	t.ClosedAt = &now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.closed", "task", t.ID, actor.ID, nil); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (e Engine) DeleteTask(ctx context.Context, taskID, requesterID string) error {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return err
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !canManageTask(actor, t) {
		return domain.Forbidden("insufficient rights to update task")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteTask(ctx, tx, t.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", t.ID, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// GetTask returns one task if the requester may see it. Unmoderated tasks
// are visible only to their owner and admins; requesterID may be empty for
// anonymous reads.
func (e Engine) GetTask(ctx context.Context, taskID, requesterID string) (domain.Task, error) {
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	var actor domain.User
	if requesterID != "" {
		if actor, err = e.requireUser(ctx, requesterID); err != nil {
			return domain.Task{}, err
		}
	}
	if !visibleTask(actor, t) {
		return domain.Task{}, domain.NotFound("task not found")
	}
	return t, nil
}

// ResponseWithAuthor pairs a response with its author's public profile.
type ResponseWithAuthor struct {
	domain.Response
	Author domain.Profile `json:"author"`
}

func (e Engine) GetTaskResponses(ctx context.Context, taskID, requesterID string) ([]ResponseWithAuthor, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canViewTaskResponses(actor, t) {
		return nil, domain.Forbidden("insufficient rights to view responses")
	}
	responses, err := e.Repo.ListTaskResponses(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	authorIDs := make([]string, 0, len(responses))
	for _, r := range responses {
		authorIDs = append(authorIDs, r.AuthorID)
	}
	authors, err := e.Repo.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ResponseWithAuthor, 0, len(responses))
	for _, r := range responses {
		out = append(out, ResponseWithAuthor{Response: r, Author: authors[r.AuthorID].Profile()})
	}
	return out, nil
}

// TaskListOptions are the public listing filters.
type TaskListOptions struct {
	CategoryID  string
	TagIDs      []string
	Marketplace string
	Status      string
	Mine        bool
	RequesterID string
	Page        int
	Limit       int
	SortKey     string
	SortDesc    bool
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks []domain.Task `json:"tasks"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
}

// ListTasks returns approved tasks to the public; mine=true scopes to the
// requester's own tasks at any moderation status, and admins see everything.
func (e Engine) ListTasks(ctx context.Context, opts TaskListOptions) (TaskPage, error) {
	var actor domain.User
	if opts.RequesterID != "" {
		var err error
		if actor, err = e.requireUser(ctx, opts.RequesterID); err != nil {
			return TaskPage{}, err
		}
	}
	f := repo.TaskFilters{
		CategoryID:  opts.CategoryID,
		TagIDs:      opts.TagIDs,
		Marketplace: opts.Marketplace,
		Status:      opts.Status,
		Page:        opts.Page,
		Limit:       e.pageLimit(opts.Limit),
		SortKey:     opts.SortKey,
		SortDesc:    opts.SortDesc,
	}
	if opts.Mine {
		if actor.ID == "" {
			return TaskPage{}, domain.Unauthenticated("authentication required")
		}
		f.OwnerID = actor.ID
	} else if !actor.IsAdmin() {
		f.ModerationStatus = domain.ModerationApproved
	}
	if f.Page < 1 {
		f.Page = 1
	}
	tasks, total, err := e.Repo.ListTasks(ctx, f)
	if err != nil {
		return TaskPage{}, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return TaskPage{Tasks: tasks, Total: total, Page: f.Page}, nil
}

// ModerateTask records an admin verdict on a pending (or previously judged)
// task, with an audit row and an owner notification.
func (e Engine) ModerateTask(ctx context.Context, taskID, adminID, status, reason string) (domain.Task, error) {
	actor, err := e.requireUser(ctx, adminID)
	if err != nil {
		return domain.Task{}, err
	}
	if !actor.IsAdmin() {
		return domain.Task{}, domain.Forbidden("insufficient rights to moderate tasks")
	}
	if status != domain.ModerationApproved && status != domain.ModerationRejected {
		return domain.Task{}, domain.Invalid("moderation status must be approved or rejected")
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	prev := t.ModerationStatus
	if prev == status {
		return domain.Task{}, domain.Conflict("task already " + status)
	}
	t.ModerationStatus = status
	t.UpdatedAt = e.stamp()

	prevJSON, _ := json.Marshal(map[string]string{"moderation_status": prev})
	newJSON, _ := json.Marshal(map[string]string{"moderation_status": status})
	changed, _ := json.Marshal([]string{"moderation_status"})
	rec := domain.ModerationRecord{
		ID:            uuid.NewString(),
		TaskID:        t.ID,
		ChangedFields: string(changed),
		PreviousJSON:  string(prevJSON),
		NewJSON:       string(newJSON),
		ChangedBy:     actor.ID,
		Reason:        reason,
		CreatedAt:     t.UpdatedAt,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.InsertModerationRecord(ctx, tx, rec); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.moderated", "task", t.ID, actor.ID, events.EventPayload{"from": prev, "to": status}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	verdict := "approved"
	msg := "Your task \"" + t.Title + "\" was approved and is now listed."
	if status == domain.ModerationRejected {
		verdict = "rejected"
		msg = "Your task \"" + t.Title + "\" was rejected."
		if reason != "" {
			msg += " Reason: " + reason
		}
	}
	e.Effects.Run(ctx, NotificationRequest{
		RecipientID: t.OwnerID,
		Role:        domain.RoleSeller,
		Type:        "task." + verdict,
		Title:       "Task " + verdict,
		Message:     msg,
		Link:        "/tasks/" + t.ID,
	})
	return t, nil
}

func (e Engine) GetTaskModerationHistory(ctx context.Context, taskID, requesterID string) ([]domain.ModerationRecord, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	t, err := e.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canManageTask(actor, t) {
		return nil, domain.Forbidden("insufficient rights to view moderation history")
	}
	return e.Repo.ListModerationRecords(ctx, t.ID)
}

func (e Engine) getTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Task{}, domain.NotFound("task not found")
	}
	return t, err
}

func (e Engine) pageLimit(limit int) int {
	if e.Config == nil {
		if limit <= 0 {
			return 20
		}
		return limit
	}
	if limit <= 0 {
		return e.Config.Listing.PageSize
	}
	if limit > e.Config.Listing.MaxPageSize {
		return e.Config.Listing.MaxPageSize
	}
	return limit
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
