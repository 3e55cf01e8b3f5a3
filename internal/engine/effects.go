package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kixxpy/markethire/internal/domain"
)

// SideEffect is work that should happen after a mutation commits but whose
// failure must never fail the mutation itself: fan-out notifications and
// cleanup of uploaded files.
type SideEffect interface {
	run(ctx context.Context, e Engine) error
	describe() string
}

// NotificationRequest delivers an in-app notification to one user.
type NotificationRequest struct {
	RecipientID string
	Role        string
	Type        string
	Title       string
	Message     string
	Link        string
}

func (n NotificationRequest) describe() string { return "notify " + n.RecipientID + " " + n.Type }

func (n NotificationRequest) run(ctx context.Context, e Engine) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = e.Repo.InsertNotification(ctx, tx, domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: n.RecipientID,
		Role:        n.Role,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Link:        n.Link,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// FileRemoval deletes a managed upload, typically a replaced or deleted
// ad banner image.
type FileRemoval struct {
	URL string
}

func (f FileRemoval) describe() string { return "remove file " + f.URL }

func (f FileRemoval) run(ctx context.Context, e Engine) error {
	if !e.Files.Managed(f.URL) {
		return nil
	}
	return e.Files.Remove(f.URL)
}

// Dispatcher executes side effects after the owning transaction commits.
// Errors are logged and swallowed; a lost notification or an orphaned
// upload never surfaces to the caller.
type Dispatcher struct {
	engine Engine
	Logger *log.Logger
}

func NewDispatcher(e Engine) *Dispatcher {
	return &Dispatcher{engine: e, Logger: log.Default()}
}

func (d *Dispatcher) Run(ctx context.Context, effects ...SideEffect) {
	if d == nil {
		return
	}
	for _, eff := range effects {
		if err := eff.run(ctx, d.engine); err != nil {
			d.Logger.Printf("side effect failed (%s): %v", eff.describe(), err)
		}
	}
}
