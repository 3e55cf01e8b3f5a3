package engine

import (
	"database/sql"
	"time"

	"github.com/kixxpy/markethire/internal/config"
	"github.com/kixxpy/markethire/internal/events"
	"github.com/kixxpy/markethire/internal/filestore"
	"github.com/kixxpy/markethire/internal/repo"
)

// Engine owns all marketplace business rules. HTTP handlers and CLI
// commands call into it; they never touch the database directly.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Config  *config.Config
	Files   filestore.Store
	Effects *Dispatcher
	Now     func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	e := Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
	if cfg != nil {
		e.Files = filestore.New(cfg.Uploads.Dir, cfg.Uploads.PublicPrefix)
	}
	e.Effects = NewDispatcher(e)
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}
