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

// GetActiveAds is the public rotation, ordered by banner position.
func (e Engine) GetActiveAds(ctx context.Context) ([]domain.Ad, error) {
	ads, err := e.Repo.ListActiveAds(ctx)
	if err != nil {
		return nil, err
	}
	if ads == nil {
		ads = []domain.Ad{}
	}
	return ads, nil
}

func (e Engine) GetAllAds(ctx context.Context, requesterID string) ([]domain.Ad, error) {
	if _, err := e.requireAdmin(ctx, requesterID); err != nil {
		return nil, err
	}
	ads, err := e.Repo.ListAllAds(ctx)
	if err != nil {
		return nil, err
	}
	if ads == nil {
		ads = []domain.Ad{}
	}
	return ads, nil
}

// AdCreateOptions are parameters for placing an ad. A nil Position appends
// the ad after the current last slot.
type AdCreateOptions struct {
	ImageURL string
	Link     string
	Position *int
	IsActive *bool
}

func (e Engine) CreateAd(ctx context.Context, requesterID string, opts AdCreateOptions) (domain.Ad, error) {
	actor, err := e.requireAdmin(ctx, requesterID)
	if err != nil {
		return domain.Ad{}, err
	}
	if strings.TrimSpace(opts.ImageURL) == "" {
		return domain.Ad{}, domain.Invalid("image url is required")
	}
	if strings.TrimSpace(opts.Link) == "" {
		return domain.Ad{}, domain.Invalid("link is required")
	}
	position := 0
	if opts.Position != nil {
		position = *opts.Position
	} else {
		max, err := e.Repo.MaxAdPosition(ctx)
		if err != nil {
			return domain.Ad{}, err
		}
		position = max + 1
	}
	active := true
	if opts.IsActive != nil {
		active = *opts.IsActive
	}
	now := e.stamp()
	a := domain.Ad{
		ID:        uuid.NewString(),
		ImageURL:  strings.TrimSpace(opts.ImageURL),
		Link:      strings.TrimSpace(opts.Link),
		Position:  position,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Ad{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAd(ctx, tx, a); err != nil {
		return domain.Ad{}, err
	}
	if err := e.Events.Append(ctx, tx, "ad.created", "ad", a.ID, actor.ID, events.EventPayload{"position": a.Position}); err != nil {
		return domain.Ad{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Ad{}, err
	}
	return a, nil
}

// AdPatch carries the optional fields updateAd may overwrite.
type AdPatch struct {
	ImageURL *string
	Link     *string
	Position *int
	IsActive *bool
}

// UpdateAd applies a partial patch. Replacing the image of a managed upload
// also removes the old file after commit.
func (e Engine) UpdateAd(ctx context.Context, id, requesterID string, patch AdPatch) (domain.Ad, error) {
	actor, err := e.requireAdmin(ctx, requesterID)
	if err != nil {
		return domain.Ad{}, err
	}
	a, err := e.getAd(ctx, id)
	if err != nil {
		return domain.Ad{}, err
	}
	previousImage := a.ImageURL
	if patch.ImageURL != nil {
		if strings.TrimSpace(*patch.ImageURL) == "" {
			return domain.Ad{}, domain.Invalid("image url is required")
		}
		a.ImageURL = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Link != nil {
		if strings.TrimSpace(*patch.Link) == "" {
			return domain.Ad{}, domain.Invalid("link is required")
		}
		a.Link = strings.TrimSpace(*patch.Link)
	}
	if patch.Position != nil {
		a.Position = *patch.Position
	}
	if patch.IsActive != nil {
		a.IsActive = *patch.IsActive
	}
	a.UpdatedAt = e.stamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Ad{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateAd(ctx, tx, a); err != nil {
		return domain.Ad{}, err
	}
	if err := e.Events.Append(ctx, tx, "ad.updated", "ad", a.ID, actor.ID, nil); err != nil {
		return domain.Ad{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Ad{}, err
	}

	if a.ImageURL != previousImage && e.Files.Managed(previousImage) {
		e.Effects.Run(ctx, FileRemoval{URL: previousImage})
	}
	return a, nil
}

func (e Engine) DeleteAd(ctx context.Context, id, requesterID string) error {
	actor, err := e.requireAdmin(ctx, requesterID)
	if err != nil {
		return err
	}
	a, err := e.getAd(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteAd(ctx, tx, a.ID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "ad.deleted", "ad", a.ID, actor.ID, nil); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if e.Files.Managed(a.ImageURL) {
		e.Effects.Run(ctx, FileRemoval{URL: a.ImageURL})
	}
	return nil
}

func (e Engine) getAd(ctx context.Context, id string) (domain.Ad, error) {
	a, err := e.Repo.GetAd(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Ad{}, domain.NotFound("ad not found")
	}
	return a, err
}

func (e Engine) requireAdmin(ctx context.Context, id string) (domain.User, error) {
	actor, err := e.requireUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if !actor.IsAdmin() {
		return domain.User{}, domain.Forbidden("admin rights required")
	}
	return actor, nil
}
