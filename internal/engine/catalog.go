package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kixxpy/markethire/internal/config"
	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/repo"
)

// Categories and tags are read-mostly reference data. The only write path
// is seeding from config.

func (e Engine) GetCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := e.Repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return cats, nil
}

func (e Engine) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	c, err := e.Repo.GetCategory(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Category{}, domain.NotFound("Category not found")
	}
	return c, err
}

// GetTags lists tags, optionally narrowed to one category.
func (e Engine) GetTags(ctx context.Context, categoryID string) ([]domain.Tag, error) {
	if categoryID != "" {
		if _, err := e.GetCategory(ctx, categoryID); err != nil {
			return nil, err
		}
	}
	tags, err := e.Repo.ListTags(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	return tags, nil
}

func (e Engine) GetTag(ctx context.Context, id string) (domain.Tag, error) {
	t, err := e.Repo.GetTag(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Tag{}, domain.NotFound("tag not found")
	}
	return t, err
}

// SeedCatalog upserts the configured categories and their tags. Safe to run
// repeatedly; existing rows keep their ids.
func (e Engine) SeedCatalog(ctx context.Context, seeds []config.CategorySeed) error {
	for _, seed := range seeds {
		slug := seed.Slug
		if slug == "" {
			slug = slugify(seed.Name)
		}
		cat, err := e.Repo.GetCategoryBySlug(ctx, slug)
		if errors.Is(err, repo.ErrNotFound) {
			cat = domain.Category{ID: uuid.NewString(), Name: seed.Name, Slug: slug}
			if err := e.Repo.InsertCategory(ctx, cat); err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else if cat.Name != seed.Name {
			cat.Name = seed.Name
			if err := e.Repo.UpsertCategoryBySlug(ctx, cat); err != nil {
				return err
			}
		}
		for _, name := range seed.Tags {
			if err := e.Repo.UpsertTag(ctx, domain.Tag{ID: uuid.NewString(), CategoryID: cat.ID, Name: name}); err != nil {
				return err
			}
		}
	}
	return nil
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
