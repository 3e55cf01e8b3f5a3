package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
)

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Category `json:"body"`
	}, error) {
		cats, err := e.GetCategories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Category `json:"body"`
		}{Body: cats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-category",
		Method:      http.MethodGet,
		Path:        "/categories/{category_id}",
		Summary:     "Get category",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CategoryID string `path:"category_id"`
	}) (*struct {
		Body domain.Category `json:"body"`
	}, error) {
		c, err := e.GetCategory(ctx, input.CategoryID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Category `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-category-tags",
		Method:      http.MethodGet,
		Path:        "/categories/{category_id}/tags",
		Summary:     "Tags in a category",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CategoryID string `path:"category_id"`
	}) (*struct {
		Body []domain.Tag `json:"body"`
	}, error) {
		tags, err := e.GetTags(ctx, input.CategoryID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Tag `json:"body"`
		}{Body: tags}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Tag `json:"body"`
	}, error) {
		tags, err := e.GetTags(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Tag `json:"body"`
		}{Body: tags}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tag",
		Method:      http.MethodGet,
		Path:        "/tags/{tag_id}",
		Summary:     "Get tag",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TagID string `path:"tag_id"`
	}) (*struct {
		Body domain.Tag `json:"body"`
	}, error) {
		t, err := e.GetTag(ctx, input.TagID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Tag `json:"body"`
		}{Body: t}, nil
	})
}
