package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
)

func registerAds(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-active-ads",
		Method:      http.MethodGet,
		Path:        "/ads",
		Summary:     "Active ads",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Ad `json:"body"`
	}, error) {
		ads, err := e.GetActiveAds(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Ad `json:"body"`
		}{Body: ads}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-all-ads",
		Method:      http.MethodGet,
		Path:        "/ads/all",
		Summary:     "All ads (admin)",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Ad `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ads, err := e.GetAllAds(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Ad `json:"body"`
		}{Body: ads}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-ad",
		Method:        http.MethodPost,
		Path:          "/ads",
		Summary:       "Create ad (admin)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateAdRequest `json:"body"`
	}) (*struct {
		Body domain.Ad `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CreateAd(ctx, userID, engine.AdCreateOptions{
			ImageURL: input.Body.ImageURL,
			Link:     input.Body.Link,
			Position: input.Body.Position,
			IsActive: input.Body.IsActive,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Ad `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-ad",
		Method:      http.MethodPatch,
		Path:        "/ads/{ad_id}",
		Summary:     "Update ad (admin)",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AdID string          `path:"ad_id"`
		Body UpdateAdRequest `json:"body"`
	}) (*struct {
		Body domain.Ad `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAd(ctx, input.AdID, userID, engine.AdPatch{
			ImageURL: input.Body.ImageURL,
			Link:     input.Body.Link,
			Position: input.Body.Position,
			IsActive: input.Body.IsActive,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Ad `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-ad",
		Method:        http.MethodDelete,
		Path:          "/ads/{ad_id}",
		Summary:       "Delete ad (admin)",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		AdID string `path:"ad_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAd(ctx, input.AdID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
