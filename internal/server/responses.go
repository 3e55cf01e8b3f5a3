package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
)

func registerResponses(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "my-responses",
		Method:      http.MethodGet,
		Path:        "/responses/mine",
		Summary:     "My responses",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []engine.ResponseWithTask `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.GetMyResponses(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.ResponseWithTask `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-response",
		Method:      http.MethodGet,
		Path:        "/responses/{response_id}",
		Summary:     "Get response",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ResponseID string `path:"response_id"`
	}) (*struct {
		Body domain.Response `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		resp, err := e.GetResponse(ctx, input.ResponseID, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Response `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-response",
		Method:      http.MethodPatch,
		Path:        "/responses/{response_id}",
		Summary:     "Update response",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ResponseID string                `path:"response_id"`
		Body       UpdateResponseRequest `json:"body"`
	}) (*struct {
		Body domain.Response `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		resp, err := e.UpdateResponse(ctx, input.ResponseID, userID, engine.ResponsePatch{
			Message:       input.Body.Message,
			Price:         input.Body.Price,
			ClearPrice:    input.Body.ClearPrice,
			DeadlineDays:  input.Body.DeadlineDays,
			ClearDeadline: input.Body.ClearDeadline,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Response `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-response",
		Method:        http.MethodDelete,
		Path:          "/responses/{response_id}",
		Summary:       "Delete response",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ResponseID string `path:"response_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteResponse(ctx, input.ResponseID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-response-replies",
		Method:      http.MethodGet,
		Path:        "/responses/{response_id}/replies",
		Summary:     "List replies under a response",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ResponseID string `path:"response_id"`
	}) (*struct {
		Body []engine.ReplyWithAuthor `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.GetResponseReplies(ctx, input.ResponseID, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.ReplyWithAuthor `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-reply",
		Method:        http.MethodPost,
		Path:          "/responses/{response_id}/replies",
		Summary:       "Reply to a response",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ResponseID string             `path:"response_id"`
		Body       CreateReplyRequest `json:"body"`
	}) (*struct {
		Body domain.Reply `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.CreateReply(ctx, input.ResponseID, userID, input.Body.Message)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Reply `json:"body"`
		}{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-reply",
		Method:        http.MethodDelete,
		Path:          "/replies/{reply_id}",
		Summary:       "Delete reply",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReplyID string `path:"reply_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteReply(ctx, input.ReplyID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
