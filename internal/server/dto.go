package server

import (
	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
)

// Request payloads

type RegisterRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty" enum:"seller,performer,both"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	About     *string `json:"about,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type CreateTaskRequest struct {
	CategoryID  string   `json:"category_id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Marketplace *string  `json:"marketplace,omitempty"`
	Budget      *int64   `json:"budget,omitempty"`
	TagIDs      []string `json:"tag_ids,omitempty"`
}

type UpdateTaskRequest struct {
	CategoryID  *string  `json:"category_id,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Marketplace *string  `json:"marketplace,omitempty"`
	Budget      *int64   `json:"budget,omitempty"`
	ClearBudget bool     `json:"clear_budget,omitempty"`
	TagIDs      []string `json:"tag_ids,omitempty"`
}

type ModerateTaskRequest struct {
	Status string `json:"status" enum:"approved,rejected"`
	Reason string `json:"reason,omitempty"`
}

type CreateResponseRequest struct {
	Message      string `json:"message"`
	Price        *int64 `json:"price,omitempty"`
	DeadlineDays *int   `json:"deadline_days,omitempty"`
}

type UpdateResponseRequest struct {
	Message       *string `json:"message,omitempty"`
	Price         *int64  `json:"price,omitempty"`
	ClearPrice    bool    `json:"clear_price,omitempty"`
	DeadlineDays  *int    `json:"deadline_days,omitempty"`
	ClearDeadline bool    `json:"clear_deadline,omitempty"`
}

type CreateReplyRequest struct {
	Message string `json:"message"`
}

type CreateAdRequest struct {
	ImageURL string `json:"image_url"`
	Link     string `json:"link"`
	Position *int   `json:"position,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type UpdateAdRequest struct {
	ImageURL *string `json:"image_url,omitempty"`
	Link     *string `json:"link,omitempty"`
	Position *int    `json:"position,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Response payloads

type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type TaskListResponse struct {
	Tasks []domain.Task `json:"tasks"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
}

type CountResponse struct {
	Count int `json:"count"`
}

func taskListResponse(p engine.TaskPage) TaskListResponse {
	return TaskListResponse{Tasks: p.Tasks, Total: p.Total, Page: p.Page}
}
