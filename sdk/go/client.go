package markethiresdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal MarketHire HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// User represents the API account model.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	About     string `json:"about,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Task represents the API task model.
type Task struct {
	ID               string   `json:"id"`
	OwnerID          string   `json:"owner_id"`
	CategoryID       string   `json:"category_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Marketplace      string   `json:"marketplace,omitempty"`
	Budget           *int64   `json:"budget,omitempty"`
	Status           string   `json:"status"`
	ModerationStatus string   `json:"moderation_status"`
	TagIDs           []string `json:"tag_ids,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// Response represents a performer's bid on a task.
type Response struct {
	ID           string `json:"id"`
	TaskID       string `json:"task_id"`
	AuthorID     string `json:"author_id"`
	Message      string `json:"message"`
	Price        *int64 `json:"price,omitempty"`
	DeadlineDays *int   `json:"deadline_days,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// Reply is a task owner's reply under a response.
type Reply struct {
	ID         string `json:"id"`
	ResponseID string `json:"response_id"`
	AuthorID   string `json:"author_id"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
}

// Notification is one entry in the recipient's feed.
type Notification struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates an account and stores the issued token on the client.
func (c *Client) Register(ctx context.Context, email, password, name, role string) (User, error) {
	body := map[string]any{"email": email, "password": password, "name": name}
	if role != "" {
		body["role"] = role
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "auth/register", body, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "auth/login", map[string]any{"email": email, "password": password}, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

// CreateTask posts a task.
func (c *Client) CreateTask(ctx context.Context, categoryID, title string, opts map[string]any) (Task, error) {
	body := map[string]any{"category_id": categoryID, "title": title}
	for k, v := range opts {
		body[k] = v
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

// ListTasks fetches a page of the public task listing.
func (c *Client) ListTasks(ctx context.Context, categoryID string, page int) (TaskPage, error) {
	q := url.Values{}
	if categoryID != "" {
		q.Set("category_id", categoryID)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	endpoint := "tasks"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var resp TaskPage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// CloseTask moves a task to its terminal closed state.
func (c *Client) CloseTask(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(id)+"/close", nil, &resp)
	return resp, err
}

// RespondToTask bids on a task.
func (c *Client) RespondToTask(ctx context.Context, taskID, message string, price *int64) (Response, error) {
	body := map[string]any{"message": message}
	if price != nil {
		body["price"] = *price
	}
	var resp Response
	err := c.do(ctx, http.MethodPost, "tasks/"+url.PathEscape(taskID)+"/responses", body, &resp)
	return resp, err
}

// CreateReply posts the task owner's reply under a response.
func (c *Client) CreateReply(ctx context.Context, responseID, message string) (Reply, error) {
	var resp Reply
	err := c.do(ctx, http.MethodPost, "responses/"+url.PathEscape(responseID)+"/replies", map[string]any{"message": message}, &resp)
	return resp, err
}

// Notifications fetches the caller's notification feed.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	endpoint := "notifications"
	if unreadOnly {
		endpoint += "?unread_only=true"
	}
	var resp []Notification
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MarkNotificationRead flips one notification to read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
