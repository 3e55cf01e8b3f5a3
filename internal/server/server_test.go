package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/kixxpy/markethire/internal/config"
	"github.com/kixxpy/markethire/internal/db"
	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
	"github.com/kixxpy/markethire/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	if err := e.SeedCatalog(context.Background(), cfg.Catalog.Categories); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{JWTSecret: testSecret, TokenTTLMinutes: 60}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func registerUser(t *testing.T, srv *testServer, email, name, role string) (string, domain.User) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/register", map[string]any{
		"email":    email,
		"password": "s3cret-pass",
		"name":     name,
		"role":     role,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, res.StatusCode, string(data))
	}
	var auth AuthResponse
	if err := json.Unmarshal(data, &auth); err != nil {
		t.Fatalf("unmarshal auth: %v", err)
	}
	return auth.Token, auth.User
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func firstCategoryID(t *testing.T, srv *testServer) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/categories", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("categories: %d %s", res.StatusCode, string(data))
	}
	var cats []domain.Category
	if err := json.Unmarshal(data, &cats); err != nil || len(cats) == 0 {
		t.Fatalf("unmarshal categories: %v (%d)", err, len(cats))
	}
	return cats[0].ID
}

func TestTaskResponseReplyFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	sellerToken, _ := registerUser(t, srv, "seller@example.com", "Seller", "seller")
	performerToken, _ := registerUser(t, srv, "performer@example.com", "Performer", "performer")
	catID := firstCategoryID(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"category_id": catID,
		"title":       "Optimize listing",
		"budget":      5000,
	}, bearer(sellerToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	// creating a task requires auth
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"category_id": catID,
		"title":       "anon",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous create, got %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/responses", map[string]any{
		"message": "I can do this",
		"price":   4500,
	}, bearer(performerToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create response: %d %s", res.StatusCode, string(data))
	}
	var resp domain.Response
	_ = json.Unmarshal(data, &resp)

	// duplicate response maps to 409
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/responses", map[string]any{
		"message": "again",
	}, bearer(performerToken))
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d %s", res.StatusCode, string(data))
	}

	// performer cannot list the task's responses
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+task.ID+"/responses", nil, bearer(performerToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 listing responses, got %d %s", res.StatusCode, string(data))
	}

	// only the owner may reply
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/responses/"+resp.ID+"/replies", map[string]any{
		"message": "Thanks",
	}, bearer(performerToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for performer reply, got %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/responses/"+resp.ID+"/replies", map[string]any{
		"message": "Thanks",
	}, bearer(sellerToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("owner reply: %d %s", res.StatusCode, string(data))
	}

	// the performer's feed picked up the reply notification
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/notifications", nil, bearer(performerToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("notifications: %d %s", res.StatusCode, string(data))
	}
	var feed []domain.Notification
	_ = json.Unmarshal(data, &feed)
	if len(feed) == 0 || feed[0].Type != "reply.created" {
		t.Fatalf("expected reply notification, got %s", string(data))
	}

	// the unread count honors the role feed filter
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/notifications/unread-count?role=performer", nil, bearer(performerToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unread count: %d %s", res.StatusCode, string(data))
	}
	var count CountResponse
	_ = json.Unmarshal(data, &count)
	if count.Count == 0 {
		t.Fatalf("expected unread performer notifications: %s", string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/notifications/unread-count?role=seller", nil, bearer(performerToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unread count: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &count)
	if count.Count != 0 {
		t.Fatalf("seller feed should be empty for the performer: %s", string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/notifications/read-all?role=performer", nil, bearer(performerToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("read-all: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &count)
	if count.Count == 0 {
		t.Fatalf("expected read-all to flip the performer feed: %s", string(data))
	}

	// close the task, then closing again maps to 409
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/close", nil, bearer(sellerToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("close: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks/"+task.ID+"/close", nil, bearer(sellerToken))
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second close, got %d %s", res.StatusCode, string(data))
	}
}

func TestListingVisibilityOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	sellerToken, _ := registerUser(t, srv, "seller@example.com", "Seller", "seller")
	catID := firstCategoryID(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"category_id": catID,
		"title":       "Pending task",
	}, bearer(sellerToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	_ = json.Unmarshal(data, &task)

	// anonymous listing hides the pending task
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("anonymous list: %d %s", res.StatusCode, string(data))
	}
	var page TaskListResponse
	_ = json.Unmarshal(data, &page)
	if page.Total != 0 {
		t.Fatalf("pending task leaked: %s", string(data))
	}

	// owner sees it with mine=true
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks?mine=true", nil, bearer(sellerToken))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("mine list: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &page)
	if page.Total != 1 {
		t.Fatalf("owner should see own pending task: %s", string(data))
	}

	// anonymous single read of a pending task is a 404
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+task.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for pending task, got %d %s", res.StatusCode, string(data))
	}

	// approve directly through the engine, then it is public
	admin, err := srv.Engine.Register(context.Background(), engine.RegisterOptions{
		Email: "admin@example.com", Password: "s3cret-pass", Name: "Admin", Role: domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	if _, err := srv.Engine.ModerateTask(context.Background(), task.ID, admin.ID, domain.ModerationApproved, ""); err != nil {
		t.Fatalf("moderate: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/"+task.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approved task read: %d %s", res.StatusCode, string(data))
	}
}

func TestLoginAndBadCredentials(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	registerUser(t, srv, "user@example.com", "User", "performer")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email":    "user@example.com",
		"password": "s3cret-pass",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", res.StatusCode, string(data))
	}
	var auth AuthResponse
	if err := json.Unmarshal(data, &auth); err != nil || auth.Token == "" {
		t.Fatalf("expected token: %v %s", err, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email":    "user@example.com",
		"password": "wrong",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(data))
	}

	// a garbage bearer token is rejected even on public paths
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks", nil, bearer("garbage"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d %s", res.StatusCode, string(data))
	}

	// /me round-trips the authenticated account
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, bearer(auth.Token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me: %d %s", res.StatusCode, string(data))
	}
	var me domain.User
	_ = json.Unmarshal(data, &me)
	if me.Email != "user@example.com" {
		t.Fatalf("unexpected account: %s", string(data))
	}
}

func TestAdsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	adminToken, _ := registerUser(t, srv, "admin@example.com", "Admin", "performer")
	// promote through the engine; registration never grants admin
	admin, err := srv.Engine.Login(context.Background(), "admin@example.com", "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	admin.Role = domain.RoleAdmin
	if err := srv.Engine.Repo.UpdateUser(context.Background(), admin); err != nil {
		t.Fatal(err)
	}
	// re-login so the token carries the admin role claim
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email": "admin@example.com", "password": "s3cret-pass",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin login: %d %s", res.StatusCode, string(data))
	}
	var auth AuthResponse
	_ = json.Unmarshal(data, &auth)
	adminToken = auth.Token

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/ads", map[string]any{
		"image_url": "https://cdn.example.com/banner.png",
		"link":      "https://example.com",
	}, bearer(adminToken))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create ad: %d %s", res.StatusCode, string(data))
	}
	var ad domain.Ad
	_ = json.Unmarshal(data, &ad)
	if ad.Position != 0 {
		t.Fatalf("first ad position = %d, want 0", ad.Position)
	}

	// active ads are public
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/ads", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("public ads: %d %s", res.StatusCode, string(data))
	}
	var ads []domain.Ad
	_ = json.Unmarshal(data, &ads)
	if len(ads) != 1 {
		t.Fatalf("expected one ad: %s", string(data))
	}

	// non-admin mutation is 403
	userToken, _ := registerUser(t, srv, "user@example.com", "User", "seller")
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/ads", map[string]any{
		"image_url": "x", "link": "y",
	}, bearer(userToken))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", res.StatusCode, string(data))
	}
}
