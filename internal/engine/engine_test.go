package engine_test

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/kixxpy/markethire/internal/config"
	"github.com/kixxpy/markethire/internal/db"
	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/engine"
	"github.com/kixxpy/markethire/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context

	Seller     domain.User
	Performer  domain.User
	Admin      domain.User
	CategoryID string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	seller := mustRegister(t, ctx, eng, "seller@example.com", "Seller One", domain.RoleSeller)
	performer := mustRegister(t, ctx, eng, "performer@example.com", "Performer One", domain.RolePerformer)
	admin := mustRegister(t, ctx, eng, "admin@example.com", "Admin", domain.RoleAdmin)

	if err := eng.SeedCatalog(ctx, []config.CategorySeed{{Name: "Listing optimization", Slug: "listing-optimization", Tags: []string{"SEO", "Photos"}}}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	cats, err := eng.GetCategories(ctx)
	if err != nil || len(cats) != 1 {
		t.Fatalf("list categories: %v (%d)", err, len(cats))
	}
	return testEnv{Engine: eng, Ctx: ctx, Seller: seller, Performer: performer, Admin: admin, CategoryID: cats[0].ID}
}

func mustRegister(t *testing.T, ctx context.Context, eng engine.Engine, email, name, role string) domain.User {
	t.Helper()
	u, err := eng.Register(ctx, engine.RegisterOptions{Email: email, Password: "s3cret-pass", Name: name, Role: role})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

func (env testEnv) mustCreateTask(t *testing.T, title string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		OwnerID:    env.Seller.ID,
		CategoryID: env.CategoryID,
		Title:      title,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		OwnerID:    env.Seller.ID,
		CategoryID: "nope",
		Title:      "Optimize my listing",
	})
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found for missing category, got %v", err)
	}
	_, err = env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		OwnerID:    env.Seller.ID,
		CategoryID: env.CategoryID,
		Title:      "Optimize my listing",
		TagIDs:     []string{"missing-tag"},
	})
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid for missing tags, got %v", err)
	}
	task := env.mustCreateTask(t, "Optimize my listing")
	if task.Status != domain.TaskOpen || task.ModerationStatus != domain.ModerationPending {
		t.Fatalf("new task should be open+pending, got %s/%s", task.Status, task.ModerationStatus)
	}
}

func TestResponseLifecycle(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Fix my store")

	// owner cannot respond to their own task
	_, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Seller.ID, Message: "me",
	})
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid for own task, got %v", err)
	}

	price := int64(5000)
	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Performer.ID, Message: "I can do this", Price: &price,
	})
	if err != nil {
		t.Fatalf("create response: %v", err)
	}
	if resp.Price == nil || *resp.Price != 5000 {
		t.Fatalf("price not persisted: %+v", resp)
	}

	// second response by the same author
	_, err = env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Performer.ID, Message: "again",
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for duplicate response, got %v", err)
	}

	// negative price rejected
	bad := int64(-5)
	u3 := mustRegister(t, env.Ctx, env.Engine, "third@example.com", "Third", domain.RolePerformer)
	_, err = env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: u3.ID, Message: "cheap", Price: &bad,
	})
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid for negative price, got %v", err)
	}

	// close, then closing again conflicts
	if _, err := env.Engine.CloseTask(env.Ctx, task.ID, env.Seller.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, err = env.Engine.CloseTask(env.Ctx, task.ID, env.Seller.ID)
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on second close, got %v", err)
	}

	// no new responses to a closed task
	_, err = env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: u3.ID, Message: "late",
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for closed task, got %v", err)
	}

	// editing the existing response stays allowed after close
	msg := "updated offer"
	if _, err := env.Engine.UpdateResponse(env.Ctx, resp.ID, env.Performer.ID, engine.ResponsePatch{Message: &msg}); err != nil {
		t.Fatalf("update response after close: %v", err)
	}
}

func TestCloseTaskOwnership(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Moderate reviews")
	_, err := env.Engine.CloseTask(env.Ctx, task.ID, env.Performer.ID)
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner close, got %v", err)
	}
	// admin passes the owner check
	if _, err := env.Engine.CloseTask(env.Ctx, task.ID, env.Admin.ID); err != nil {
		t.Fatalf("admin close: %v", err)
	}
}

func TestReplyRules(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Store setup")
	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Performer.ID, Message: "hi",
	})
	if err != nil {
		t.Fatalf("create response: %v", err)
	}

	if _, err := env.Engine.CreateReply(env.Ctx, resp.ID, env.Seller.ID, "   "); !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid for blank message, got %v", err)
	}
	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := env.Engine.CreateReply(env.Ctx, resp.ID, env.Seller.ID, string(long)); !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid for long message, got %v", err)
	}

	// the response author cannot reply to their own response thread
	if _, err := env.Engine.CreateReply(env.Ctx, resp.ID, env.Performer.ID, "thanks me"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner reply, got %v", err)
	}

	rep, err := env.Engine.CreateReply(env.Ctx, resp.ID, env.Seller.ID, "Thanks")
	if err != nil {
		t.Fatalf("owner reply: %v", err)
	}

	// the reply produced a notification for the response author
	list, err := env.Engine.GetNotifications(env.Ctx, env.Performer.ID, "", false)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	found := false
	for _, n := range list {
		if n.Type == "reply.created" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected reply.created notification, got %+v", list)
	}

	// closed task blocks further replies
	if _, err := env.Engine.CloseTask(env.Ctx, task.ID, env.Seller.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := env.Engine.CreateReply(env.Ctx, resp.ID, env.Seller.ID, "late"); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for closed task reply, got %v", err)
	}

	if err := env.Engine.DeleteReply(env.Ctx, rep.ID, env.Performer.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for stranger delete, got %v", err)
	}
	if err := env.Engine.DeleteReply(env.Ctx, rep.ID, env.Seller.ID); err != nil {
		t.Fatalf("owner delete reply: %v", err)
	}
}

func TestNotificationOwnershipAndCap(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Ad campaign")
	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Performer.ID, Message: "offer",
	})
	if err != nil {
		t.Fatal(err)
	}
	// 55 replies fan out 55 notifications to the performer
	for i := 0; i < 55; i++ {
		if _, err := env.Engine.CreateReply(env.Ctx, resp.ID, env.Seller.ID, "ping"); err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
	}
	list, err := env.Engine.GetNotifications(env.Ctx, env.Performer.ID, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 50 {
		t.Fatalf("expected read cap of 50, got %d", len(list))
	}

	// marking someone else's notification reads as missing
	err = env.Engine.MarkNotificationRead(env.Ctx, list[0].ID, env.Seller.ID)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found for foreign notification, got %v", err)
	}
	if err := env.Engine.MarkNotificationRead(env.Ctx, list[0].ID, env.Performer.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	n, err := env.Engine.GetUnreadNotificationCount(env.Ctx, env.Performer.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 54 {
		t.Fatalf("expected 54 unread, got %d", n)
	}

	// the reply notifications target the performer feed, so the seller
	// feed counts zero and a seller-scoped bulk read flips nothing
	n, err = env.Engine.GetUnreadNotificationCount(env.Ctx, env.Performer.ID, domain.RoleSeller)
	if err != nil || n != 0 {
		t.Fatalf("seller-feed count: n=%d err=%v", n, err)
	}
	affected, err := env.Engine.MarkAllNotificationsRead(env.Ctx, env.Performer.ID, domain.RoleSeller)
	if err != nil || affected != 0 {
		t.Fatalf("seller-feed mark all: affected=%d err=%v", affected, err)
	}

	affected, err = env.Engine.MarkAllNotificationsRead(env.Ctx, env.Performer.ID, domain.RolePerformer)
	if err != nil || affected != 54 {
		t.Fatalf("mark all: affected=%d err=%v", affected, err)
	}
}

func TestReplySurvivesNotificationFailure(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Keyword research")
	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Performer.ID, Message: "offer",
	})
	if err != nil {
		t.Fatal(err)
	}

	// a dispatcher over a dead connection: every notification insert fails
	deadConn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	deadConn.Close()
	broken := env.Engine
	broken.DB = deadConn
	eng := env.Engine
	eng.Effects = engine.NewDispatcher(broken)
	eng.Effects.Logger = log.New(io.Discard, "", 0)

	reply, err := eng.CreateReply(env.Ctx, resp.ID, env.Seller.ID, "still works")
	if err != nil {
		t.Fatalf("reply should survive a failed notification: %v", err)
	}
	replies, err := env.Engine.GetResponseReplies(env.Ctx, resp.ID, env.Seller.ID)
	if err != nil || len(replies) != 1 || replies[0].ID != reply.ID {
		t.Fatalf("reply not persisted: %v (%d)", err, len(replies))
	}
	list, err := env.Engine.GetNotifications(env.Ctx, env.Performer.ID, "", false)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range list {
		if n.Type == "reply.created" {
			t.Fatalf("reply notification should have been dropped, got %+v", n)
		}
	}
}

func TestResponseVisibility(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Review cleanup")
	resp, err := env.Engine.CreateResponse(env.Ctx, engine.ResponseCreateOptions{
		TaskID: task.ID, AuthorID: env.Performer.ID, Message: "offer",
	})
	if err != nil {
		t.Fatal(err)
	}
	stranger := mustRegister(t, env.Ctx, env.Engine, "stranger@example.com", "Stranger", domain.RolePerformer)

	if _, err := env.Engine.GetResponse(env.Ctx, resp.ID, stranger.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	if _, err := env.Engine.GetResponse(env.Ctx, resp.ID, env.Seller.ID); err != nil {
		t.Fatalf("owner view: %v", err)
	}
	if _, err := env.Engine.GetResponse(env.Ctx, resp.ID, env.Performer.ID); err != nil {
		t.Fatalf("author view: %v", err)
	}
	if _, err := env.Engine.GetTaskResponses(env.Ctx, task.ID, stranger.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden listing for stranger, got %v", err)
	}
	items, err := env.Engine.GetTaskResponses(env.Ctx, task.ID, env.Seller.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("owner listing: %v (%d)", err, len(items))
	}
	if items[0].Author.Name != env.Performer.Name {
		t.Fatalf("expected author profile attached, got %+v", items[0].Author)
	}
}

func TestModerationAndListingVisibility(t *testing.T) {
	env := newTestEnv(t)
	task := env.mustCreateTask(t, "Hidden until approved")

	// strangers do not see pending tasks
	page, err := env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{RequesterID: env.Performer.ID})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 0 {
		t.Fatalf("pending task leaked into public listing: %+v", page)
	}
	// the owner sees it via mine=true
	page, err = env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{RequesterID: env.Seller.ID, Mine: true})
	if err != nil || page.Total != 1 {
		t.Fatalf("owner listing: %v total=%d", err, page.Total)
	}

	// non-admin cannot moderate
	_, err = env.Engine.ModerateTask(env.Ctx, task.ID, env.Seller.ID, domain.ModerationApproved, "")
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden moderation, got %v", err)
	}

	moderated, err := env.Engine.ModerateTask(env.Ctx, task.ID, env.Admin.ID, domain.ModerationApproved, "")
	if err != nil || moderated.ModerationStatus != domain.ModerationApproved {
		t.Fatalf("moderate: %v %+v", err, moderated)
	}

	// exactly one history row with the status snapshots
	recs, err := env.Engine.GetTaskModerationHistory(env.Ctx, task.ID, env.Seller.ID)
	if err != nil || len(recs) != 1 {
		t.Fatalf("history: %v (%d)", err, len(recs))
	}
	if recs[0].ChangedBy != env.Admin.ID {
		t.Fatalf("history actor: %+v", recs[0])
	}

	// the owner got the verdict notification
	list, err := env.Engine.GetNotifications(env.Ctx, env.Seller.ID, "", true)
	if err != nil || len(list) == 0 {
		t.Fatalf("expected moderation notification, got %v (%d)", err, len(list))
	}

	// approved task now lists publicly, even anonymously
	page, err = env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{})
	if err != nil || page.Total != 1 {
		t.Fatalf("public listing after approval: %v total=%d", err, page.Total)
	}

	// strangers cannot view history
	if _, err := env.Engine.GetTaskModerationHistory(env.Ctx, task.ID, env.Performer.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden history, got %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Register(env.Ctx, engine.RegisterOptions{
		Email: "seller@example.com", Password: "another-pass", Name: "Dup", Role: domain.RoleSeller,
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
	_, err = env.Engine.Register(env.Ctx, engine.RegisterOptions{
		Email: "weak@example.com", Password: "short", Name: "Weak",
	})
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid for short password, got %v", err)
	}

	u, err := env.Engine.Login(env.Ctx, "seller@example.com", "s3cret-pass")
	if err != nil || u.ID != env.Seller.ID {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.Engine.Login(env.Ctx, "seller@example.com", "wrong"); !domain.IsKind(err, domain.KindUnauthenticated) {
		t.Fatalf("expected unauthenticated for bad password, got %v", err)
	}
	if _, err := env.Engine.Login(env.Ctx, "nobody@example.com", "whatever"); !domain.IsKind(err, domain.KindUnauthenticated) {
		t.Fatalf("expected unauthenticated for unknown email, got %v", err)
	}
}

func TestAdPositions(t *testing.T) {
	env := newTestEnv(t)
	a1, err := env.Engine.CreateAd(env.Ctx, env.Admin.ID, engine.AdCreateOptions{ImageURL: "https://cdn.example.com/a.png", Link: "https://example.com/a"})
	if err != nil {
		t.Fatalf("create ad: %v", err)
	}
	if a1.Position != 0 {
		t.Fatalf("first ad position = %d, want 0", a1.Position)
	}
	a2, err := env.Engine.CreateAd(env.Ctx, env.Admin.ID, engine.AdCreateOptions{ImageURL: "https://cdn.example.com/b.png", Link: "https://example.com/b"})
	if err != nil {
		t.Fatalf("create ad: %v", err)
	}
	if a2.Position != 1 {
		t.Fatalf("second ad position = %d, want 1", a2.Position)
	}

	// non-admin mutations are rejected
	if _, err := env.Engine.CreateAd(env.Ctx, env.Seller.ID, engine.AdCreateOptions{ImageURL: "x", Link: "y"}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	inactive := false
	if _, err := env.Engine.UpdateAd(env.Ctx, a1.ID, env.Admin.ID, engine.AdPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("update ad: %v", err)
	}
	active, err := env.Engine.GetActiveAds(env.Ctx)
	if err != nil || len(active) != 1 || active[0].ID != a2.ID {
		t.Fatalf("active ads: %v %+v", err, active)
	}
	all, err := env.Engine.GetAllAds(env.Ctx, env.Admin.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("all ads: %v (%d)", err, len(all))
	}
	if !all[0].IsActive {
		t.Fatalf("active ads should sort first: %+v", all)
	}

	if err := env.Engine.DeleteAd(env.Ctx, a2.ID, env.Admin.ID); err != nil {
		t.Fatalf("delete ad: %v", err)
	}
	active, _ = env.Engine.GetActiveAds(env.Ctx)
	if len(active) != 0 {
		t.Fatalf("expected no active ads, got %+v", active)
	}
}

func TestTaskListingFiltersAndSort(t *testing.T) {
	env := newTestEnv(t)
	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		task := env.mustCreateTask(t, title)
		if _, err := env.Engine.ModerateTask(env.Ctx, task.ID, env.Admin.ID, domain.ModerationApproved, ""); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}
	page, err := env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{SortKey: "title", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Tasks) != 2 {
		t.Fatalf("total=%d len=%d", page.Total, len(page.Tasks))
	}
	if page.Tasks[0].Title != "Alpha" || page.Tasks[1].Title != "Beta" {
		t.Fatalf("sort order wrong: %+v", page.Tasks)
	}
	page, err = env.Engine.ListTasks(env.Ctx, engine.TaskListOptions{SortKey: "title", Limit: 2, Page: 2})
	if err != nil || len(page.Tasks) != 1 || page.Tasks[0].Title != "Gamma" {
		t.Fatalf("page 2: %v %+v", err, page.Tasks)
	}
}
