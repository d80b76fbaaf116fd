package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/repository"
	"github.com/ahmedafzal2677/exact-sol-task/shared/logger"
)

var (
	admin = &models.Session{UserID: "1", Role: models.RoleAdmin}
	john  = &models.Session{UserID: "2", Role: "user"}
	jane  = &models.Session{UserID: "3", Role: "user"}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TaskEvent
}

func (p *recordingPublisher) Publish(ev models.TaskEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func seedTasks() []models.Task {
	now := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	var out []models.Task
	for i, owner := range []string{"1", "2", "3"} {
		out = append(out, models.Task{
			ID:        fmt.Sprintf("task-%d", i+1),
			Title:     "Task " + owner,
			Status:    models.StatusTodo,
			Priority:  models.PriorityMedium,
			UserID:    owner,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}

func newService(t *testing.T) (*TaskService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewTaskService(repository.NewMemoryTaskRepository(seedTasks()...), pub, logger.Discard())
	return svc, pub
}

func ids(tasks []*models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestList_OwnershipFilter(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		sess *models.Session
		want []string
	}{
		{admin, []string{"task-1", "task-2", "task-3"}},
		{john, []string{"task-2"}},
		{jane, []string{"task-3"}},
		{&models.Session{UserID: "42", Role: "user"}, []string{}},
	}
	for _, tt := range tests {
		got, err := svc.List(ctx, tt.sess)
		if err != nil {
			t.Fatal(err)
		}
		if fmt.Sprint(ids(got)) != fmt.Sprint(tt.want) {
			t.Fatalf("user %s: got %v want %v", tt.sess.UserID, ids(got), tt.want)
		}
	}
}

func TestList_RequiresSession(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.List(context.Background(), nil); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestCreate_AssignsFreshIDAndDefaults(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, john, TaskFields{Title: "  Buy milk ", DueDate: "2026-03-01"})
	if err != nil {
		t.Fatal(err)
	}
	if task.UserID != "2" || task.Status != models.StatusTodo || task.Priority != models.PriorityMedium {
		t.Fatalf("task=%+v", task)
	}
	if task.Title != "Buy milk" {
		t.Fatalf("title=%q", task.Title)
	}

	list, _ := svc.List(ctx, john)
	seen := map[string]bool{}
	for _, tk := range list {
		if seen[tk.ID] {
			t.Fatalf("duplicate id %s", tk.ID)
		}
		seen[tk.ID] = true
	}
	if !seen[task.ID] || len(list) != 2 {
		t.Fatalf("list=%v", ids(list))
	}

	if len(pub.events) != 1 || pub.events[0].Type != models.EventTaskCreated || pub.events[0].Task.ID != task.ID {
		t.Fatalf("events=%+v", pub.events)
	}
}

func TestCreate_ForeignOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, john, TaskFields{Title: "x", UserID: "3"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	task, err := svc.Create(ctx, admin, TaskFields{Title: "x", UserID: "3"})
	if err != nil {
		t.Fatalf("admin create for other user: %v", err)
	}
	if task.UserID != "3" {
		t.Fatalf("owner=%s", task.UserID)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	bad := []TaskFields{
		{Title: ""},
		{Title: "x", Status: "done"},
		{Title: "x", Priority: "urgent"},
		{Title: "x", DueDate: "30/03/2024"},
	}
	for _, f := range bad {
		if _, err := svc.Create(ctx, john, f); !errors.Is(err, ErrInvalidTask) {
			t.Fatalf("%+v: expected ErrInvalidTask, got %v", f, err)
		}
	}
}

func TestMutations_ForeignTaskUnauthorizedAndUnchanged(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	before, _ := svc.List(ctx, admin)

	_, err := svc.Update(ctx, jane, models.Task{ID: "task-2", Title: "hijack", Status: models.StatusTodo, Priority: models.PriorityLow})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("update: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, jane, "task-2", models.StatusCompleted); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("setStatus: expected ErrUnauthorized, got %v", err)
	}
	if err := svc.Delete(ctx, jane, "task-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("delete: expected ErrUnauthorized, got %v", err)
	}

	after, _ := svc.List(ctx, admin)
	if len(before) != len(after) {
		t.Fatalf("collection changed: %v -> %v", ids(before), ids(after))
	}
	for i := range before {
		if *before[i] != *after[i] {
			t.Fatalf("task changed: %+v -> %+v", before[i], after[i])
		}
	}
	if len(pub.events) != 0 {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
}

func TestMutations_NotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, admin, models.Task{ID: "nope", Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, admin, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.SetStatus(ctx, admin, "nope", models.StatusTodo); !errors.Is(err, ErrNotFound) {
		t.Fatalf("setStatus: expected ErrNotFound, got %v", err)
	}
}

func TestSetStatus_AdminVersusOtherUser(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	task, err := svc.SetStatus(ctx, admin, "task-2", models.StatusCompleted)
	if err != nil {
		t.Fatalf("admin setStatus: %v", err)
	}
	if task.Status != models.StatusCompleted || task.Title != "Task 2" {
		t.Fatalf("task=%+v", task)
	}

	list, _ := svc.List(ctx, admin)
	for _, tk := range list {
		if tk.ID == "task-2" && tk.Status != models.StatusCompleted {
			t.Fatalf("status not persisted: %s", tk.Status)
		}
	}

	if _, err := svc.SetStatus(ctx, jane, "task-2", models.StatusTodo); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != models.EventTaskUpdated {
		t.Fatalf("events=%+v", pub.events)
	}
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.SetStatus(context.Background(), admin, "task-1", "archived"); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
}

func TestUpdate_FullReplaceKeepsOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	got, err := svc.Update(ctx, john, models.Task{
		ID: "task-2", Title: "Renamed", Description: "new", Status: models.StatusInProgress,
		DueDate: "2026-04-01", Priority: models.PriorityHigh,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "2" || got.Title != "Renamed" || got.Priority != models.PriorityHigh {
		t.Fatalf("got=%+v", got)
	}

	if _, err := svc.Update(ctx, john, models.Task{ID: "task-2", Title: "x", Status: models.StatusTodo, Priority: models.PriorityLow, UserID: "3"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("reassign by owner: expected ErrUnauthorized, got %v", err)
	}

	moved, err := svc.Update(ctx, admin, models.Task{ID: "task-2", Title: "x", Status: models.StatusTodo, Priority: models.PriorityLow, UserID: "3"})
	if err != nil {
		t.Fatalf("admin reassign: %v", err)
	}
	if moved.UserID != "3" {
		t.Fatalf("owner=%s", moved.UserID)
	}
}

func TestDelete_PublishesOwner(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, john, "task-2"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, admin, "task-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events=%+v", pub.events)
	}
	ev := pub.events[0]
	if ev.Type != models.EventTaskDeleted || ev.TaskID != "task-2" || ev.OwnerID != "2" || ev.Task != nil {
		t.Fatalf("event=%+v", ev)
	}
}

func TestStatsAndSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SetStatus(ctx, admin, "task-1", models.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetStatus(ctx, admin, "task-3", models.StatusInProgress); err != nil {
		t.Fatal(err)
	}

	st, err := svc.Stats(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if st != (models.Stats{Total: 3, Todo: 1, InProgress: 1, Completed: 1}) {
		t.Fatalf("stats=%+v", st)
	}

	st, _ = svc.Stats(ctx, john)
	if st.Total != 1 || st.Todo != 1 {
		t.Fatalf("john stats=%+v", st)
	}

	found, err := svc.Search(ctx, jane, "task")
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(ids(found)) != "[task-3]" {
		t.Fatalf("search=%v", ids(found))
	}
}

func TestSetStatus_ConcurrentCallsSerialize(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	statuses := []models.Status{models.StatusTodo, models.StatusInProgress, models.StatusCompleted}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(st models.Status) {
			defer wg.Done()
			if _, err := svc.SetStatus(ctx, john, "task-2", st); err != nil {
				t.Errorf("setStatus: %v", err)
			}
		}(statuses[i%3])
	}
	wg.Wait()

	if len(pub.events) != 30 {
		t.Fatalf("events=%d", len(pub.events))
	}
	last := pub.events[len(pub.events)-1].Task.Status
	got, err := svc.Get(ctx, john, "task-2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != last {
		t.Fatalf("stored=%s last published=%s", got.Status, last)
	}
}
