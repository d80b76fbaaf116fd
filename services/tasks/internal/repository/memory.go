package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
)

// MemoryTaskRepository хранит задачи в памяти процесса в порядке создания
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	order []string
	tasks map[string]models.Task
}

func NewMemoryTaskRepository(seed ...models.Task) *MemoryTaskRepository {
	r := &MemoryTaskRepository{tasks: make(map[string]models.Task, len(seed))}
	for _, t := range seed {
		r.order = append(r.order, t.ID)
		r.tasks[t.ID] = t
	}
	return r
}

func (r *MemoryTaskRepository) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return ErrDuplicateID
	}
	r.order = append(r.order, task.ID)
	r.tasks[task.ID] = *task
	return nil
}

func (r *MemoryTaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *MemoryTaskRepository) List(_ context.Context, filter ListFilter) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(filter.TitleQuery)
	out := make([]*models.Task, 0, len(r.order))
	for _, id := range r.order {
		t := r.tasks[id]
		if filter.OwnerID != "" && t.UserID != filter.OwnerID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Title), q) {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return ErrNotFound
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(r.tasks, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
