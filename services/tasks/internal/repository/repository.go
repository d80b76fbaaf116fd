package repository

import (
	"context"
	"errors"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
)

var (
	ErrNotFound    = errors.New("task not found")
	ErrDuplicateID = errors.New("task id already exists")
)

// ListFilter ограничивает выборку; пустые поля не фильтруют
type ListFilter struct {
	OwnerID    string
	TitleQuery string
}

// TaskRepository - хранилище задач без правил доступа (их проверяет сервис)
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}
