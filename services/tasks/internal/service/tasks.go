package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/repository"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("task not found")
	ErrInvalidTask      = errors.New("invalid task")
)

// Publisher получает события о мутациях (realtime hub)
type Publisher interface {
	Publish(ev models.TaskEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(models.TaskEvent) {}

// TaskFields - поля новой задачи; пустой UserID означает "вызывающий"
type TaskFields struct {
	Title       string
	Description string
	Status      models.Status
	DueDate     string
	Priority    models.Priority
	UserID      string
}

// TaskService применяет правило владения поверх хранилища.
// Мутации выполняются под mu: проверка владельца и запись не перемежаются с другими операциями.
type TaskService struct {
	mu     sync.Mutex
	repo   repository.TaskRepository
	events Publisher
	logger *logrus.Logger
	newID  func() string
	now    func() time.Time
}

func NewTaskService(repo repository.TaskRepository, events Publisher, logger *logrus.Logger) *TaskService {
	if events == nil {
		events = noopPublisher{}
	}
	return &TaskService{
		repo:   repo,
		events: events,
		logger: logger,
		newID:  func() string { return "t_" + uuid.NewString() },
		now:    time.Now,
	}
}

// List возвращает видимые вызывающему задачи; admin видит все
func (s *TaskService) List(ctx context.Context, sess *models.Session) ([]*models.Task, error) {
	return s.list(ctx, sess, "")
}

// Search - List с фильтром по подстроке заголовка (без учёта регистра)
func (s *TaskService) Search(ctx context.Context, sess *models.Session, query string) ([]*models.Task, error) {
	return s.list(ctx, sess, strings.TrimSpace(query))
}

func (s *TaskService) list(ctx context.Context, sess *models.Session, query string) ([]*models.Task, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	filter := repository.ListFilter{TitleQuery: query}
	if !sess.IsAdmin() {
		filter.OwnerID = sess.UserID
	}
	tasks, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, sess *models.Session, id string) (*models.Task, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, sess, id)
}

// Stats считает задачи по статусам среди видимых вызывающему
func (s *TaskService) Stats(ctx context.Context, sess *models.Session) (models.Stats, error) {
	tasks, err := s.List(ctx, sess)
	if err != nil {
		return models.Stats{}, err
	}
	var st models.Stats
	for _, t := range tasks {
		st.Total++
		switch t.Status {
		case models.StatusTodo:
			st.Todo++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusCompleted:
			st.Completed++
		}
	}
	return st, nil
}

func (s *TaskService) Create(ctx context.Context, sess *models.Session, f TaskFields) (*models.Task, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if f.UserID == "" {
		f.UserID = sess.UserID
	}
	if f.UserID != sess.UserID && !sess.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if f.Status == "" {
		f.Status = models.StatusTodo
	}
	if f.Priority == "" {
		f.Priority = models.PriorityMedium
	}

	now := s.now().UTC()
	task := &models.Task{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Status:      f.Status,
		DueDate:     strings.TrimSpace(f.DueDate),
		Priority:    f.Priority,
		UserID:      f.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(task); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = s.newID()
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.log(ctx, sess, "create").WithField("task_id", task.ID).Info("task created")
	s.publish(models.EventTaskCreated, task)
	return task, nil
}

// Update заменяет запись целиком. Пустой UserID сохраняет владельца; сменить владельца может только admin
func (s *TaskService) Update(ctx context.Context, sess *models.Session, in models.Task) (*models.Task, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadOwned(ctx, sess, in.ID)
	if err != nil {
		return nil, err
	}
	if in.UserID == "" {
		in.UserID = existing.UserID
	}
	if in.UserID != existing.UserID && !sess.IsAdmin() {
		return nil, ErrUnauthorized
	}

	in.Title = strings.TrimSpace(in.Title)
	in.DueDate = strings.TrimSpace(in.DueDate)
	in.CreatedAt = existing.CreatedAt
	in.UpdatedAt = s.now().UTC()
	if err := validate(&in); err != nil {
		return nil, err
	}

	if err := s.save(ctx, &in); err != nil {
		return nil, err
	}
	s.log(ctx, sess, "update").WithField("task_id", in.ID).Info("task updated")
	s.publish(models.EventTaskUpdated, &in)
	return &in, nil
}

// SetStatus меняет только статус задачи
func (s *TaskService) SetStatus(ctx context.Context, sess *models.Session, id string, status models.Status) (*models.Task, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.loadOwned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	task.Status = status
	task.UpdatedAt = s.now().UTC()

	if err := s.save(ctx, task); err != nil {
		return nil, err
	}
	s.log(ctx, sess, "set_status").WithFields(logrus.Fields{
		"task_id": id,
		"status":  status,
	}).Info("task status changed")
	s.publish(models.EventTaskUpdated, task)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, sess *models.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.loadOwned(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.log(ctx, sess, "delete").WithField("task_id", id).Info("task deleted")
	s.events.Publish(models.TaskEvent{Type: models.EventTaskDeleted, TaskID: id, OwnerID: task.UserID})
	return nil
}

// loadOwned читает задачу и проверяет правило владения
func (s *TaskService) loadOwned(ctx context.Context, sess *models.Session, id string) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if !sess.CanAccess(*task) {
		return nil, ErrUnauthorized
	}
	return task, nil
}

func (s *TaskService) save(ctx context.Context, task *models.Task) error {
	err := s.repo.Update(ctx, task)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *TaskService) publish(t models.EventType, task *models.Task) {
	cp := *task
	s.events.Publish(models.TaskEvent{Type: t, Task: &cp, TaskID: cp.ID, OwnerID: cp.UserID})
}

func (s *TaskService) log(ctx context.Context, sess *models.Session, op string) *logrus.Entry {
	return s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"component": "task_service",
		"op":        op,
		"user_id":   sess.UserID,
		"role":      sess.Role,
	})
}

func requireSession(sess *models.Session) error {
	if sess == nil || sess.UserID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func validate(t *models.Task) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(models.DueDateLayout, t.DueDate); err != nil {
			return fmt.Errorf("%w: dueDate must be YYYY-MM-DD", ErrInvalidTask)
		}
	}
	return nil
}
