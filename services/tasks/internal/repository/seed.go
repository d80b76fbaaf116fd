package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
)

// DemoTasks - стартовый набор задач прототипа (SEED_DEMO=true)
func DemoTasks(now time.Time) []models.Task {
	mk := func(id, title, desc string, st models.Status, due string, p models.Priority, owner string) models.Task {
		return models.Task{
			ID: id, Title: title, Description: desc, Status: st, DueDate: due,
			Priority: p, UserID: owner, CreatedAt: now, UpdatedAt: now,
		}
	}
	return []models.Task{
		mk("1", "Complete Project Documentation", "Write comprehensive documentation for the new feature implementation",
			models.StatusInProgress, "2024-03-30", models.PriorityHigh, "1"),
		mk("2", "Code Review", "Review pull requests for the new authentication system",
			models.StatusTodo, "2024-03-28", models.PriorityMedium, "1"),
		mk("3", "Client Meeting", "Weekly sync with the client team",
			models.StatusCompleted, "2024-03-25", models.PriorityHigh, "2"),
		mk("4", "Design Review", "Review new UI designs for the dashboard",
			models.StatusInProgress, "2024-03-29", models.PriorityMedium, "3"),
	}
}

// Seed добавляет задачи, пропуская уже существующие id; возвращает число вставленных
func Seed(ctx context.Context, repo TaskRepository, tasks []models.Task) (int, error) {
	inserted := 0
	for i := range tasks {
		err := repo.Create(ctx, &tasks[i])
		if errors.Is(err, ErrDuplicateID) {
			continue
		}
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
