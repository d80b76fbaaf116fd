package models

import "time"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// DueDateLayout - формат календарной даты dueDate
const DueDateLayout = "2006-01-02"

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	DueDate     string    `json:"dueDate"`
	Priority    Priority  `json:"priority"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// Stats - счётчики панели администратора
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// EventType - тип сообщения realtime-канала
type EventType string

const (
	EventTaskCreated EventType = "TASK_CREATE"
	EventTaskUpdated EventType = "TASK_UPDATE"
	EventTaskDeleted EventType = "TASK_DELETE"
)

// TaskEvent - уведомление о мутации задачи.
// OwnerID нужен для фильтрации получателей и наружу не уходит.
type TaskEvent struct {
	Type    EventType
	Task    *Task
	TaskID  string
	OwnerID string
}
