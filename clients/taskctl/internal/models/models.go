// Package models - клиентские представления ответов API
package models

type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Role  string `json:"role" yaml:"role"`
}

func (u User) IsAdmin() bool { return u.Role == "admin" }

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Status      Status   `json:"status" yaml:"status"`
	DueDate     string   `json:"dueDate" yaml:"dueDate"`
	Priority    Priority `json:"priority" yaml:"priority"`
	UserID      string   `json:"userId" yaml:"userId"`
}

// TaskInput - поля создания; пустые значения заполняет сервер
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      Status   `json:"status,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	UserID      string   `json:"userId,omitempty"`
}

type Stats struct {
	Total      int `json:"total" yaml:"total"`
	Todo       int `json:"todo" yaml:"todo"`
	InProgress int `json:"inProgress" yaml:"inProgress"`
	Completed  int `json:"completed" yaml:"completed"`
}
