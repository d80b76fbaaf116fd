package models

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User - учётная запись; набор пользователей фиксирован при старте
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	PasswordHash []byte `json:"-"`
}

// Account - исходные данные для заполнения справочника
type Account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     Role
}

// DemoAccounts - демо-пользователи прототипа
var DemoAccounts = []Account{
	{ID: "1", Name: "Admin User", Email: "anc@xyz.com", Password: "abc123", Role: RoleAdmin},
	{ID: "2", Name: "John Doe", Email: "john@xyz.com", Password: "john123", Role: RoleUser},
	{ID: "3", Name: "Jane Smith", Email: "jane@xyz.com", Password: "jane123", Role: RoleUser},
}
