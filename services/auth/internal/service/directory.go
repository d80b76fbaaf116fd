package service

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ahmedafzal2677/exact-sol-task/services/auth/internal/models"
)

// Directory - неизменяемый справочник пользователей
type Directory struct {
	byID    map[string]models.User
	byEmail map[string]models.User
}

// NewDirectory хеширует пароли и строит индексы; cost=0 означает bcrypt.DefaultCost
func NewDirectory(accounts []models.Account, cost int) (*Directory, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	d := &Directory{
		byID:    make(map[string]models.User, len(accounts)),
		byEmail: make(map[string]models.User, len(accounts)),
	}
	for _, a := range accounts {
		if a.Role != models.RoleAdmin && a.Role != models.RoleUser {
			return nil, fmt.Errorf("account %s: unknown role %q", a.ID, a.Role)
		}
		email := normalizeEmail(a.Email)
		if _, dup := d.byID[a.ID]; dup {
			return nil, fmt.Errorf("account %s: duplicate id", a.ID)
		}
		if _, dup := d.byEmail[email]; dup {
			return nil, fmt.Errorf("account %s: duplicate email %s", a.ID, email)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", a.ID, err)
		}
		u := models.User{ID: a.ID, Name: a.Name, Email: email, Role: a.Role, PasswordHash: hash}
		d.byID[u.ID] = u
		d.byEmail[email] = u
	}
	return d, nil
}

func (d *Directory) ByID(id string) (models.User, bool) {
	u, ok := d.byID[id]
	return u, ok
}

// Authenticate сверяет пару email/пароль
func (d *Directory) Authenticate(email, password string) (models.User, bool) {
	u, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return models.User{}, false
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return models.User{}, false
	}
	return u, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
