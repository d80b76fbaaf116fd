package models

const RoleAdmin = "admin"

// Session - проверенная личность вызывающего
type Session struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// CanAccess реализует правило владения: владелец или admin
func (s *Session) CanAccess(t Task) bool {
	return s != nil && (s.IsAdmin() || t.UserID == s.UserID)
}
