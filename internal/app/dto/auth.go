package dto

import "pgnest/internal/domain/user"

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
	IsOwner  bool   `json:"isOwner,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Phone string   `json:"phone,omitempty"`
	Roles []string `json:"roles"`
}

func FromUser(u *user.User) User {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, string(role))
	}
	return User{
		ID:    string(u.ID),
		Email: u.Email,
		Name:  u.Name,
		Phone: u.Phone,
		Roles: roles,
	}
}
