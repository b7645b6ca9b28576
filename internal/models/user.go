package models

import "time"

type User struct {
	ID           int32     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         RoleType  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type RoleType string

const (
	RolePSP RoleType = "psp"
	RoleDev RoleType = "dev"
)
