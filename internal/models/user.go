package models

import (
	"strings"
	"time"
)

// User is an account known to Wunjo. The password hash never leaves the
// store layer.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail lowercases and trims an email so lookups and uniqueness
// checks agree regardless of how the address was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
