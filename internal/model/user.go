// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Role values stored on a user record and embedded in session tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// WHY json:"-" ON PasswordHash?
// The struct tag `json:"-"` tells encoding/json to NEVER serialize this field.
// That single tag is what guarantees the bcrypt hash can't leak into an API
// response, no matter which handler encodes the struct. Handlers don't have
// to remember to strip it — the type does it for them.
//
// WHY ID int64?
// IDs come from SQLite's INTEGER PRIMARY KEY (the rowid), which is a 64-bit
// integer. Using int64 end-to-end avoids conversions and overflow.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`                // bcrypt hash — never serialized
	Avatar       string    `json:"avatar,omitempty"` // relative path, e.g. "Images/abc123.png"
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
