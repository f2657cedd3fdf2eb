// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered user account.
//
// WHY PasswordHash HAS json:"-":
// The "-" tag tells encoding/json to skip the field entirely, so a User can be
// written straight to an HTTP response without leaking the bcrypt hash.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
