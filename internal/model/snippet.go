// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a saved code snippet.
//
// The `json:"..."` struct tags tell encoding/json how to name each field, e.g.
//
//	json.Marshal(Snippet{ID: 7, Name: "sort_list"}) → {"id":7,"name":"sort_list",...}
//
// A snippet belongs to exactly one user (OwnerID). Tags are stored in a separate
// association table; Tags is populated when a snippet is read back by ID.
type Snippet struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"ownerId"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SearchResult is the projection returned by snippet search: just enough for a
// client to render a result list and link to the full snippet.
type SearchResult struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}
