package models

import "time"

// Note is a user-owned note. AuthorID is immutable after creation; a delete
// only flips IsDeleted and stamps DeletedAt, the row itself persists.
type Note struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	AuthorID  string     `json:"author"`
	Images    []string   `json:"images"`
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
