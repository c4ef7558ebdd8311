package models

import "time"

// Like records one user's approval of a post. The composite key makes the
// operation naturally idempotent: liking twice is a single row.
type Like struct {
	PostID    string    `gorm:"primaryKey;size:36" json:"post_id"`
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// View records a single read of a post. UserID is empty for anonymous views.
type View struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    string    `gorm:"size:36;index;not null" json:"post_id"`
	UserID    string    `gorm:"size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
