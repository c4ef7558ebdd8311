package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply to a post. ParentID points at another comment on the
// same post for threaded replies; deleting a post removes every comment by
// post id in one pass rather than walking the thread.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;index;not null" json:"post_id"`
	AuthorID  string    `gorm:"size:36;index;not null" json:"author_id"`
	ParentID  *string   `gorm:"size:36;index" json:"parent_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return nil
}

// CommentLike records one user's approval of a comment.
type CommentLike struct {
	CommentID string    `gorm:"primaryKey;size:36" json:"comment_id"`
	UserID    string    `gorm:"primaryKey;size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
