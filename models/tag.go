package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag is a free-form label. Tags are shared across posts and survive the
// deletion of every post that carries them; only the join rows go away.
type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:64;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	return nil
}

// PostTag is the post/tag join row. Declared explicitly so the cascade can
// address the table directly instead of going through association helpers.
type PostTag struct {
	PostID string `gorm:"primaryKey;size:36" json:"post_id"`
	TagID  string `gorm:"primaryKey;size:36" json:"tag_id"`
}

// TableName keeps the join table shared with the Post.Tags association.
func (PostTag) TableName() string { return "post_tags" }
