package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category classifies a post. The set is closed.
type Category string

const (
	CategoryNews         Category = "news"
	CategoryMaterials    Category = "materials"
	CategoryProjectIdeas Category = "project-ideas"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryNews, CategoryMaterials, CategoryProjectIdeas:
		return true
	}
	return false
}

// Post is an article published by a user. AuthorID must always resolve to a
// User row; posts never change author.
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string    `gorm:"size:36;index;not null" json:"author_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Category  Category  `gorm:"size:32;not null" json:"category"`
	Archived  bool      `gorm:"default:false" json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Tags      []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"-"`
}

// BeforeCreate assigns the id and creation timestamps.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return nil
}

// BeforeUpdate refreshes the UpdatedAt timestamp.
func (p *Post) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}
