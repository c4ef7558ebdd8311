package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
)

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an already-connected database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "post"}
		}
		return nil, &StoreError{Op: "find post", Cause: err}
	}
	return &post, nil
}

func (s *GormStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, &StoreError{Op: "find user", Cause: err}
	}
	return &user, nil
}

func (s *GormStore) ListCommentIDs(ctx context.Context, postID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, &StoreError{Op: "list comment ids", Cause: err}
	}
	return ids, nil
}

func (s *GormStore) InTransaction(ctx context.Context, fn func(tx DeleteBatch) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormBatch{tx: tx})
	})
	if err == nil {
		return nil
	}
	// Errors raised by the batch itself pass through untouched; anything else
	// came from the driver.
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: "delete transaction", Cause: err}
}

type gormBatch struct {
	tx *gorm.DB
}

func (b *gormBatch) DeletePost(id string) error {
	res := b.tx.Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return &StoreError{Op: "delete post", Cause: res.Error}
	}
	// Zero rows means another delete won the race after our existence check.
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "post"}
	}
	return nil
}

func (b *gormBatch) DeletePostTags(postID string) error {
	if err := b.tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return &StoreError{Op: "delete post tags", Cause: err}
	}
	return nil
}

func (b *gormBatch) DeleteLikes(postID string) error {
	if err := b.tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
		return &StoreError{Op: "delete likes", Cause: err}
	}
	return nil
}

func (b *gormBatch) DeleteViews(postID string) error {
	if err := b.tx.Where("post_id = ?", postID).Delete(&models.View{}).Error; err != nil {
		return &StoreError{Op: "delete views", Cause: err}
	}
	return nil
}

func (b *gormBatch) DeleteComments(postID string) error {
	if err := b.tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return &StoreError{Op: "delete comments", Cause: err}
	}
	return nil
}

func (b *gormBatch) DeleteCommentLikes(commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := b.tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
		return &StoreError{Op: "delete comment likes", Cause: err}
	}
	return nil
}
