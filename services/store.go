package services

import (
	"context"

	"github.com/classboard/classboard/models"
)

// Store is the narrow persistence surface the deletion service needs.
// Lookups return *NotFoundError when the row does not exist and *StoreError
// for transport problems, so the service never inspects driver errors.
type Store interface {
	FindPost(ctx context.Context, id string) (*models.Post, error)
	FindUser(ctx context.Context, id string) (*models.User, error)

	// ListCommentIDs returns the ids of every comment on the post. The read
	// happens before the delete batch is assembled because comment-like
	// cleanup needs the ids.
	ListCommentIDs(ctx context.Context, postID string) ([]string, error)

	// InTransaction runs fn inside one all-or-nothing unit of work. Any error
	// from fn rolls back every delete issued through the batch.
	InTransaction(ctx context.Context, fn func(tx DeleteBatch) error) error
}

// DeleteBatch is the set of scoped deletes available inside a transaction.
type DeleteBatch interface {
	// DeletePost removes the post row and reports *NotFoundError when the row
	// was already gone, so a lost delete-delete race rolls back instead of
	// committing a second fan-out.
	DeletePost(id string) error
	DeletePostTags(postID string) error
	DeleteLikes(postID string) error
	DeleteViews(postID string) error
	DeleteComments(postID string) error
	DeleteCommentLikes(commentIDs []string) error
}
