package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/classboard/classboard/models"
)

// Deleter removes a post together with every record that references it:
// tag links, likes, views, comments and those comments' likes. The whole
// fan-out commits as one transaction; after success nothing in the store
// references the post id or any of its former comment ids.
type Deleter struct {
	store Store
	log   *zap.SugaredLogger
}

// NewDeleter builds a deletion service on the given store.
func NewDeleter(store Store, log *zap.SugaredLogger) *Deleter {
	return &Deleter{store: store, log: log}
}

// DeletePost deletes postID on behalf of actorID.
//
// Preconditions run in order and short-circuit: the post must exist, the
// actor must exist, and the actor must be the author or hold a privileged
// role. On any precondition failure the store is untouched. Deleting an
// already-deleted post reports not-found, which makes a repeated call a
// stable, harmless failure.
func (d *Deleter) DeletePost(ctx context.Context, postID, actorID string) error {
	if postID == "" {
		return &ValidationError{Field: "post_id", Reason: "must not be empty"}
	}
	if actorID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	post, err := d.store.FindPost(ctx, postID)
	if err != nil {
		return err
	}

	actor, err := d.store.FindUser(ctx, actorID)
	if err != nil {
		return err
	}

	if !canDeletePost(actor, post) {
		d.log.Infow("post deletion denied",
			"post_id", postID, "user_id", actorID, "role", actor.Role)
		return ErrPermissionDenied
	}

	// Comment ids have to be read before the batch is assembled: the
	// comment-like cleanup is keyed by comment id, not post id.
	commentIDs, err := d.store.ListCommentIDs(ctx, postID)
	if err != nil {
		return err
	}

	err = d.store.InTransaction(ctx, func(tx DeleteBatch) error {
		if err := tx.DeletePost(postID); err != nil {
			return err
		}
		if err := tx.DeletePostTags(postID); err != nil {
			return err
		}
		if err := tx.DeleteLikes(postID); err != nil {
			return err
		}
		if err := tx.DeleteViews(postID); err != nil {
			return err
		}
		if err := tx.DeleteComments(postID); err != nil {
			return err
		}
		return tx.DeleteCommentLikes(commentIDs)
	})
	if err != nil {
		d.log.Errorw("post deletion failed",
			"post_id", postID, "user_id", actorID, "error", err)
		return err
	}

	d.log.Infow("post deleted",
		"post_id", postID, "user_id", actorID, "comments", len(commentIDs))
	return nil
}

// canDeletePost is the single authorization predicate for post removal:
// the author may delete their own post, privileged roles may delete any.
func canDeletePost(actor *models.User, post *models.Post) bool {
	if actor.Role.Privileged() {
		return true
	}
	return post.AuthorID == actor.ID
}
