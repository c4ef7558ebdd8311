package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/utils"
)

// CommentController serves threaded comments and comment likes.
type CommentController struct {
	db *gorm.DB
}

func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// CreateComment adds a comment to a post, optionally as a reply to another
// comment on the same post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID := ctx.Param("id")

	var req struct {
		Content  string  `json:"content" binding:"required"`
		ParentID *string `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, "comment cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	var post models.Post
	if err := c.db.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load post")
		return
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := c.db.Where("id = ?", *req.ParentID).First(&parent).Error; err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40042, "parent comment not found")
			return
		}
		if parent.PostID != postID {
			utils.Error(ctx, http.StatusBadRequest, 40043, "parent comment belongs to another post")
			return
		}
	}

	comment := models.Comment{
		PostID:   postID,
		AuthorID: userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Sugar.Errorw("create comment failed", "post_id", postID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to create comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// ListComments returns every comment on a post, oldest first, with like
// counts. Thread assembly happens client-side via parent_id.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID := ctx.Param("id")

	var comments []models.Comment
	err := c.db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to list comments")
		return
	}

	likeCounts := map[string]int64{}
	if len(comments) > 0 {
		ids := make([]string, 0, len(comments))
		for _, cm := range comments {
			ids = append(ids, cm.ID)
		}
		var rows []struct {
			CommentID string
			N         int64
		}
		err := c.db.Model(&models.CommentLike{}).
			Select("comment_id, COUNT(*) as n").
			Where("comment_id IN ?", ids).
			Group("comment_id").
			Scan(&rows).Error
		if err == nil {
			for _, r := range rows {
				likeCounts[r.CommentID] = r.N
			}
		}
	}

	utils.Success(ctx, gin.H{"comments": comments, "like_counts": likeCounts})
}

// DeleteComment removes a single comment and its likes. The comment author
// and privileged roles may delete; replies stay and keep their parent_id.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	commentID := ctx.Param("commentId")
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "unauthorized")
		return
	}

	var comment models.Comment
	if err := c.db.Where("id = ?", commentID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40405, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load comment")
		return
	}

	if comment.AuthorID != userID {
		var user models.User
		if err := c.db.Where("id = ?", userID).First(&user).Error; err != nil || !user.Role.Privileged() {
			utils.Error(ctx, http.StatusForbidden, 40303, "you can only delete your own comments")
			return
		}
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", commentID).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", commentID).Delete(&models.Comment{}).Error
	})
	if err != nil {
		utils.Sugar.Errorw("delete comment failed", "comment_id", commentID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to delete comment")
		return
	}

	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// LikeComment records the current user's like on a comment.
func (c *CommentController) LikeComment(ctx *gin.Context) {
	commentID := ctx.Param("commentId")
	userID, _ := getUserID(ctx)

	var count int64
	if err := c.db.Model(&models.Comment{}).Where("id = ?", commentID).Count(&count).Error; err != nil || count == 0 {
		utils.Error(ctx, http.StatusNotFound, 40405, "comment not found")
		return
	}

	like := models.CommentLike{CommentID: commentID, UserID: userID, CreatedAt: time.Now()}
	err := c.db.Where(models.CommentLike{CommentID: commentID, UserID: userID}).
		FirstOrCreate(&like).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to like comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "liked"})
}

// UnlikeComment removes the current user's like from a comment.
func (c *CommentController) UnlikeComment(ctx *gin.Context) {
	commentID := ctx.Param("commentId")
	userID, _ := getUserID(ctx)

	err := c.db.Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentLike{}).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50046, "failed to unlike comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "unliked"})
}
