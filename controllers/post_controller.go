package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/services"
	"github.com/classboard/classboard/utils"
)

// PostController serves post CRUD. Deletion goes through the cascading
// deletion service; everything else talks to the database directly.
type PostController struct {
	db      *gorm.DB
	deleter *services.Deleter
}

func NewPostController(db *gorm.DB, deleter *services.Deleter) *PostController {
	return &PostController{db: db, deleter: deleter}
}

// CreatePost publishes a new post authored by the current user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title    string   `json:"title" binding:"required,min=1,max=255"`
		Content  string   `json:"content" binding:"required"`
		Category string   `json:"category" binding:"required,category"`
		Tags     []string `json:"tags" binding:"max=10"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.SanitizeStrict(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post := models.Post{
		AuthorID: userID,
		Title:    title,
		Content:  utils.Sanitize(req.Content),
		Category: models.Category(req.Category),
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		return replaceTags(tx, post.ID, req.Tags)
	})
	if err != nil {
		utils.Sugar.Errorw("create post failed", "user_id", userID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"post": post})
}

// ListPosts returns paginated posts with author info, filterable by
// category, tag and author. Unfiltered category pages are cached.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	category := strings.TrimSpace(ctx.Query("category"))
	tag := strings.TrimSpace(ctx.Query("tag"))
	author := strings.TrimSpace(ctx.Query("author"))
	archived := ctx.Query("archived") == "true"

	cacheable := tag == "" && author == "" && !archived
	cacheKey := fmt.Sprintf("cache:posts:list:cat=%s:page=%d:size=%d", category, page, pageSize)
	if cacheable {
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(200, "application/json", b)
			return
		}
	}

	query := p.db.Model(&models.Post{}).
		Preload("Author").
		Preload("Tags").
		Where("archived = ?", archived).
		Order("created_at DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if author != "" {
		query = query.Where("author_id = ?", author)
	}
	if tag != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", tag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count posts")
		return
	}

	var posts []models.Post
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	payload := gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	if cacheable {
		wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
		utils.CacheSetJSON(cacheKey, wrapper, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns one post with author and tags.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	err := p.db.Preload("Author").Preload("Tags").
		Where("id = ?", postID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	var likes int64
	_ = p.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&likes).Error

	utils.Success(ctx, gin.H{"post": post, "likes": likes})
}

// UpdatePost edits title, content, category or tags. Only the author or a
// privileged role may edit.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title    *string  `json:"title" binding:"omitempty,min=1,max=255"`
		Content  *string  `json:"content"`
		Category *string  `json:"category" binding:"omitempty,category"`
		Tags     []string `json:"tags" binding:"max=10"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid request payload")
		return
	}

	post, ok := p.loadPostForWrite(ctx, 50024)
	if !ok {
		return
	}

	if req.Title != nil {
		title := utils.SanitizeStrict(strings.TrimSpace(*req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
			return
		}
		post.Title = title
	}
	if req.Content != nil {
		post.Content = utils.Sanitize(*req.Content)
	}
	if req.Category != nil {
		post.Category = models.Category(*req.Category)
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(post).Error; err != nil {
			return err
		}
		if req.Tags != nil {
			return replaceTags(tx, post.ID, req.Tags)
		}
		return nil
	})
	if err != nil {
		utils.Sugar.Errorw("update post failed", "post_id", post.ID, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to update post")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"post": post})
}

// SetArchived flips the archived flag. Archived posts drop out of the
// default listing but keep all dependent records.
func (p *PostController) SetArchived(archived bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		post, ok := p.loadPostForWrite(ctx, 50026)
		if !ok {
			return
		}

		if err := p.db.Model(post).Update("archived", archived).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
			return
		}

		utils.InvalidateByPrefix("cache:posts:list:")
		utils.Success(ctx, gin.H{"post": post})
	}
}

// DeletePost removes the post and everything referencing it through the
// cascading deletion service.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	if err := p.deleter.DeletePost(ctx.Request.Context(), postID, userID); err != nil {
		utils.ServiceError(ctx, 40030, err)
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// LikePost records the current user's like. Liking twice is a no-op.
func (p *PostController) LikePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	userID, _ := getUserID(ctx)

	if !p.postExists(ctx, postID) {
		return
	}

	like := models.Like{PostID: postID, UserID: userID, CreatedAt: time.Now()}
	err := p.db.Where(models.Like{PostID: postID, UserID: userID}).
		FirstOrCreate(&like).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to like post")
		return
	}
	utils.Success(ctx, gin.H{"message": "liked"})
}

// UnlikePost removes the current user's like if present.
func (p *PostController) UnlikePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	userID, _ := getUserID(ctx)

	err := p.db.Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.Like{}).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to unlike post")
		return
	}
	utils.Success(ctx, gin.H{"message": "unliked"})
}

// ListTags returns all tags with the number of posts carrying each.
func (p *PostController) ListTags(ctx *gin.Context) {
	var rows []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Posts int64  `json:"posts"`
	}
	err := p.db.Model(&models.Tag{}).
		Select("tags.id, tags.name, COUNT(post_tags.post_id) AS posts").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("posts DESC, tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list tags")
		return
	}
	utils.Success(ctx, gin.H{"tags": rows})
}

// loadPostForWrite fetches the post and enforces author-or-privileged
// access, answering the request itself on failure.
func (p *PostController) loadPostForWrite(ctx *gin.Context, loadErrCode int) (*models.Post, bool) {
	postID := ctx.Param("id")

	var post models.Post
	if err := p.db.Where("id = ?", postID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, loadErrCode, "failed to load post")
		return nil, false
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return nil, false
	}

	if post.AuthorID != userID {
		var user models.User
		if err := p.db.Where("id = ?", userID).First(&user).Error; err != nil || !user.Role.Privileged() {
			utils.Error(ctx, http.StatusForbidden, 40302, "you can only modify your own posts")
			return nil, false
		}
	}
	return &post, true
}

func (p *PostController) postExists(ctx *gin.Context, postID string) bool {
	var count int64
	if err := p.db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to load post")
		return false
	}
	if count == 0 {
		utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
		return false
	}
	return true
}

// replaceTags swaps the post's tag set inside the caller's transaction,
// creating missing tags by name. Tag rows are shared and never deleted here.
func replaceTags(tx *gorm.DB, postID string, names []string) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(utils.SanitizeStrict(strings.TrimSpace(raw)))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag := models.Tag{Name: name}
		if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.PostTag{PostID: postID, TagID: tag.ID}).Error; err != nil {
			return err
		}
	}
	return nil
}
