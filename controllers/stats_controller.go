package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/utils"
)

// StatsController exposes aggregate counters for the dashboard.
type StatsController struct {
	db *gorm.DB
}

func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns community-wide totals. Individual count failures fall
// back to zero rather than failing the whole endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var users, posts, comments, viewsToday int64

	_ = s.db.Model(&models.User{}).Count(&users).Error
	_ = s.db.Model(&models.Post{}).Count(&posts).Error
	_ = s.db.Model(&models.Comment{}).Count(&comments).Error

	midnight := startOfDay(time.Now())
	_ = s.db.Model(&models.View{}).Where("created_at >= ?", midnight).Count(&viewsToday).Error

	utils.Success(ctx, gin.H{
		"user_count":    users,
		"post_count":    posts,
		"comment_count": comments,
		"views_today":   viewsToday,
	})
}

// startOfDay returns midnight of t's day in t's own location, so the daily
// view counter follows the deployment timezone rather than UTC.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetPostStats returns per-post view, like and comment counts.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	postID := ctx.Param("id")

	var views, likes, comments int64
	_ = s.db.Model(&models.View{}).Where("post_id = ?", postID).Count(&views).Error
	_ = s.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&likes).Error
	_ = s.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&comments).Error

	utils.Success(ctx, gin.H{
		"views":    views,
		"likes":    likes,
		"comments": comments,
	})
}
