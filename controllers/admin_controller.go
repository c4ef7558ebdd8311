package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/services"
	"github.com/classboard/classboard/utils"
)

// AdminController serves the role-restricted admin subtree. Access control
// happens in middleware; handlers assume a privileged caller.
type AdminController struct {
	db      *gorm.DB
	deleter *services.Deleter
}

func NewAdminController(db *gorm.DB, deleter *services.Deleter) *AdminController {
	return &AdminController{db: db, deleter: deleter}
}

// ListUsers returns paginated accounts, filterable by role and username.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	role := strings.TrimSpace(ctx.Query("role"))
	search := strings.TrimSpace(ctx.Query("search"))

	query := a.db.Model(&models.User{}).Order("created_at DESC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if search != "" {
		query = query.Where("username LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to count users")
		return
	}

	var users []models.User
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"items": users,
		"pagination": gin.H{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

// UpdateUserRole changes an account's role. Only admins may grant or revoke
// the admin role itself.
func (a *AdminController) UpdateUserRole(ctx *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required,role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	targetID := ctx.Param("id")
	actorID, _ := getUserID(ctx)

	var actor models.User
	if err := a.db.Where("id = ?", actorID).First(&actor).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40115, "account not found")
		return
	}

	var target models.User
	if err := a.db.Where("id = ?", targetID).First(&target).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40406, "account not found")
		return
	}

	newRole := models.Role(req.Role)
	if (newRole == models.RoleAdmin || target.Role == models.RoleAdmin) && actor.Role != models.RoleAdmin {
		utils.Error(ctx, http.StatusForbidden, 40304, "only admins can change admin roles")
		return
	}

	if err := a.db.Model(&target).Update("role", newRole).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to update role")
		return
	}

	utils.Sugar.Infow("role changed",
		"target_id", targetID, "role", newRole, "actor_id", actorID)
	utils.Success(ctx, gin.H{"user": target})
}

// DeletePost is the admin entry point to the same cascading deletion
// service the regular post route uses.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	userID, _ := getUserID(ctx)

	if err := a.deleter.DeletePost(ctx.Request.Context(), ctx.Param("id"), userID); err != nil {
		utils.ServiceError(ctx, 40051, err)
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	utils.Success(ctx, gin.H{"message": "post deleted"})
}
