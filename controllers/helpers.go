package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classboard/classboard/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func getUserID(ctx *gin.Context) (string, bool) {
	id := ctx.GetString(middleware.ContextUserIDKey)
	return id, id != ""
}

func parsePagination(pageStr, sizeStr string) (page, pageSize int) {
	page, _ = strconv.Atoi(pageStr)
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(sizeStr)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
