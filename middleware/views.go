package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/models"
)

// PostViewRecorder records a view row after a successfully served post
// detail request. Attribution to a user is best-effort; anonymous views are
// stored without one. The insert runs in its own goroutine and its failures
// never affect the response.
func PostViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return postViewRecorder(func(v models.View) {
		_ = db.Create(&v).Error
	})
}

func postViewRecorder(insert func(models.View)) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		postID := c.Param("id")
		if postID == "" {
			return
		}

		userID := ""
		if claims, ok := SessionClaims(c); ok {
			userID = claims.UserID
		}

		go insert(models.View{
			PostID:    postID,
			UserID:    userID,
			CreatedAt: time.Now(),
		})
	}
}
