package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/classboard/classboard/models"
)

// newTestDB opens a per-test in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Tag{}, &models.PostTag{},
		&models.Like{}, &models.View{}, &models.Comment{}, &models.CommentLike{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestListTags(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	author := models.User{Username: "alice", Role: models.RoleStudent}
	if err := db.Create(&author).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	post := models.Post{AuthorID: author.ID, Title: "intro", Content: "hi", Category: models.CategoryNews}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	tagged := models.Tag{Name: "golang"}
	unused := models.Tag{Name: "homework"}
	for _, tag := range []*models.Tag{&tagged, &unused} {
		if err := db.Create(tag).Error; err != nil {
			t.Fatalf("seed tag: %v", err)
		}
	}
	if err := db.Create(&models.PostTag{PostID: post.ID, TagID: tagged.ID}).Error; err != nil {
		t.Fatalf("seed post tag: %v", err)
	}

	r := gin.New()
	r.GET("/tags", NewPostController(db, nil).ListTags)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tags", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Code int `json:"code"`
		Data struct {
			Tags []struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Posts int64  `json:"posts"`
			} `json:"tags"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Code != 0 {
		t.Fatalf("app code = %d, body = %s", body.Code, w.Body.String())
	}
	if len(body.Data.Tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(body.Data.Tags))
	}
	first := body.Data.Tags[0]
	if first.Name != "golang" || first.Posts != 1 {
		t.Errorf("top tag = %+v, want golang with 1 post", first)
	}
	if first.ID != tagged.ID {
		t.Errorf("tag id = %q, want %q", first.ID, tagged.ID)
	}
	if second := body.Data.Tags[1]; second.Name != "homework" || second.Posts != 0 {
		t.Errorf("second tag = %+v, want homework with 0 posts", second)
	}
}
