package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/utils"
)

func viewRecorderRouter(insert func(models.View), status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/posts/:id", postViewRecorder(insert), func(c *gin.Context) {
		c.String(status, "ok")
	})
	return r
}

func waitForView(t *testing.T, ch <-chan models.View) models.View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("no view recorded")
		return models.View{}
	}
}

func TestPostViewRecorderAnonymous(t *testing.T) {
	ch := make(chan models.View, 1)
	r := viewRecorderRouter(func(v models.View) { ch <- v }, http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/p1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	v := waitForView(t, ch)
	if v.PostID != "p1" {
		t.Errorf("post_id = %q, want %q", v.PostID, "p1")
	}
	if v.UserID != "" {
		t.Errorf("user_id = %q, want anonymous", v.UserID)
	}
}

func TestPostViewRecorderAttributesSession(t *testing.T) {
	t.Setenv("JWT_SECRET", "views-test-secret")
	token, err := utils.GenerateToken("u1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	ch := make(chan models.View, 1)
	r := viewRecorderRouter(func(v models.View) { ch <- v }, http.StatusOK)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/posts/p1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	v := waitForView(t, ch)
	if v.UserID != "u1" {
		t.Errorf("user_id = %q, want %q", v.UserID, "u1")
	}
}

func TestPostViewRecorderSkipsErrorResponses(t *testing.T) {
	ch := make(chan models.View, 1)
	r := viewRecorderRouter(func(v models.View) { ch <- v }, http.StatusNotFound)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/missing", nil))

	select {
	case v := <-ch:
		t.Fatalf("view %+v recorded for a failed response", v)
	case <-time.After(100 * time.Millisecond):
	}
}
