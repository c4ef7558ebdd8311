package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/classboard/classboard/models"
)

// memStore is an in-memory Store with copy-on-write transactions: the batch
// mutates a staged copy that replaces the live state only on commit.
type memStore struct {
	posts        map[string]models.Post
	users        map[string]models.User
	postTags     []models.PostTag
	likes        []models.Like
	views        []models.View
	comments     map[string]models.Comment
	commentLikes []models.CommentLike

	failOp string // batch method name that should fail, "" for none
}

func newMemStore() *memStore {
	return &memStore{
		posts:    map[string]models.Post{},
		users:    map[string]models.User{},
		comments: map[string]models.Comment{},
	}
}

func (s *memStore) FindPost(ctx context.Context, id string) (*models.Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, &NotFoundError{Resource: "post"}
	}
	return &p, nil
}

func (s *memStore) FindUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, &NotFoundError{Resource: "user"}
	}
	return &u, nil
}

func (s *memStore) ListCommentIDs(ctx context.Context, postID string) ([]string, error) {
	var ids []string
	for id, c := range s.comments {
		if c.PostID == postID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *memStore) InTransaction(ctx context.Context, fn func(tx DeleteBatch) error) error {
	staged := s.snapshot()
	if err := fn(&memBatch{store: staged, failOp: s.failOp}); err != nil {
		return err
	}
	*s = *staged
	return nil
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	cp.failOp = s.failOp
	for k, v := range s.posts {
		cp.posts[k] = v
	}
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.comments {
		cp.comments[k] = v
	}
	cp.postTags = append(cp.postTags, s.postTags...)
	cp.likes = append(cp.likes, s.likes...)
	cp.views = append(cp.views, s.views...)
	cp.commentLikes = append(cp.commentLikes, s.commentLikes...)
	return cp
}

type memBatch struct {
	store  *memStore
	failOp string
}

func (b *memBatch) fail(op string) error {
	if b.failOp == op {
		return &StoreError{Op: op, Cause: errors.New("simulated failure")}
	}
	return nil
}

func (b *memBatch) DeletePost(id string) error {
	if err := b.fail("post"); err != nil {
		return err
	}
	if _, ok := b.store.posts[id]; !ok {
		return &NotFoundError{Resource: "post"}
	}
	delete(b.store.posts, id)
	return nil
}

func (b *memBatch) DeletePostTags(postID string) error {
	if err := b.fail("post_tags"); err != nil {
		return err
	}
	kept := b.store.postTags[:0]
	for _, pt := range b.store.postTags {
		if pt.PostID != postID {
			kept = append(kept, pt)
		}
	}
	b.store.postTags = kept
	return nil
}

func (b *memBatch) DeleteLikes(postID string) error {
	if err := b.fail("likes"); err != nil {
		return err
	}
	kept := b.store.likes[:0]
	for _, l := range b.store.likes {
		if l.PostID != postID {
			kept = append(kept, l)
		}
	}
	b.store.likes = kept
	return nil
}

func (b *memBatch) DeleteViews(postID string) error {
	if err := b.fail("views"); err != nil {
		return err
	}
	kept := b.store.views[:0]
	for _, v := range b.store.views {
		if v.PostID != postID {
			kept = append(kept, v)
		}
	}
	b.store.views = kept
	return nil
}

func (b *memBatch) DeleteComments(postID string) error {
	if err := b.fail("comments"); err != nil {
		return err
	}
	for id, c := range b.store.comments {
		if c.PostID == postID {
			delete(b.store.comments, id)
		}
	}
	return nil
}

func (b *memBatch) DeleteCommentLikes(commentIDs []string) error {
	if err := b.fail("comment_likes"); err != nil {
		return err
	}
	member := map[string]bool{}
	for _, id := range commentIDs {
		member[id] = true
	}
	kept := b.store.commentLikes[:0]
	for _, cl := range b.store.commentLikes {
		if !member[cl.CommentID] {
			kept = append(kept, cl)
		}
	}
	b.store.commentLikes = kept
	return nil
}

func testDeleter(store Store) *Deleter {
	return NewDeleter(store, zap.NewNop().Sugar())
}

// seedScenario builds post P1 by student U1 with 2 tag links, 3 likes,
// 1 view, 2 comments (C1 with one like), plus student U2 and admin U3.
func seedScenario() *memStore {
	s := newMemStore()
	s.users["U1"] = models.User{ID: "U1", Role: models.RoleStudent}
	s.users["U2"] = models.User{ID: "U2", Role: models.RoleStudent}
	s.users["U3"] = models.User{ID: "U3", Role: models.RoleAdmin}
	s.posts["P1"] = models.Post{ID: "P1", AuthorID: "U1", Category: models.CategoryNews}
	s.postTags = []models.PostTag{{PostID: "P1", TagID: "T1"}, {PostID: "P1", TagID: "T2"}}
	s.likes = []models.Like{
		{PostID: "P1", UserID: "U1"},
		{PostID: "P1", UserID: "U2"},
		{PostID: "P1", UserID: "U3"},
	}
	s.views = []models.View{{PostID: "P1", UserID: "U2"}}
	s.comments["C1"] = models.Comment{ID: "C1", PostID: "P1", AuthorID: "U2"}
	s.comments["C2"] = models.Comment{ID: "C2", PostID: "P1", AuthorID: "U1"}
	s.commentLikes = []models.CommentLike{{CommentID: "C1", UserID: "U1"}}
	return s
}

func (s *memStore) dependentCount(postID string, commentIDs ...string) int {
	n := 0
	for _, pt := range s.postTags {
		if pt.PostID == postID {
			n++
		}
	}
	for _, l := range s.likes {
		if l.PostID == postID {
			n++
		}
	}
	for _, v := range s.views {
		if v.PostID == postID {
			n++
		}
	}
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	for _, cl := range s.commentLikes {
		for _, id := range commentIDs {
			if cl.CommentID == id {
				n++
			}
		}
	}
	return n
}

func TestDeletePost_Validation(t *testing.T) {
	d := testDeleter(seedScenario())

	if err := d.DeletePost(context.Background(), "", "U1"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty post id: got %v, want ErrInvalidInput", err)
	}
	if err := d.DeletePost(context.Background(), "P1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty user id: got %v, want ErrInvalidInput", err)
	}
}

func TestDeletePost_MissingPost(t *testing.T) {
	d := testDeleter(seedScenario())

	err := d.DeletePost(context.Background(), "nope", "U1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "post" {
		t.Errorf("got resource %v, want post", err)
	}
}

func TestDeletePost_MissingActor(t *testing.T) {
	d := testDeleter(seedScenario())

	err := d.DeletePost(context.Background(), "P1", "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "user" {
		t.Errorf("got resource %v, want user", err)
	}
}

func TestDeletePost_Authorization(t *testing.T) {
	cases := []struct {
		name    string
		actor   string
		role    models.Role
		author  bool
		allowed bool
	}{
		{"author student", "U1", models.RoleStudent, true, true},
		{"other student", "U2", models.RoleStudent, false, false},
		{"teacher not author", "U4", models.RoleTeacher, false, true},
		{"admin not author", "U3", models.RoleAdmin, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := seedScenario()
			store.users["U4"] = models.User{ID: "U4", Role: models.RoleTeacher}
			d := testDeleter(store)

			err := d.DeletePost(context.Background(), "P1", tc.actor)
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrPermissionDenied) {
				t.Fatalf("got %v, want ErrPermissionDenied", err)
			}
			// Denied calls must leave everything in place.
			if _, ok := store.posts["P1"]; !ok {
				t.Error("post removed on denied call")
			}
			if got := store.dependentCount("P1", "C1", "C2"); got != 9 {
				t.Errorf("dependent records = %d, want 9", got)
			}
		})
	}
}

func TestDeletePost_CascadeCompleteness(t *testing.T) {
	store := seedScenario()
	d := testDeleter(store)

	if err := d.DeletePost(context.Background(), "P1", "U3"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok := store.posts["P1"]; ok {
		t.Error("post still present")
	}
	if got := store.dependentCount("P1", "C1", "C2"); got != 0 {
		t.Errorf("dependent records remaining = %d, want 0", got)
	}
	// Unrelated accounts survive.
	if len(store.users) != 3 {
		t.Errorf("user count = %d, want 3", len(store.users))
	}
}

func TestDeletePost_IdempotentRejection(t *testing.T) {
	store := seedScenario()
	d := testDeleter(store)

	if err := d.DeletePost(context.Background(), "P1", "U1"); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	if err := d.DeletePost(context.Background(), "P1", "U1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestDeletePost_AllOrNothingOnFailure(t *testing.T) {
	for _, failOp := range []string{"post", "post_tags", "likes", "views", "comments", "comment_likes"} {
		t.Run(failOp, func(t *testing.T) {
			store := seedScenario()
			store.failOp = failOp
			d := testDeleter(store)

			err := d.DeletePost(context.Background(), "P1", "U1")
			if !errors.Is(err, ErrStore) {
				t.Fatalf("got %v, want ErrStore", err)
			}
			if _, ok := store.posts["P1"]; !ok {
				t.Error("post removed despite failed transaction")
			}
			if got := store.dependentCount("P1", "C1", "C2"); got != 9 {
				t.Errorf("dependent records = %d, want 9", got)
			}
		})
	}
}

// vanishingStore makes the post disappear between the precondition read and
// the transaction, modelling a concurrent delete that commits first.
type vanishingStore struct {
	*memStore
}

func (s *vanishingStore) InTransaction(ctx context.Context, fn func(tx DeleteBatch) error) error {
	delete(s.memStore.posts, "P1")
	return s.memStore.InTransaction(ctx, fn)
}

func TestDeletePost_RaceLosesToCommittedDelete(t *testing.T) {
	// A call that passed the existence check before a concurrent delete
	// committed hits the delete-if-still-exists guard and reports not-found
	// instead of running a second fan-out.
	store := &vanishingStore{memStore: seedScenario()}
	d := testDeleter(store)

	err := d.DeletePost(context.Background(), "P1", "U1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	// The loser's transaction must not have removed the dependents; the
	// winner owns that fan-out.
	if got := store.dependentCount("P1", "C1", "C2"); got != 9 {
		t.Errorf("dependent records = %d, want 9", got)
	}
}

func TestDeletePost_LargeCommentSet(t *testing.T) {
	store := seedScenario()
	for i := 0; i < 250; i++ {
		id := "extra-" + strconv.Itoa(i)
		store.comments[id] = models.Comment{ID: id, PostID: "P1", AuthorID: "U2"}
		store.commentLikes = append(store.commentLikes, models.CommentLike{CommentID: id, UserID: "U1"})
	}
	d := testDeleter(store)

	if err := d.DeletePost(context.Background(), "P1", "U3"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(store.comments) != 0 {
		t.Errorf("comments remaining = %d, want 0", len(store.comments))
	}
	if len(store.commentLikes) != 0 {
		t.Errorf("comment likes remaining = %d, want 0", len(store.commentLikes))
	}
}
