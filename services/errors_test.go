package services

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&NotFoundError{Resource: "post"}, ErrNotFound},
		{&ValidationError{Field: "postId", Reason: "must not be empty"}, ErrInvalidInput},
		{&StoreError{Op: "delete post", Cause: errors.New("connection reset")}, ErrStore},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("errors.Is(%v, %v) = false", tc.err, tc.want)
		}
	}
}

func TestErrorToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&ValidationError{Field: "postId", Reason: "must not be empty"}, http.StatusBadRequest},
		{&NotFoundError{Resource: "post"}, http.StatusNotFound},
		{ErrPermissionDenied, http.StatusForbidden},
		{&StoreError{Op: "delete likes", Cause: errors.New("timeout")}, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := ErrorToStatus(tc.err); got != tc.want {
			t.Errorf("ErrorToStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestClientMessageHidesInternalDetail(t *testing.T) {
	storeErr := &StoreError{Op: "delete post", Cause: errors.New("dial tcp 10.0.0.5:3306 refused")}
	if msg := ClientMessage(storeErr); strings.Contains(msg, "10.0.0.5") || strings.Contains(msg, "dial") {
		t.Errorf("ClientMessage leaked store detail: %q", msg)
	}
	if msg := ClientMessage(ErrPermissionDenied); strings.Contains(msg, "denied") {
		t.Errorf("ClientMessage leaked internal wording: %q", msg)
	}
	if msg := ClientMessage(&NotFoundError{Resource: "post"}); msg != "post not found" {
		t.Errorf("ClientMessage(not found) = %q", msg)
	}
}
