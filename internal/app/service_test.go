package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"tutorials/api/internal/store"
	"tutorials/api/internal/tree"
)

func TestParseParentID(t *testing.T) {
	for _, raw := range []string{"", "null", " null "} {
		id, err := ParseParentID(raw)
		if err != nil || id != nil {
			t.Fatalf("ParseParentID(%q) = %v, %v; want nil, nil", raw, id, err)
		}
	}
	id, err := ParseParentID("12")
	if err != nil || id == nil || *id != 12 {
		t.Fatalf("ParseParentID(12) = %v, %v", id, err)
	}
	for _, raw := range []string{"0", "-3", "abc"} {
		if _, err := ParseParentID(raw); err == nil {
			t.Fatalf("ParseParentID(%q) expected error", raw)
		}
	}
}

func TestFlexBool(t *testing.T) {
	cases := map[string]bool{`true`: true, `1`: true, `"1"`: true, `"true"`: true, `false`: false, `0`: false, `null`: false}
	for raw, want := range cases {
		var input CreateTopicInput
		if err := json.Unmarshal([]byte(`{"is_published":`+raw+`}`), &input); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if bool(input.IsPublished) != want {
			t.Fatalf("is_published %s = %v, want %v", raw, input.IsPublished, want)
		}
	}
	var input CreateTopicInput
	if err := json.Unmarshal([]byte(`{"is_published":"maybe"}`), &input); err == nil {
		t.Fatal("expected error for non-boolean is_published")
	}
}

func TestTopicPatchFromFields(t *testing.T) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"parent_id":7,"description":null,"is_published":"0","order_no":2}`), &fields); err != nil {
		t.Fatal(err)
	}
	patch, err := topicPatchFromFields(fields)
	if err != nil {
		t.Fatalf("topicPatchFromFields() error = %v", err)
	}
	if !patch.SetParent || patch.ParentID == nil || *patch.ParentID != 7 {
		t.Fatalf("unexpected parent: %+v", patch)
	}
	if patch.Description == nil || *patch.Description != "" {
		t.Fatalf("null description should clear: %+v", patch.Description)
	}
	if patch.IsPublished == nil || *patch.IsPublished || patch.OrderNo == nil || *patch.OrderNo != 2 {
		t.Fatalf("unexpected patch: %+v", patch)
	}

	bad := []string{`{"parent_id":"x"}`, `{"parent_id":0}`, `{"title":""}`, `{"slug":"a b"}`, `{"order_no":-1}`}
	for _, body := range bad {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &fields); err != nil {
			t.Fatal(err)
		}
		if _, err := topicPatchFromFields(fields); err == nil {
			t.Fatalf("%s: expected validation error", body)
		}
	}
}

func TestStoreErrorMapping(t *testing.T) {
	parent := int64(1)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: &tree.ForeignChildError{ID: 5, ParentID: &parent}, status: http.StatusBadRequest, code: "FOREIGN_CHILD"},
		{err: fmt.Errorf("create: %w", store.ErrSlugConflict), status: http.StatusConflict, code: "SLUG_CONFLICT"},
		{err: store.ErrPathConflict, status: http.StatusConflict, code: "PATH_CONFLICT"},
		{err: store.ErrParentNotFound, status: http.StatusBadRequest, code: "PARENT_NOT_FOUND"},
		{err: store.ErrCycle, status: http.StatusBadRequest, code: "CYCLE"},
		{err: store.ErrTopicNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{err: store.ErrDuplicateContent, status: http.StatusConflict, code: "DUPLICATE_CONTENT"},
		{err: store.ErrAlreadyLiked, status: http.StatusConflict, code: "ALREADY_LIKED"},
		{err: store.ErrNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
	}
	for _, tc := range cases {
		status, code, _, _ := mapError(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("mapError(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}

	plain := errors.New("boom")
	if storeError(plain) != plain {
		t.Fatal("unclassified errors must pass through")
	}
	if status, code, _, _ := mapError(plain); status != http.StatusInternalServerError || code != "SERVER_ERROR" {
		t.Fatalf("mapError(plain) = %d %s", status, code)
	}
}
