package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-story-backend/internal/domain"
)

func TestStories_CreateGetList(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "u1", "ann")
	seedUser(t, db, "u2", "bob")

	pub, err := CreateStory(ctx, db, "u1", "Public", "text", true)
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := CreateStory(ctx, db, "u1", "Private", "text", false); err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := CreateStory(ctx, db, "u2", "Newer", "text", true); err != nil {
		t.Fatalf("CreateStory: %v", err)
	}

	got, err := GetStory(ctx, db, pub.ID)
	if err != nil || got.Title != "Public" || !got.IsPublic {
		t.Fatalf("GetStory: got=%+v err=%v", got, err)
	}
	if _, err := GetStory(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	total, err := CountPublicStories(ctx, db)
	if err != nil || total != 2 {
		t.Fatalf("CountPublicStories: %d %v", total, err)
	}
	page, err := ListPublicStoriesPage(ctx, db, 0, 1)
	if err != nil || len(page) != 1 || page[0].Title != "Newer" {
		t.Fatalf("ListPublicStoriesPage: %+v %v", page, err)
	}
	all, _ := ListPublicStoriesPage(ctx, db, 0, 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 public stories, got %d", len(all))
	}

	mine, err := ListStoriesByAuthor(ctx, db, "u1")
	if err != nil || len(mine) != 2 || mine[0].Title != "Private" {
		t.Fatalf("ListStoriesByAuthor: %+v %v", mine, err)
	}
}

func TestUpdateStory_OwnerOnly(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "u1", "ann")
	s := seedStory(t, db, "s1", "u1", "Old", true)

	title, public := "New", false
	if err := UpdateStory(ctx, db, s.ID, "intruder", StoryPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
	if err := UpdateStory(ctx, db, s.ID, "u1", StoryPatch{Title: &title, IsPublic: &public}); err != nil {
		t.Fatalf("UpdateStory: %v", err)
	}
	got, _ := GetStory(ctx, db, s.ID)
	if got.Title != "New" || got.IsPublic || got.Content != "Once upon a time." {
		t.Fatalf("unexpected story after update: %+v", got)
	}
}

func TestDeleteStory_RemovesDependents(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedUser(t, db, "u1", "ann")
	seedStory(t, db, "s1", "u1", "T", true)

	if _, err := CreateComment(ctx, db, "s1", "u1", "ann", "nice"); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	c, err := CreateConversation(ctx, db, "s1", "u1", "narrative", "Analysis")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := CreateMessage(ctx, db, c.ID, true, "hi", nil, time.Now().UTC()); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	if err := DeleteStory(ctx, db, "s1", "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
	if err := DeleteStory(ctx, db, "s1", "u1"); err != nil {
		t.Fatalf("DeleteStory: %v", err)
	}

	for tbl, model := range map[string]any{
		"stories": &domain.Story{}, "comments": &domain.Comment{},
		"conversations": &domain.Conversation{}, "messages": &domain.Message{},
	} {
		var n int64
		db.Model(model).Count(&n)
		if n != 0 {
			t.Fatalf("expected %s to be empty, got %d", tbl, n)
		}
	}
}
