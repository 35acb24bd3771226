package content_test

import (
	"context"
	"errors"
	"testing"

	"github.com/speaklab/speaklab/internal/content"
)

func TestArticle_PhrasesAndPlainText(t *testing.T) {
	t.Parallel()

	a := content.Article{
		ID:      1,
		Title:   "test",
		Content: "I [head out] at eight. Then I [catch the train] to class.",
	}

	phrases := a.Phrases()
	want := []string{"head out", "catch the train"}
	if len(phrases) != len(want) {
		t.Fatalf("Phrases() = %v, want %v", phrases, want)
	}
	for i := range want {
		if phrases[i] != want[i] {
			t.Errorf("phrase %d = %q, want %q", i, phrases[i], want[i])
		}
	}

	plain := a.PlainText()
	if plain != "I head out at eight. Then I catch the train to class." {
		t.Errorf("PlainText() = %q, brackets not stripped cleanly", plain)
	}
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	got := content.SplitSentences("London is a city full of stories. Speak clearly! Practice makes perfect")
	want := []string{
		"London is a city full of stories.",
		"Speak clearly!",
		"Practice makes perfect",
	}
	if len(got) != len(want) {
		t.Fatalf("SplitSentences() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}

	if got := content.SplitSentences("   "); got != nil {
		t.Errorf("SplitSentences(blank) = %v, want nil", got)
	}
}

func TestMemStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := content.NewMemStore()

	a := &content.Article{ID: 7, Title: "t", Content: "c."}
	if err := s.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, a); err == nil {
		t.Error("duplicate Create succeeded, want error")
	}

	got, err := s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "t" {
		t.Errorf("Get title = %q, want %q", got.Title, "t")
	}

	a.Title = "updated"
	if err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err = s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get after Upsert: %v", err)
	}
	if got.Title != "updated" {
		t.Errorf("title after Upsert = %q, want %q", got.Title, "updated")
	}

	if err := s.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, 7); err != nil {
		t.Errorf("Delete of missing article = %v, want nil", err)
	}
	if _, err := s.Get(ctx, 7); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestMemStore_SeededArticles(t *testing.T) {
	t.Parallel()

	s := content.NewSeededMemStore()
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("seeded store holds %d articles, want 2", len(list))
	}
	if list[0].ID != 1 || list[1].ID != 2 {
		t.Errorf("List order = [%d, %d], want [1, 2]", list[0].ID, list[1].ID)
	}

	for _, a := range list {
		if err := a.Validate(); err != nil {
			t.Errorf("seed article %d invalid: %v", a.ID, err)
		}
		if len(a.Sentences()) == 0 {
			t.Errorf("seed article %d yields no practice sentences", a.ID)
		}
		if len(a.Phrases()) == 0 {
			t.Errorf("seed article %d yields no vocabulary phrases", a.ID)
		}
	}
}

func TestArticle_Validate(t *testing.T) {
	t.Parallel()

	bad := content.Article{}
	if err := bad.Validate(); err == nil {
		t.Error("Validate of empty article succeeded, want error")
	}
	ok := content.Article{ID: 1, Title: "t", Content: "c"}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
