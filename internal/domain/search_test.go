package domain

import "testing"

func TestScoreBookmark(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		title          string
		url            string
		expectPositive bool
	}{
		{name: "exact title", query: "docs", title: "Docs", url: "https://x.io", expectPositive: true},
		{name: "prefix title", query: "doc", title: "Docs", url: "https://x.io", expectPositive: true},
		{name: "substring title", query: "hub", title: "Docker Hub", url: "https://x.io", expectPositive: true},
		{name: "host match", query: "github", title: "Code", url: "https://www.github.com/me", expectPositive: true},
		{name: "multi-word", query: "docker hub", title: "Docker Hub", url: "https://x.io", expectPositive: true},
		{name: "no match", query: "zzq", title: "Docs", url: "https://a.io", expectPositive: false},
		{name: "blank query", query: "  ", title: "Docs", url: "https://docs.io", expectPositive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreBookmark(tt.query, Bookmark{Title: tt.title, URL: tt.url})
			if tt.expectPositive && score <= 0 {
				t.Errorf("Expected positive score, got %f", score)
			}
			if !tt.expectPositive && score > 0 {
				t.Errorf("Expected zero score, got %f", score)
			}
		})
	}
}

func TestScoreOrdering(t *testing.T) {
	exact := ScoreText("docs", "docs")
	prefix := ScoreText("doc", "docs")
	substring := ScoreText("ocs", "docs")

	if !(exact > prefix && prefix > substring && substring > 0) {
		t.Errorf("want exact > prefix > substring > 0, got %f %f %f", exact, prefix, substring)
	}
}

func TestSearch(t *testing.T) {
	list := []Bookmark{
		{ID: "3", Title: "News", URL: "https://news.example.com"},
		{ID: "2", Title: "Go docs", URL: "https://go.dev/doc"},
		{ID: "1", Title: "Docs", URL: "https://docs.example.com"},
	}

	if got := Search("", list); len(got) != 3 || got[0].ID != "3" {
		t.Errorf("empty query should return list unchanged, got %v", ids(got))
	}

	got := Search("docs", list)
	if len(got) != 2 {
		t.Fatalf("Search(docs) = %v, want 2 results", ids(got))
	}
	if got[0].ID != "1" {
		t.Errorf("exact title match should rank first, got %v", ids(got))
	}
}
