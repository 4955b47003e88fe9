package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDraftNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      Draft
		want    Draft
		wantErr bool
	}{
		{name: "trimmed", in: Draft{Title: "  News ", URL: " https://news.example.com "}, want: Draft{Title: "News", URL: "https://news.example.com"}},
		{name: "empty title", in: Draft{Title: "", URL: "https://x.example.com"}, wantErr: true},
		{name: "whitespace url", in: Draft{Title: "X", URL: "   \t"}, wantErr: true},
		{name: "both blank", in: Draft{Title: " ", URL: " "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyDraft) {
					t.Fatalf("Normalize() error = %v, want ErrEmptyDraft", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRecord(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"id":         "1",
			"user_id":    "u1",
			"title":      "Docs",
			"url":        "https://docs.example.com",
			"created_at": "2025-03-01T12:00:00.123456+00:00",
		}
	}

	b, err := ParseRecord(valid())
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if b.ID != "1" || b.Title != "Docs" || b.UserID != "u1" {
		t.Errorf("ParseRecord() = %+v", b)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)
	if !b.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", b.CreatedAt, want)
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{name: "missing id", mutate: func(m map[string]any) { delete(m, "id") }},
		{name: "bool id", mutate: func(m map[string]any) { m["id"] = true }},
		{name: "empty title", mutate: func(m map[string]any) { m["title"] = "  " }},
		{name: "numeric url", mutate: func(m map[string]any) { m["url"] = 3.0 }},
		{name: "missing owner", mutate: func(m map[string]any) { delete(m, "user_id") }},
		{name: "bad timestamp", mutate: func(m map[string]any) { m["created_at"] = "yesterday" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := valid()
			tt.mutate(row)
			if _, err := ParseRecord(row); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("ParseRecord() error = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestParseRecordNumericID(t *testing.T) {
	row := map[string]any{
		"id":         json.Number("42"),
		"user_id":    "u1",
		"title":      "Docs",
		"url":        "https://docs.example.com",
		"created_at": "2025-03-01T12:00:00Z",
	}
	b, err := ParseRecord(row)
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if b.ID != "42" {
		t.Errorf("ID = %q, want 42", b.ID)
	}
}

func TestInitial(t *testing.T) {
	if got := (Bookmark{Title: "docs"}).Initial(); got != "D" {
		t.Errorf("Initial() = %q, want D", got)
	}
	if got := (Bookmark{}).Initial(); got != "B" {
		t.Errorf("Initial() on empty title = %q, want B", got)
	}
}
