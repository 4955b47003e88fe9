package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bookmark is a personal bookmark record owned by the remote data service.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (service-assigned)
	// ─────────────────────────────

	// ID is unique and assigned by the service. Numeric ids are kept
	// as their decimal string form.
	ID string `json:"id"`

	// UserID is the owner. Access control on the service guarantees it
	// equals the acting session's user id.
	UserID string `json:"user_id"`

	// ─────────────────────────────
	// Content (immutable once created)
	// ─────────────────────────────

	Title string `json:"title"`
	URL   string `json:"url"`

	// CreatedAt is service-assigned and drives newest-first ordering.
	CreatedAt time.Time `json:"created_at"`
}

// Initial returns the upper-cased first letter of the title, "B" when empty.
func (b Bookmark) Initial() string {
	for _, r := range b.Title {
		return strings.ToUpper(string(r))
	}
	return "B"
}

// Draft is the user input for a new bookmark.
type Draft struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Normalize trims both fields. It returns ErrEmptyDraft when either is blank.
func (d Draft) Normalize() (Draft, error) {
	n := Draft{
		Title: strings.TrimSpace(d.Title),
		URL:   strings.TrimSpace(d.URL),
	}
	if n.Title == "" || n.URL == "" {
		return n, ErrEmptyDraft
	}
	return n, nil
}

// ParseRecord converts one untyped row returned by the data service into a
// Bookmark. Rows missing an id, owner, title or url, or carrying an
// unparsable created_at, are rejected.
func ParseRecord(row map[string]any) (Bookmark, error) {
	var b Bookmark

	id, err := scalarString(row["id"])
	if err != nil || id == "" {
		return b, fmt.Errorf("%w: id: missing or not a scalar", ErrMalformedRecord)
	}
	b.ID = id

	if b.UserID, err = requiredString(row, "user_id"); err != nil {
		return b, err
	}
	if b.Title, err = requiredString(row, "title"); err != nil {
		return b, err
	}
	if b.URL, err = requiredString(row, "url"); err != nil {
		return b, err
	}

	raw, ok := row["created_at"].(string)
	if !ok || raw == "" {
		return b, fmt.Errorf("%w: created_at: missing", ErrMalformedRecord)
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return b, fmt.Errorf("%w: created_at: %v", ErrMalformedRecord, err)
	}
	b.CreatedAt = ts

	return b, nil
}

// timestampLayouts covers what Postgres/PostgREST emit for timestamptz.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999Z07",
	"2006-01-02 15:04:05.999999-07:00",
}

// ParseTimestamp parses a service timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func requiredString(row map[string]any, key string) (string, error) {
	s, ok := row[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: missing or not a string", ErrMalformedRecord, key)
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: %s: empty", ErrMalformedRecord, key)
	}
	return s, nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}
