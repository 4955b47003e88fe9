package domain

import (
	"sort"
	"strconv"
	"time"
)

// Phase is the dashboard lifecycle for one browser session.
//
//	not_checked -> unauthenticated (redirect)
//	not_checked -> authenticated -> loading -> loaded
//
// A pushed sign-out may move any authenticated phase back to unauthenticated.
type Phase string

const (
	PhaseNotChecked      Phase = "not_checked"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseLoading         Phase = "loading"
	PhaseLoaded          Phase = "loaded"
)

// NoticeKind classifies a notice for rendering.
type NoticeKind string

const (
	NoticeError NoticeKind = "error"
	NoticeInfo  NoticeKind = "info"
)

// Notice is a non-blocking, dismissible message shown on the dashboard.
type Notice struct {
	ID      string     `json:"id"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	Op      string     `json:"op,omitempty"`
	Target  string     `json:"target,omitempty"`
	At      time.Time  `json:"at"`
}

// maxNotices bounds the notice list; the oldest are dropped first.
const maxNotices = 5

// ViewState mirrors the remote bookmark table for the current user, plus
// the form and notice state of the dashboard.
type ViewState struct {
	Phase     Phase      `json:"phase"`
	User      User       `json:"user"`
	Bookmarks []Bookmark `json:"bookmarks"`
	Draft     Draft      `json:"draft"`
	Notices   []Notice   `json:"notices"`
	Loading   bool       `json:"loading"`
	LoadedAt  time.Time  `json:"loaded_at"`
}

// NewViewState returns an empty state in PhaseNotChecked.
func NewViewState() *ViewState {
	return &ViewState{
		Phase:     PhaseNotChecked,
		Bookmarks: []Bookmark{},
	}
}

// Authenticate records the identity and moves to PhaseAuthenticated.
// A different user than the one previously stored resets the list.
func (v *ViewState) Authenticate(u User) {
	if v.User.ID != "" && v.User.ID != u.ID {
		v.Bookmarks = []Bookmark{}
		v.Draft = Draft{}
		v.Notices = nil
		v.LoadedAt = time.Time{}
	}
	v.User = u
	if v.Phase == PhaseNotChecked || v.Phase == PhaseUnauthenticated {
		v.Phase = PhaseAuthenticated
	}
}

// Unauthenticate drops the identity and everything derived from it.
func (v *ViewState) Unauthenticate() {
	*v = ViewState{Phase: PhaseUnauthenticated, Bookmarks: []Bookmark{}}
}

// BeginLoad marks a wholesale refresh as in flight.
func (v *ViewState) BeginLoad() {
	v.Phase = PhaseLoading
	v.Loading = true
}

// EndLoad clears the loading flag without touching the list.
func (v *ViewState) EndLoad() {
	v.Loading = false
	if v.Phase == PhaseLoading {
		v.Phase = PhaseLoaded
	}
}

// Replace refreshes the list wholesale, newest first. Never leaves it nil.
func (v *ViewState) Replace(list []Bookmark, at time.Time) {
	next := make([]Bookmark, len(list))
	copy(next, list)
	SortNewestFirst(next)
	v.Bookmarks = next
	v.LoadedAt = at
	v.Phase = PhaseLoaded
	v.Loading = false
}

// Prepend adds a freshly created record at the head of the list.
func (v *ViewState) Prepend(b Bookmark) {
	next := make([]Bookmark, 0, len(v.Bookmarks)+1)
	next = append(next, b)
	for _, existing := range v.Bookmarks {
		if existing.ID != b.ID {
			next = append(next, existing)
		}
	}
	v.Bookmarks = next
}

// Remove filters out the record with the given id. Unknown ids are a no-op.
// It reports whether a record was removed.
func (v *ViewState) Remove(id string) bool {
	next := make([]Bookmark, 0, len(v.Bookmarks))
	removed := false
	for _, b := range v.Bookmarks {
		if b.ID == id {
			removed = true
			continue
		}
		next = append(next, b)
	}
	v.Bookmarks = next
	return removed
}

// Count returns the number of bookmarks currently mirrored.
func (v *ViewState) Count() int {
	return len(v.Bookmarks)
}

// AddNotice appends a notice, keeping at most maxNotices.
func (v *ViewState) AddNotice(n Notice) {
	v.Notices = append(v.Notices, n)
	if over := len(v.Notices) - maxNotices; over > 0 {
		v.Notices = append([]Notice(nil), v.Notices[over:]...)
	}
}

// Dismiss removes the notice with the given id.
func (v *ViewState) Dismiss(id string) bool {
	for i, n := range v.Notices {
		if n.ID == id {
			v.Notices = append(v.Notices[:i:i], v.Notices[i+1:]...)
			return true
		}
	}
	return false
}

// ClearDraft empties the form inputs.
func (v *ViewState) ClearDraft() {
	v.Draft = Draft{}
}

// SortNewestFirst orders by CreatedAt descending, then by ID descending,
// matching the remote "created_at.desc,id.desc" order.
func SortNewestFirst(list []Bookmark) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return idGreater(a.ID, b.ID)
	})
}

// idGreater compares numeric ids as numbers and anything else as text.
func idGreater(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return na > nb
	}
	return a > b
}
