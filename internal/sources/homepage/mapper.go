package homepage

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/marktrabit/internal/domain"
)

// ErrNoBookmarks is returned when a document holds no usable link.
var ErrNoBookmarks = errors.New("no valid bookmarks found in homepage config")

// Mapper converts Homepage documents to bookmark drafts
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapDrafts flattens every group into drafts titled by item name, in
// document order with keys of a single map sorted. Items without an
// absolute http(s) href are skipped, as are repeated URLs.
func (m *Mapper) MapDrafts(doc Document) ([]domain.Draft, error) {
	var drafts []domain.Draft
	seen := make(map[string]bool)

	for _, groupMap := range doc {
		for _, groupName := range sortedKeys(groupMap) {
			for _, itemMap := range groupMap[groupName] {
				for _, name := range sortedKeys(itemMap) {
					node := itemMap[name]
					href, label := itemHref(&node)
					href = strings.TrimSpace(href)
					if !validHref(href) || seen[href] {
						continue
					}
					seen[href] = true

					title := strings.TrimSpace(name)
					if title == "" {
						title = label
					}

					d, err := domain.Draft{Title: title, URL: href}.Normalize()
					if err != nil {
						continue
					}
					drafts = append(drafts, d)
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, ErrNoBookmarks
	}

	return drafts, nil
}

// itemHref decodes either item body shape and returns its href plus a
// fallback label.
func itemHref(node *yaml.Node) (string, string) {
	switch node.Kind {
	case yaml.SequenceNode:
		var entries []BookmarkEntry
		if err := node.Decode(&entries); err != nil || len(entries) == 0 {
			return "", ""
		}
		return entries[0].Href, entries[0].Abbr
	case yaml.MappingNode:
		var props ServiceProps
		if err := node.Decode(&props); err != nil {
			return "", ""
		}
		return props.Href, props.Description
	default:
		return "", ""
	}
}

func validHref(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe summarises a document for logs.
func Describe(doc Document) string {
	groups, items := 0, 0
	for _, g := range doc {
		groups += len(g)
		for _, list := range g {
			items += len(list)
		}
	}
	return fmt.Sprintf("%d groups, %d items", groups, items)
}
