package domain

import (
	"net/url"
	"sort"
	"strings"
)

const (
	// Scoring weights
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Title matches outrank host matches of the same kind
	ScoreTitleWeight = 1.0
	ScoreHostWeight  = 0.8
)

// SearchResult is a bookmark with its match score.
type SearchResult struct {
	Bookmark Bookmark
	Score    float64
}

// ScoreBookmark scores a bookmark against a free-text query by title and by URL host.
func ScoreBookmark(query string, b Bookmark) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}

	title := ScoreText(query, strings.ToLower(b.Title)) * ScoreTitleWeight
	host := scoreHost(query, hostOf(b.URL)) * ScoreHostWeight

	if title > host {
		return title
	}
	return host
}

// ScoreText scores query against a single lower-cased candidate string.
func ScoreText(query, text string) float64 {
	if query == "" || text == "" {
		return 0.0
	}

	// Exact match (highest score)
	if query == text {
		return ScoreExactMatch
	}

	// Prefix match
	if strings.HasPrefix(text, query) {
		return ScorePrefixMatch
	}

	// Substring match
	if index := strings.Index(text, query); index >= 0 {
		// Earlier substring matches get higher score
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(text)))
	}

	// Every query word appears somewhere
	if words := strings.Fields(query); len(words) > 1 {
		allMatch := true
		for _, word := range words {
			if !strings.Contains(text, word) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return ScoreFuzzyMatch
		}
	}

	// Character similarity
	if similarity := calculateSimilarity(query, text); similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}

	return 0.0
}

// Search ranks bookmarks by score, best first. Zero-score bookmarks are dropped.
// An empty query returns the list unchanged.
func Search(query string, list []Bookmark) []Bookmark {
	if strings.TrimSpace(query) == "" {
		return list
	}

	results := make([]SearchResult, 0, len(list))
	for _, b := range list {
		if score := ScoreBookmark(query, b); score > 0 {
			results = append(results, SearchResult{Bookmark: b, Score: score})
		}
	}

	// Stable so equal scores keep newest-first order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	out := make([]Bookmark, len(results))
	for i, r := range results {
		out[i] = r.Bookmark
	}
	return out
}

// scoreHost only accepts literal matches; character similarity against
// hostnames matches nearly everything ending in ".com".
func scoreHost(query, host string) float64 {
	if query == "" || host == "" || strings.ContainsRune(query, ' ') {
		return 0.0
	}
	switch {
	case query == host:
		return ScoreExactMatch
	case strings.HasPrefix(host, query):
		return ScorePrefixMatch
	case strings.Contains(host, query):
		index := strings.Index(host, query)
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(host)))
	}
	return 0.0
}

// calculateSimilarity is the ratio of query characters present in s.
func calculateSimilarity(query, s string) float64 {
	if query == "" || s == "" {
		return 0.0
	}

	matches := 0
	total := 0
	for _, c := range query {
		if c == ' ' {
			continue
		}
		total++
		if strings.ContainsRune(s, c) {
			matches++
		}
	}
	if total == 0 {
		return 0.0
	}

	return float64(matches) / float64(total)
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
