// Package search builds per-role search indexes from navigation entries plus
// curated content, and ranks substring matches.
package search

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/roles"
)

// MaxResults caps the number of ranked results.
const MaxResults = 8

// Scores added per match location.
const (
	scoreTitlePrefix = 6
	scoreTitle       = 3
	scoreDescription = 2
	scoreKeywords    = 1
)

// Index holds the curated content. The zero value is not usable; use New.
type Index struct {
	mu       sync.RWMutex
	content  map[models.Role][]models.SearchEntry
	checksum string
}

// New returns an index over the built-in curated content.
func New() *Index {
	return &Index{content: builtin}
}

// Replace swaps the curated content. It reports false and does nothing when
// sum matches the content already loaded.
func (ix *Index) Replace(content map[models.Role][]models.SearchEntry, sum string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if sum != "" && sum == ix.checksum {
		return false
	}
	ix.content = content
	ix.checksum = sum
	return true
}

// Checksum returns the checksum of the loaded catalog, or "" for built-in content.
func (ix *Index) Checksum() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.checksum
}

// Build returns the role's navigation entries followed by its curated entries.
// Unknown roles use the admin tables.
func (ix *Index) Build(role models.Role) []models.SearchEntry {
	if !roles.Known(role) {
		role = models.RoleAdmin
	}
	cfg := roles.MustLookup(role)

	ix.mu.RLock()
	curated := ix.content[role]
	ix.mu.RUnlock()

	out := make([]models.SearchEntry, 0, len(cfg.Nav)+len(curated))
	for _, item := range cfg.Nav {
		out = append(out, models.SearchEntry{
			Title:       item.Label,
			Description: cfg.Label + " view",
			To:          item.To,
			Keywords:    item.Label + " " + item.ID,
		})
	}
	return append(out, curated...)
}

// Search ranks the role's index against query.
func (ix *Index) Search(role models.Role, query string) []models.SearchEntry {
	return Rank(ix.Build(role), query)
}

// Rank filters entries to those containing query, scores them and returns at
// most MaxResults, best first. An empty query returns nil.
func Rank(entries []models.SearchEntry, query string) []models.SearchEntry {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	type key struct{ to, title string }
	seen := make(map[key]bool, len(entries))
	var out []models.SearchEntry
	for _, e := range entries {
		k := key{e.To, e.Title}
		if seen[k] {
			continue
		}
		seen[k] = true

		title := strings.ToLower(e.Title)
		desc := strings.ToLower(e.Description)
		kw := strings.ToLower(e.Keywords)
		if !strings.Contains(title+" "+desc+" "+kw, needle) {
			continue
		}

		score := 0
		if strings.HasPrefix(title, needle) {
			score += scoreTitlePrefix
		}
		if strings.Contains(title, needle) {
			score += scoreTitle
		}
		if strings.Contains(desc, needle) {
			score += scoreDescription
		}
		if strings.Contains(kw, needle) {
			score += scoreKeywords
		}
		e.Score = score
		out = append(out, e)
	}

	slices.SortStableFunc(out, func(a, b models.SearchEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}
