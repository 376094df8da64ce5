package dashboard

import (
	"errdash/models"
	"sort"
	"strings"
)

// FilterAll disables the severity and source filters
const FilterAll = "all"

// Filters are the four independent client-side criteria. Zero value matches everything.
type Filters struct {
	Severity  string `json:"severity" form:"severity"`
	Component string `json:"component" form:"component"`
	Search    string `json:"search" form:"search"`
	Source    string `json:"source" form:"source"`
}

// Card is one rendered record and whether the current filters keep it visible
type Card struct {
	Record  models.ErrorRecord
	Visible bool
}

// MatchSeverity: empty or "all" matches everything, otherwise exact match.
func (f Filters) MatchSeverity(rec *models.ErrorRecord) bool {
	return f.Severity == "" || f.Severity == FilterAll || rec.Severity == f.Severity
}

// MatchComponent: case-insensitive substring of the affected component.
func (f Filters) MatchComponent(rec *models.ErrorRecord) bool {
	return f.Component == "" || containsFold(rec.AffectedComponent, f.Component)
}

// MatchSearch: case-insensitive substring of the error type.
func (f Filters) MatchSearch(rec *models.ErrorRecord) bool {
	return f.Search == "" || containsFold(rec.ErrorType, f.Search)
}

// MatchSource: empty or "all" matches everything, otherwise exact, case-sensitive match.
func (f Filters) MatchSource(rec *models.ErrorRecord) bool {
	return f.Source == "" || f.Source == FilterAll || rec.Source == f.Source
}

// Matches reports whether rec passes all four filters
func (f Filters) Matches(rec *models.ErrorRecord) bool {
	return f.MatchSeverity(rec) && f.MatchComponent(rec) && f.MatchSearch(rec) && f.MatchSource(rec)
}

// SourceParam is the value sent as the server-side source filter
func (f Filters) SourceParam() string {
	if f.Source == "" {
		return models.SourceAll
	}
	return f.Source
}

// Apply projects a batch into cards. Every record yields exactly one card in
// batch order; filters only toggle visibility.
func (f Filters) Apply(batch []models.ErrorRecord) []Card {
	cards := make([]Card, len(batch))
	for i := range batch {
		cards[i] = Card{Record: batch[i], Visible: f.Matches(&batch[i])}
	}
	return cards
}

// CountVisible returns how many cards are shown
func CountVisible(cards []Card) int {
	n := 0
	for _, c := range cards {
		if c.Visible {
			n++
		}
	}
	return n
}

// distinctSources lists the sources present in a batch, sorted
func distinctSources(batch []models.ErrorRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range batch {
		if rec.Source != "" {
			seen[rec.Source] = struct{}{}
		}
	}
	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
