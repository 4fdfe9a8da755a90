// Package tabular converts between the movie collection and the
// tab-separated text format used for spreadsheet paste import and export.
// Column order is fixed: Title, Watched, Rating, Notes, WatchedAt.
package tabular

import (
	"strconv"
	"strings"
	"time"

	"reeldreams/models"
)

// dateLayouts are tried in order when parsing the WatchedAt cell. Pasted
// spreadsheets produce a mix of ISO and locale forms.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseResult holds the accepted candidates and the number of rows dropped
// during parsing (blank titles and duplicates).
type ParseResult struct {
	Candidates []models.Candidate
	Skipped    int
}

// Parse converts a block of pasted text into insertion candidates.
//
// Rows that are empty after trimming are ignored outright. If the first
// remaining row's first cell contains "title" (case-insensitively) it is
// treated as a header and skipped. Each surviving row degrades gracefully
// per field: a malformed rating becomes absent, a malformed date falls back
// to now, and only a blank or duplicate title drops the row. existingTitles
// are the titles already in the store; duplicates against them or against an
// earlier row in the same batch are skipped and counted.
func Parse(text string, existingTitles []string, now time.Time) ParseResult {
	seen := make(map[string]struct{}, len(existingTitles))
	for _, t := range existingTitles {
		seen[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var rows []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}
	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}

	result := ParseResult{}
	for _, row := range rows {
		cells := strings.Split(row, "\t")

		title := strings.TrimSpace(cell(cells, 0))
		if title == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[strings.ToLower(title)]; dup {
			result.Skipped++
			continue
		}
		seen[strings.ToLower(title)] = struct{}{}

		watched := strings.EqualFold(strings.TrimSpace(cell(cells, 1)), "true")

		candidate := models.Candidate{
			Title:   title,
			Watched: watched,
		}

		if rating, err := strconv.Atoi(strings.TrimSpace(cell(cells, 2))); err == nil {
			clamped := clamp(rating)
			candidate.Rating = &clamped
		}

		if notes := strings.TrimSpace(cell(cells, 3)); notes != "" {
			candidate.Notes = &notes
		}

		// WatchedAt only means something for watched rows; an unwatched
		// row's date cell is discarded.
		if watched {
			watchedAt := models.TimeToMillis(now)
			if t, ok := parseDate(strings.TrimSpace(cell(cells, 4))); ok {
				watchedAt = models.TimeToMillis(t)
			}
			candidate.WatchedAt = &watchedAt
		}

		result.Candidates = append(result.Candidates, candidate)
	}

	return result
}

// isHeader reports whether a row looks like the optional header row. A data
// row whose title happens to contain "title" is indistinguishable and will
// be treated as a header.
func isHeader(row string) bool {
	first := strings.TrimSpace(strings.Split(row, "\t")[0])
	return strings.Contains(strings.ToLower(first), "title")
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func clamp(rating int) int {
	if rating < 1 {
		return 1
	}
	if rating > 5 {
		return 5
	}
	return rating
}
