package tabular

import (
	"strconv"
	"strings"

	"reeldreams/models"
)

// exportHeader matches the import column order, plus CreatedAt at the end.
const exportHeader = "Title\tWatched\tRating\tNotes\tWatchedAt\tCreatedAt"

const exportDateLayout = "2006-01-02"

// Format renders the collection as tab-separated text with a header row.
// The first five columns round-trip through Parse.
func Format(movies []models.Movie) string {
	var b strings.Builder
	b.WriteString(exportHeader)
	b.WriteString("\n")

	for _, m := range movies {
		watched := "FALSE"
		if m.Watched {
			watched = "TRUE"
		}

		rating := ""
		if m.Rating != nil {
			rating = strconv.Itoa(*m.Rating)
		}

		notes := ""
		if m.Notes != nil {
			notes = sanitizeCell(*m.Notes)
		}

		watchedAt := ""
		if m.WatchedAt != nil {
			watchedAt = models.MillisToTime(*m.WatchedAt).Format(exportDateLayout)
		}

		createdAt := models.MillisToTime(m.CreatedAt).Format(exportDateLayout)

		b.WriteString(sanitizeCell(m.Title))
		b.WriteString("\t")
		b.WriteString(watched)
		b.WriteString("\t")
		b.WriteString(rating)
		b.WriteString("\t")
		b.WriteString(notes)
		b.WriteString("\t")
		b.WriteString(watchedAt)
		b.WriteString("\t")
		b.WriteString(createdAt)
		b.WriteString("\n")
	}

	return b.String()
}

// sanitizeCell strips the two characters that would corrupt the row/column
// structure of the output.
func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", "")
}
