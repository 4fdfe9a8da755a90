package templates

import (
	"html/template"
	"time"

	"reeldreams/models"
)

// ParseTemplates parses HTML templates from the embedded filesystem.
// It takes a variadic list of template file paths and returns a parsed
// template or an error if parsing fails.
func ParseTemplates(files ...string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatMillis": func(ms int64) string {
			return models.MillisToTime(ms).Format("Jan 2, 2006")
		},
		"formatMillisPtr": func(ms *int64) string {
			if ms == nil {
				return ""
			}
			return models.MillisToTime(*ms).Format("Jan 2, 2006")
		},
		"now": time.Now,
	}

	return template.New("").Funcs(funcMap).ParseFS(FS, files...)
}
