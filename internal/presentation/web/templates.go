package web

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"noticeClass": func(kind string) string {
		switch kind {
		case "error":
			return "alert alert-error"
		case "warning":
			return "alert alert-warning"
		default:
			return "alert alert-success"
		}
	},
	"lines": func(s string) int {
		n := strings.Count(s, "\n") + 1
		if n < 10 {
			return 10
		}
		if n > 30 {
			return 30
		}
		return n
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}
