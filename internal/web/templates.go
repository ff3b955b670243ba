package web

import (
	_ "embed"
	"html/template"
)

//go:embed templates/base.html
var baseSource string

//go:embed templates/home.html
var homeSource string

//go:embed templates/book_index.html
var bookIndexSource string

//go:embed templates/page.html
var pageSource string

func mustPage(src string) *template.Template {
	t := template.Must(template.New("base").Parse(baseSource))
	return template.Must(t.Parse(src))
}

var (
	homeTemplate      = mustPage(homeSource)
	bookIndexTemplate = mustPage(bookIndexSource)
	pageTemplate      = mustPage(pageSource)
)
