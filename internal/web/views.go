package web

import (
	"html/template"
	"io"
)

// HomeView feeds the book list page.
type HomeView struct {
	Title string
	Query string
	Total int
	Books []BookCard
}

// BookCard is one row of the home page book list.
type BookCard struct {
	Slug     string
	Title    string
	Authors  string
	Year     string
	HasCover bool
}

// BookIndexView feeds the table-of-contents page. Description is
// sanitized before it gets here.
type BookIndexView struct {
	Title       string
	Description template.HTML
	Items       []IndexItem
}

type IndexItem struct {
	Label string
	Href  string
	Level int
}

// PageView is the input of the chapter shell page. PrevPage/NextPage
// are occupied-or-vacant: only a nil pointer means "no neighbour",
// an occupied empty string is still a page identifier.
type PageView struct {
	Title    string
	Slug     string
	ResPath  string
	PrevPage *string
	NextPage *string
}

type navLink struct {
	Rel   string
	Href  string
	Label string
}

type pageData struct {
	Title    string
	FrameSrc string
	Nav      []navLink
}

func RenderHome(w io.Writer, v HomeView) error {
	return homeTemplate.ExecuteTemplate(w, "base", v)
}

func RenderBookIndex(w io.Writer, v BookIndexView) error {
	return bookIndexTemplate.ExecuteTemplate(w, "base", v)
}

// RenderPage writes the chapter shell. The nav links are decided
// here, not in the template: a prev link iff PrevPage is occupied, a
// next link (with a prefetch hint) iff NextPage is occupied.
func RenderPage(w io.Writer, v PageView) error {
	d := pageData{
		Title:    v.Title,
		FrameSrc: "/_/" + v.Slug + "/" + v.ResPath,
	}
	if v.PrevPage != nil {
		d.Nav = append(d.Nav, navLink{Rel: "prev", Href: "/" + v.Slug + "/" + *v.PrevPage, Label: "Previous"})
	}
	if v.NextPage != nil {
		d.Nav = append(d.Nav, navLink{Rel: "next prefetch", Href: "/" + v.Slug + "/" + *v.NextPage, Label: "Next"})
	}
	return pageTemplate.ExecuteTemplate(w, "base", d)
}
