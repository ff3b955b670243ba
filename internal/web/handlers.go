package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shelfd/internal/library"
	"shelfd/internal/logger"
	mw "shelfd/internal/middleware"
)

//go:embed assets
var assetsFS embed.FS

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shelfd_endpoint_requests_total",
		Help: "Total number of requests per endpoint",
	},
	[]string{"endpoint", "code"},
)

func init() {
	prometheus.MustRegister(requestsTotal)
}

type Server struct {
	Log         *logrus.Logger
	Lib         *library.Library
	SearchLimit int

	sanitizer *bluemonday.Policy
}

func NewServer(log *logrus.Logger, lib *library.Library, searchLimit int) *Server {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	return &Server{
		Log:         log,
		Lib:         lib,
		SearchLimit: searchLimit,
		sanitizer:   bluemonday.UGCPolicy(),
	}
}

// Router wires the full route table. A nil limiter disables rate
// limiting (tests).
func (s *Server) Router(limiter *rate.Limiter) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(s.Log))
	if limiter != nil {
		r.Use(mw.RateLimit(limiter))
	}

	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/api/search", s.APISearch)
	r.Handle("/assets/*", s.Assets())
	r.Get("/covers/{slug}", s.Cover)
	r.Get("/_/{slug}/*", s.Resource)
	r.Get("/", s.Home)
	r.Get("/{slug}", s.BookIndex)
	r.Get("/{slug}/*", s.Page)
	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	requestsTotal.WithLabelValues("health", "200").Inc()
}

func (s *Server) Assets() http.Handler {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}

// GET /
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	defer logger.Track(r.Context(), "home render")()

	view := HomeView{Title: "My books", Query: r.URL.Query().Get("q")}

	if view.Query != "" {
		res, err := s.Lib.Search(r.Context(), view.Query, s.SearchLimit)
		if err != nil {
			s.fail(w, r, "home", err, "Error listing books")
			return
		}
		view.Total = res.Total
		view.Books = toCards(res.Books)
	} else {
		books, err := s.Lib.ListBooks(r.Context())
		if err != nil {
			s.fail(w, r, "home", err, "Error listing books")
			return
		}
		view.Books = toCards(books)
	}

	if err := RenderHome(w, view); err != nil {
		s.Log.WithError(err).Error("template.render.failed")
	}
	requestsTotal.WithLabelValues("home", "200").Inc()
}

// GET /{slug}
func (s *Server) BookIndex(w http.ResponseWriter, r *http.Request) {
	defer logger.Track(r.Context(), "book index render")()
	bookSlug := chi.URLParam(r, "slug")

	title, toc, err := s.Lib.BookIndex(r.Context(), bookSlug)
	if err != nil {
		s.fail(w, r, "book_index", err, "Book not found")
		return
	}

	view := BookIndexView{Title: title}
	if desc, err := s.Lib.Description(r.Context(), bookSlug); err == nil && desc != "" {
		view.Description = template.HTML(s.sanitizer.Sanitize(desc))
	}
	for _, e := range toc {
		view.Items = append(view.Items, IndexItem{
			Label: e.Label,
			Href:  "/" + bookSlug + "/" + e.Path,
			Level: e.Level,
		})
	}

	if err := RenderBookIndex(w, view); err != nil {
		s.Log.WithError(err).Error("template.render.failed")
	}
	requestsTotal.WithLabelValues("book_index", "200").Inc()
}

// GET /{slug}/{page} — the chapter shell around the content iframe.
func (s *Server) Page(w http.ResponseWriter, r *http.Request) {
	defer logger.Track(r.Context(), "page render")()
	bookSlug := chi.URLParam(r, "slug")
	pagePath := chi.URLParam(r, "*")

	ci, err := s.Lib.Chapter(r.Context(), bookSlug, pagePath)
	if err != nil {
		s.fail(w, r, "page", err, "Book not found")
		return
	}

	view := PageView{
		Title:    ci.Title,
		Slug:     bookSlug,
		ResPath:  pagePath,
		PrevPage: ci.Prev,
		NextPage: ci.Next,
	}
	if err := RenderPage(w, view); err != nil {
		s.Log.WithError(err).Error("template.render.failed")
	}
	requestsTotal.WithLabelValues("page", "200").Inc()
}

// GET /_/{slug}/{res_path} — raw resource straight from the epub.
func (s *Server) Resource(w http.ResponseWriter, r *http.Request) {
	bookSlug := chi.URLParam(r, "slug")
	resPath := chi.URLParam(r, "*")

	data, mt, err := s.Lib.Resource(r.Context(), bookSlug, resPath)
	if err != nil {
		s.fail(w, r, "resource", err, "Book not found")
		return
	}
	w.Header().Set("Content-Type", mt)
	_, _ = w.Write(data)
	requestsTotal.WithLabelValues("resource", "200").Inc()
}

// GET /covers/{slug}
func (s *Server) Cover(w http.ResponseWriter, r *http.Request) {
	data, err := s.Lib.Cover(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, "cover", err, "Book not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
	requestsTotal.WithLabelValues("cover", "200").Inc()
}

// GET /api/search?q=...&limit=10
func (s *Server) APISearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		WriteError(w, http.StatusBadRequest, "bad_request", "q parameter is required", nil)
		requestsTotal.WithLabelValues("api_search", "400").Inc()
		return
	}

	res, err := s.Lib.Search(r.Context(), q, s.SearchLimit)
	if err != nil {
		s.Log.WithError(err).Error("search.failed")
		WriteError(w, http.StatusInternalServerError, "internal_error", "search failed", err.Error())
		requestsTotal.WithLabelValues("api_search", "500").Inc()
		return
	}

	type bookOut struct {
		ID      int64  `json:"id"`
		Slug    string `json:"slug"`
		Title   string `json:"title"`
		Authors string `json:"authors"`
		Year    string `json:"year,omitempty"`
	}
	out := struct {
		Status string    `json:"status"`
		Total  int       `json:"total"`
		Books  []bookOut `json:"books"`
	}{Status: "ok", Total: res.Total, Books: make([]bookOut, 0, len(res.Books))}
	for _, b := range res.Books {
		out.Books = append(out.Books, bookOut{
			ID: b.ID, Slug: b.Slug, Title: b.Title, Authors: b.Authors, Year: b.Year,
		})
	}
	writeJSON(w, http.StatusOK, out)
	requestsTotal.WithLabelValues("api_search", "200").Inc()
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, endpoint string, err error, notFoundMsg string) {
	if errors.Is(err, library.ErrNotFound) {
		http.Error(w, notFoundMsg, http.StatusNotFound)
		requestsTotal.WithLabelValues(endpoint, "404").Inc()
		return
	}
	logger.For(r.Context()).WithError(err).WithField("endpoint", endpoint).Error("handler.failed")
	http.Error(w, notFoundMsg, http.StatusInternalServerError)
	requestsTotal.WithLabelValues(endpoint, "500").Inc()
}

func toCards(books []library.Book) []BookCard {
	cards := make([]BookCard, 0, len(books))
	for _, b := range books {
		cards = append(cards, BookCard{
			Slug:     b.Slug,
			Title:    b.Title,
			Authors:  b.Authors,
			Year:     b.Year,
			HasCover: b.HasCover,
		})
	}
	return cards
}
