// Package library reads a Calibre library directory: book rows from
// metadata.db (opened read-only) and chapter content from the epub
// files next to it.
package library

import (
	"container/list"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"shelfd/internal/epub"
	"shelfd/internal/metrics"
	"shelfd/internal/slug"
)

var ErrNotFound = errors.New("library: not found")

// Book is one row of the Calibre books table, shaped for display.
type Book struct {
	ID       int64
	Slug     string
	Title    string
	Authors  string
	Year     string
	HasCover bool
}

// AuthorList splits the Calibre author_sort string into single names.
func (b Book) AuthorList() []string {
	parts := strings.Split(b.Authors, "&")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ChapterInfo describes one spine position of a book. Prev and Next
// are nil at the spine edges; an occupied pointer always carries a
// valid page path.
type ChapterInfo struct {
	Title string
	Prev  *string
	Next  *string
}

type bookInfo struct {
	id    int64
	title string
	dir   string
}

type Library struct {
	baseDir string
	db      *sql.DB

	mu    sync.Mutex // guards cache and all epub.Reader access
	cache *epubCache
}

// Open opens metadata.db inside dir read-only. cacheSize bounds the
// number of epubs kept open at once.
func Open(dir string, cacheSize int) (*Library, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", filepath.Join(dir, "metadata.db"))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata.db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open metadata.db: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = 5
	}
	return &Library{baseDir: dir, db: db, cache: newEpubCache(cacheSize)}, nil
}

func (l *Library) Close() error {
	l.mu.Lock()
	l.cache.purge()
	l.mu.Unlock()
	return l.db.Close()
}

// ListBooks returns every book in sort order.
func (l *Library) ListBooks(ctx context.Context) ([]Book, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, title, author_sort, COALESCE(strftime('%Y', pubdate), ''), sort, has_cover
		 FROM books ORDER BY sort`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		var sortTitle string
		if err := rows.Scan(&b.ID, &b.Title, &b.Authors, &b.Year, &sortTitle, &b.HasCover); err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		b.Slug = fmt.Sprintf("%d-%s", b.ID, slug.Make(sortTitle))
		books = append(books, b)
	}
	return books, rows.Err()
}

// BookIndex returns the book title and its table of contents.
func (l *Library) BookIndex(ctx context.Context, bookSlug string) (string, []epub.TOCEntry, error) {
	info, err := l.getBookInfo(ctx, bookSlug)
	if err != nil {
		return "", nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	r, err := l.getReader(info)
	if err != nil {
		return "", nil, err
	}
	return info.title, r.TOC(), nil
}

// Chapter locates pagePath in the book's spine and returns the title
// plus prev/next neighbours.
func (l *Library) Chapter(ctx context.Context, bookSlug, pagePath string) (ChapterInfo, error) {
	info, err := l.getBookInfo(ctx, bookSlug)
	if err != nil {
		return ChapterInfo{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	r, err := l.getReader(info)
	if err != nil {
		return ChapterInfo{}, err
	}

	spine := r.Spine()
	want := path.Clean(pagePath)
	for i, p := range spine {
		if p != want {
			continue
		}
		ci := ChapterInfo{Title: info.title}
		if i > 0 {
			ci.Prev = &spine[i-1]
		}
		if i+1 < len(spine) {
			ci.Next = &spine[i+1]
		}
		return ci, nil
	}
	return ChapterInfo{}, fmt.Errorf("%w: %s in %s", ErrNotFound, pagePath, bookSlug)
}

// Resource returns the bytes and mime type of any epub resource.
func (l *Library) Resource(ctx context.Context, bookSlug, resPath string) ([]byte, string, error) {
	info, err := l.getBookInfo(ctx, bookSlug)
	if err != nil {
		return nil, "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	r, err := l.getReader(info)
	if err != nil {
		return nil, "", err
	}
	data, mt, err := r.Resource(resPath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s in %s", ErrNotFound, resPath, bookSlug)
	}
	return data, mt, nil
}

// Cover returns the Calibre cover.jpg of the book's directory.
func (l *Library) Cover(ctx context.Context, bookSlug string) ([]byte, error) {
	info, err := l.getBookInfo(ctx, bookSlug)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(info.dir, "cover.jpg"))
	if err != nil {
		return nil, fmt.Errorf("%w: cover of %s", ErrNotFound, bookSlug)
	}
	return data, nil
}

// Description returns the raw Calibre comments HTML for the book, or
// an empty string when there is none. Callers sanitize before output.
func (l *Library) Description(ctx context.Context, bookSlug string) (string, error) {
	id, err := slug.ExtractID(bookSlug)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, bookSlug)
	}
	var text string
	err = l.db.QueryRowContext(ctx, `SELECT text FROM comments WHERE book = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("description: %w", err)
	}
	return text, nil
}

func (l *Library) getBookInfo(ctx context.Context, bookSlug string) (bookInfo, error) {
	id, err := slug.ExtractID(bookSlug)
	if err != nil {
		return bookInfo{}, fmt.Errorf("%w: %s", ErrNotFound, bookSlug)
	}

	var title, rel string
	err = l.db.QueryRowContext(ctx, `SELECT title, path FROM books WHERE id = ?`, id).
		Scan(&title, &rel)
	if errors.Is(err, sql.ErrNoRows) {
		return bookInfo{}, fmt.Errorf("%w: %s", ErrNotFound, bookSlug)
	}
	if err != nil {
		return bookInfo{}, fmt.Errorf("book info: %w", err)
	}
	return bookInfo{id: id, title: title, dir: filepath.Join(l.baseDir, filepath.FromSlash(rel))}, nil
}

// getReader returns a cached open epub or opens the first *.epub in
// the book directory. Caller holds l.mu.
func (l *Library) getReader(info bookInfo) (*epub.Reader, error) {
	if r, ok := l.cache.get(info.id); ok {
		metrics.EpubCacheHits.WithLabelValues("hit").Inc()
		return r, nil
	}
	metrics.EpubCacheHits.WithLabelValues("miss").Inc()

	entries, err := os.ReadDir(info.dir)
	if err != nil {
		return nil, fmt.Errorf("book dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".epub") {
			continue
		}
		r, err := epub.Open(filepath.Join(info.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		l.cache.add(info.id, r)
		return r, nil
	}
	return nil, fmt.Errorf("%w: no epub in %s", ErrNotFound, info.dir)
}

// epubCache is a small LRU of open epub readers. Evicted readers are
// closed. No library in the dependency set covers this, so it stays
// hand-rolled on container/list.
type epubCache struct {
	cap   int
	ll    *list.List
	items map[int64]*list.Element
}

type cacheEntry struct {
	id int64
	r  *epub.Reader
}

func newEpubCache(cap int) *epubCache {
	return &epubCache{cap: cap, ll: list.New(), items: make(map[int64]*list.Element)}
}

func (c *epubCache) get(id int64) (*epub.Reader, bool) {
	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).r, true
}

func (c *epubCache) add(id int64, r *epub.Reader) {
	c.items[id] = c.ll.PushFront(&cacheEntry{id: id, r: r})
	if c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		entry := oldest.Value.(*cacheEntry)
		delete(c.items, entry.id)
		entry.r.Close()
	}
}

func (c *epubCache) purge() {
	for el := c.ll.Front(); el != nil; el = el.Next() {
		el.Value.(*cacheEntry).r.Close()
	}
	c.ll.Init()
	c.items = make(map[int64]*list.Element)
}
