package web

import (
	"archive/zip"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfd/internal/library"
)

const fixtureOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Dune</dc:title>
    <dc:creator>Frank Herbert</dc:creator>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch3" href="ch3.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="ch3"/>
  </spine>
</package>`

const fixtureNCX = `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1"><navLabel><text>One</text></navLabel><content src="ch1.xhtml"/></navPoint>
    <navPoint id="n2"><navLabel><text>Two</text></navLabel><content src="ch2.xhtml"/></navPoint>
    <navPoint id="n3"><navLabel><text>Three</text></navLabel><content src="ch3.xhtml"/></navPoint>
  </navMap>
</ncx>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()

	db, err := sql.Open("sqlite", filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE books (
			id INTEGER PRIMARY KEY, title TEXT, sort TEXT,
			author_sort TEXT, pubdate TIMESTAMP, path TEXT, has_cover BOOL
		);
		CREATE TABLE comments (id INTEGER PRIMARY KEY, book INTEGER, text TEXT);
		INSERT INTO books VALUES
			(1, 'Dune', 'Dune', 'Herbert, Frank', '1965-08-01 00:00:00+00:00',
			 'Frank Herbert/Dune (1)', 1);
		INSERT INTO comments VALUES (1, 1, '<p>Spice <script>alert(1)</script>and sand.</p>');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	bookDir := filepath.Join(dir, "Frank Herbert", "Dune (1)")
	require.NoError(t, os.MkdirAll(bookDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "cover.jpg"), []byte("jpegdata"), 0o644))

	f, err := os.Create(filepath.Join(bookDir, "Dune.epub"))
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?><container xmlns="urn:oasis:names:tc:opendocument:xmlns:container" version="1.0"><rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles></container>`,
		"content.opf":            fixtureOPF,
		"toc.ncx":                fixtureNCX,
		"ch1.xhtml":              "<html><body>one</body></html>",
		"ch2.xhtml":              "<html><body>two</body></html>",
		"ch3.xhtml":              "<html><body>three</body></html>",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	lib, err := library.Open(dir, 5)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	srv := httptest.NewServer(NewServer(log, lib, 10).Router(nil))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func TestHomeRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, doc := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	link := doc.Find(".book-list a")
	require.Equal(t, 1, link.Length())
	href, _ := link.Attr("href")
	assert.Equal(t, "/1-dune", href)
}

func TestHomeSearchRoute(t *testing.T) {
	srv := newTestServer(t)

	_, doc := get(t, srv.URL+"/?q=author:herbert")
	assert.Equal(t, 1, doc.Find(".book-list a").Length())

	_, doc = get(t, srv.URL+"/?q=tolkien")
	assert.Equal(t, 0, doc.Find(".book-list a").Length())
}

func TestBookIndexRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, doc := get(t, srv.URL+"/1-dune")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Dune", doc.Find("main h1").Text())
	assert.Equal(t, 3, doc.Find("ol.toc li").Length())

	// comments HTML is sanitized on the way out
	desc, err := doc.Find(".book-description").Html()
	require.NoError(t, err)
	assert.Contains(t, desc, "Spice")
	assert.NotContains(t, desc, "script")

	resp, _ = get(t, srv.URL+"/999-unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPageRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, doc := get(t, srv.URL+"/1-dune/ch2.xhtml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	src, _ := doc.Find("iframe#chapter-frame").Attr("src")
	assert.Equal(t, "/_/1-dune/ch2.xhtml", src)

	prevHref, _ := doc.Find(`nav.chapter-nav a[rel~="prev"]`).Attr("href")
	nextHref, _ := doc.Find(`nav.chapter-nav a[rel~="next"]`).Attr("href")
	assert.Equal(t, "/1-dune/ch1.xhtml", prevHref)
	assert.Equal(t, "/1-dune/ch3.xhtml", nextHref)

	// spine edges lose one neighbour each
	_, doc = get(t, srv.URL+"/1-dune/ch1.xhtml")
	nav := doc.Find("nav.chapter-nav")
	assert.Equal(t, 0, nav.Find(`a[rel~="prev"]`).Length())
	assert.Equal(t, 1, nav.Find(`a[rel~="next"]`).Length())

	resp, _ = get(t, srv.URL+"/1-dune/nope.xhtml")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResourceRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/_/1-dune/ch1.xhtml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xhtml+xml", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/_/1-dune/missing.png")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCoverRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/covers/1-dune")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
}

func TestAPISearchRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/search?q=dune")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp, err = http.Get(srv.URL + "/api/search")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndAssets(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, asset := range []string{"/assets/modern-normalize.css", "/assets/page.css", "/assets/shelfd.css"} {
		resp, err := http.Get(srv.URL + asset)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, asset)
	}
}
