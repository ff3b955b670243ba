// Package epub reads the subset of the EPUB container format the
// reader needs: the OPF package (title, manifest, spine) and the NCX
// table of contents, plus raw resource access by path.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
)

type container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type pkg struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Titles   []string `xml:"title"`
		Creators []string `xml:"creator"`
		Language string   `xml:"language"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc  string `xml:"toc,attr"`
		Refs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type ncx struct {
	XMLName xml.Name   `xml:"ncx"`
	Points  []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []navPoint `xml:"navPoint"`
}

// TOCEntry is one line of the book's table of contents. Path is
// relative to the package root and Level starts at 0.
type TOCEntry struct {
	Label string
	Path  string
	Level int
}

// Reader gives access to a single opened epub. Not safe for
// concurrent use; callers serialize access.
type Reader struct {
	closer io.Closer
	files  map[string]*zip.File
	opfDir string
	pkg    pkg
}

// Open opens the epub file at the given filesystem path.
func Open(name string) (*Reader, error) {
	zc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	r, err := newReader(&zc.Reader)
	if err != nil {
		zc.Close()
		return nil, err
	}
	r.closer = zc
	return r, nil
}

// NewReader reads an epub from an in-memory zip.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	return newReader(zr)
}

func newReader(zr *zip.Reader) (*Reader, error) {
	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		r.files[path.Clean(f.Name)] = f
	}

	raw, err := r.readFile("META-INF/container.xml")
	if err != nil {
		return nil, fmt.Errorf("container.xml: %w", err)
	}
	var c container
	if err := xml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("container.xml: %w", err)
	}
	if len(c.Rootfiles) == 0 {
		return nil, fmt.Errorf("container.xml: no rootfile")
	}

	opfPath := c.Rootfiles[0].FullPath
	r.opfDir = path.Dir(opfPath)
	if r.opfDir == "." {
		r.opfDir = ""
	}

	raw, err = r.readFile(opfPath)
	if err != nil {
		return nil, fmt.Errorf("opf: %w", err)
	}
	if err := xml.Unmarshal(raw, &r.pkg); err != nil {
		return nil, fmt.Errorf("opf: %w", err)
	}
	return r, nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Title returns the first dc:title of the package, if any.
func (r *Reader) Title() string {
	if len(r.pkg.Metadata.Titles) > 0 {
		return r.pkg.Metadata.Titles[0]
	}
	return ""
}

// Creators returns the dc:creator entries of the package.
func (r *Reader) Creators() []string {
	return r.pkg.Metadata.Creators
}

// Spine returns the reading-order resource paths, relative to the
// package root.
func (r *Reader) Spine() []string {
	byID := make(map[string]manifestItem, len(r.pkg.Manifest.Items))
	for _, it := range r.pkg.Manifest.Items {
		byID[it.ID] = it
	}

	out := make([]string, 0, len(r.pkg.Spine.Refs))
	for _, ref := range r.pkg.Spine.Refs {
		it, ok := byID[ref.IDRef]
		if !ok {
			continue
		}
		out = append(out, r.resolve(it.Href))
	}
	return out
}

// Resource returns the bytes and mime type of the resource at the
// given package-root-relative path.
func (r *Reader) Resource(p string) ([]byte, string, error) {
	p = stripFragment(p)
	data, err := r.readFile(p)
	if err != nil {
		return nil, "", err
	}

	for _, it := range r.pkg.Manifest.Items {
		if r.resolve(it.Href) == path.Clean(p) && it.MediaType != "" {
			return data, it.MediaType, nil
		}
	}
	if mt := mime.TypeByExtension(path.Ext(p)); mt != "" {
		return data, mt, nil
	}
	return data, "application/octet-stream", nil
}

// TOC returns the NCX table of contents. Books without an NCX get a
// flat listing synthesized from the spine.
func (r *Reader) TOC() []TOCEntry {
	ncxPath := r.ncxPath()
	if ncxPath == "" {
		return r.spineTOC()
	}
	raw, err := r.readFile(ncxPath)
	if err != nil {
		return r.spineTOC()
	}
	var doc ncx
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return r.spineTOC()
	}

	var out []TOCEntry
	var walk func(points []navPoint, level int)
	walk = func(points []navPoint, level int) {
		for _, p := range points {
			out = append(out, TOCEntry{
				Label: strings.TrimSpace(p.Label),
				Path:  r.resolve(p.Content.Src),
				Level: level,
			})
			walk(p.Children, level+1)
		}
	}
	walk(doc.Points, 0)
	return out
}

func (r *Reader) ncxPath() string {
	for _, it := range r.pkg.Manifest.Items {
		if it.ID != "" && it.ID == r.pkg.Spine.Toc {
			return r.resolve(it.Href)
		}
	}
	for _, it := range r.pkg.Manifest.Items {
		if it.MediaType == "application/x-dtbncx+xml" {
			return r.resolve(it.Href)
		}
	}
	return ""
}

func (r *Reader) spineTOC() []TOCEntry {
	spine := r.Spine()
	out := make([]TOCEntry, 0, len(spine))
	for _, p := range spine {
		label := strings.TrimSuffix(path.Base(p), path.Ext(p))
		out = append(out, TOCEntry{Label: label, Path: p})
	}
	return out
}

func (r *Reader) readFile(p string) ([]byte, error) {
	f, ok := r.files[path.Clean(p)]
	if !ok {
		return nil, fmt.Errorf("epub: no such resource: %s", p)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// resolve makes a manifest/ncx href relative to the package root.
func (r *Reader) resolve(href string) string {
	href = stripFragment(href)
	if u, err := url.PathUnescape(href); err == nil {
		href = u
	}
	return path.Clean(path.Join(r.opfDir, href))
}

func stripFragment(p string) string {
	if i := strings.IndexByte(p, '#'); i >= 0 {
		return p[:i]
	}
	return p
}
