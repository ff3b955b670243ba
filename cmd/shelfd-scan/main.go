// shelfd-scan walks a Calibre library, verifies that every epub can
// be opened and that each spine resource is readable, and writes one
// NDJSON report record per book.
package main

import (
	"crypto/sha1"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"shelfd/internal/config"
	"shelfd/internal/epub"
)

//go:embed report_schema.json
var reportSchemaSource string

var (
	registry     = prometheus.NewRegistry()
	scannedBooks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfd_scan_books_total",
		Help: "Total number of scanned epub files",
	}, []string{"status"})

	scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shelfd_scan_book_duration_seconds",
		Help:    "Time spent scanning a single epub",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	registry.MustRegister(scannedBooks, scanDuration)
}

type reportRecord struct {
	Path       string    `json:"path"`
	Title      string    `json:"title,omitempty"`
	Sha1       string    `json:"sha1"`
	Size       int64     `json:"size"`
	SpineCount int       `json:"spineCount"`
	ScannedAt  time.Time `json:"scannedAt"`
	Status     string    `json:"status"`
	Problems   []string  `json:"problems,omitempty"`
}

var (
	log          = logrus.New()
	outFile      *os.File
	outMu        sync.Mutex
	reportSchema *gojsonschema.Schema
)

func initLogger(path string) {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05", ForceColors: path == "",
	})
	writers := []io.Writer{os.Stdout}
	if path != "" {
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			writers = append(writers, f)
		}
	}
	log.SetOutput(io.MultiWriter(writers...))
}

func main() {
	libFlag := flag.String("library", "", "Path to the Calibre library (overrides config)")
	outFlag := flag.String("out", "", "Path to output NDJSON report (overrides config)")
	flag.Parse()

	cfg := config.Get()
	initLogger(cfg.Scan.LogPath)

	libPath := cfg.Library.Path
	if *libFlag != "" {
		libPath = *libFlag
	}
	reportPath := cfg.Scan.ReportPath
	if *outFlag != "" {
		reportPath = *outFlag
	}
	if libPath == "" || reportPath == "" {
		log.Fatal("library path and report path are required (flags or shelfd.yaml)")
	}

	var err error
	reportSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(reportSchemaSource))
	if err != nil {
		log.Fatalf("report schema: %v", err)
	}

	outFile, err = os.OpenFile(reportPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("open report: %v", err)
	}
	defer outFile.Close()

	var epubs []string
	err = filepath.WalkDir(libPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".epub") {
			epubs = append(epubs, p)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("walk library: %v", err)
	}
	if len(epubs) == 0 {
		log.Info("No epub files found.")
		return
	}

	bar := progressbar.Default(int64(len(epubs)), "scanning")
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Scan.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				scanBook(libPath, p)
				_ = bar.Add(1)
			}
		}()
	}
	for _, p := range epubs {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	_ = bar.Finish()

	if cfg.Scan.PushgatewayURL != "" {
		_ = push.New(cfg.Scan.PushgatewayURL, "shelfd_scan").Gatherer(registry).Push()
	}
	log.WithField("books", len(epubs)).Info("Scan finished.")
}

func scanBook(libPath, p string) {
	start := time.Now()

	rel, err := filepath.Rel(libPath, p)
	if err != nil {
		rel = p
	}
	rec := reportRecord{Path: filepath.ToSlash(rel), ScannedAt: time.Now().UTC(), Status: "ok"}

	raw, err := os.ReadFile(p)
	if err != nil {
		log.WithError(err).WithField("path", rel).Warn("unreadable epub")
		scannedBooks.WithLabelValues("error_read").Inc()
		return
	}
	sum := sha1.Sum(raw)
	rec.Sha1 = hex.EncodeToString(sum[:])
	rec.Size = int64(len(raw))

	r, err := epub.Open(p)
	if err != nil {
		rec.Status = "warn"
		rec.Problems = append(rec.Problems, err.Error())
		writeRecord(rec, "error_open")
		return
	}
	defer r.Close()

	rec.Title = r.Title()
	spine := r.Spine()
	rec.SpineCount = len(spine)
	for _, res := range spine {
		if _, _, err := r.Resource(res); err != nil {
			rec.Status = "warn"
			rec.Problems = append(rec.Problems, "missing spine resource: "+res)
		}
	}

	writeRecord(rec, rec.Status)
	scanDuration.Observe(time.Since(start).Seconds())
}

func writeRecord(rec reportRecord, metric string) {
	data, err := json.Marshal(rec)
	if err != nil {
		log.WithError(err).Error("marshal record")
		return
	}

	res, err := reportSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil || !res.Valid() {
		log.WithField("path", rec.Path).WithField("errors", res).Error("record failed schema validation")
		scannedBooks.WithLabelValues("error_schema").Inc()
		return
	}

	outMu.Lock()
	_, _ = outFile.Write(data)
	_, _ = outFile.WriteString("\n")
	outMu.Unlock()
	scannedBooks.WithLabelValues(metric).Inc()
}
