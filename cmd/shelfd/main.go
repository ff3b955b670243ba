package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"shelfd/internal/config"
	"shelfd/internal/library"
	"shelfd/internal/logger"
	"shelfd/internal/web"
)

func main() {
	cfg := config.Get()
	logger.Setup(cfg.Server.Debug)
	log := logrus.StandardLogger()

	// The library directory can be given on the command line, the
	// config file is the fallback.
	libPath := cfg.Library.Path
	if len(os.Args) > 1 {
		libPath = os.Args[1]
	}
	if libPath == "" {
		log.Fatal("usage: shelfd <calibre library> (or set library.path in shelfd.yaml)")
	}

	lib, err := library.Open(libPath, cfg.Library.CacheSize)
	if err != nil {
		log.Fatalf("failed to open library: %v", err)
	}
	defer lib.Close()

	srv := web.NewServer(log, lib, cfg.Search.DefaultLimit)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           srv.Router(limiter),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("📚 shelfd started on %s", cfg.Server.FullURL())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start web server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Info("shelfd stopped")
}
