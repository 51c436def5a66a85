package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/blob-service/handler"
	"github.com/konorlevich/file_share/internal/blob-service/storage"
	"github.com/konorlevich/file_share/internal/config"
	"github.com/konorlevich/file_share/internal/signing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("can't load config")
	}
	l := cfg.Logger("blob-service").WithFields(log.Fields{
		"blob_port": cfg.BlobPort,
		"blob_dir":  cfg.BlobDir,
	})
	if err := cfg.ValidateBlob(); err != nil {
		l.WithError(err).Fatal("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer l.Println("got interruption signal")

	st, err := storage.NewStorage(cfg.BlobDir, l)
	if err != nil {
		l.WithError(err).Fatal("failed to open storage")
	}
	server := &http.Server{
		Addr:              ":" + cfg.BlobPort,
		Handler:           handler.NewHandler(st, signing.NewSigner(cfg.SigningSecret), cfg.BlobMaxSize, l),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Printf("listening to port %s\n", cfg.BlobPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Fatal("listen and serve returned err")
		}
	}()
	defer func() {
		if err := server.Shutdown(context.Background()); err != nil {
			l.WithError(err).Error("handler shutdown returned an err")
		}
	}()

	<-ctx.Done()
}
