package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/config"
	"github.com/konorlevich/file_share/internal/share-service/access"
	"github.com/konorlevich/file_share/internal/share-service/database"
	"github.com/konorlevich/file_share/internal/share-service/handler"
	"github.com/konorlevich/file_share/internal/share-service/identity"
	"github.com/konorlevich/file_share/internal/share-service/objectstore"
	"github.com/konorlevich/file_share/internal/signing"
)

var issueToken = flag.String("issue-token", "", "print a bearer token for the given user id and exit")

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("can't load config")
	}
	l := cfg.Logger("share-service")
	if err := cfg.ValidateShare(); err != nil {
		l.WithError(err).Fatal("invalid config")
	}

	ident := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if *issueToken != "" {
		tok, err := ident.Issue(*issueToken, 24*time.Hour)
		if err != nil {
			l.WithError(err).Fatal("can't issue token")
		}
		fmt.Println(tok)
		return
	}

	l = l.WithFields(log.Fields{
		"share_port":   cfg.SharePort,
		"db_file":      cfg.DBFile,
		"object_store": cfg.ObjectStore,
	})
	l.Debugf("config: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer l.Println("got interruption signal")

	db, err := database.NewDb(cfg.DBFile)
	if err != nil {
		l.WithError(err).Fatal("failed to open database")
	}

	store, err := newObjectStore(ctx, cfg, l)
	if err != nil {
		l.WithError(err).Fatal("failed to set up object store")
	}
	// Cached URLs must expire before the signed ones do.
	cached := objectstore.NewURLCache(store, cfg.URLCacheSize, cfg.DownloadURLTTL/2)

	svc := access.NewService(database.NewRepository(db), cached, cfg.StoreMaxRetries, l)
	server := &http.Server{
		Addr:              ":" + cfg.SharePort,
		Handler:           handler.NewHandler(svc, ident, l),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Printf("listening to port %s\n", cfg.SharePort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Fatal("listen and serve returned err")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.WithError(err).Error("handler shutdown returned an err")
		}
	}()

	<-ctx.Done()
}

func newObjectStore(ctx context.Context, cfg *config.Config, l *log.Entry) (objectstore.Store, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreMinio:
		m, err := objectstore.NewMinio(objectstore.MinioConfig{
			Endpoint:    cfg.S3Endpoint,
			Region:      cfg.S3Region,
			Bucket:      cfg.S3Bucket,
			AccessKey:   cfg.S3AccessKey,
			SecretKey:   cfg.S3SecretKey,
			UseSSL:      cfg.S3UseSSL,
			UploadTTL:   cfg.UploadURLTTL,
			DownloadTTL: cfg.DownloadURLTTL,
		}, l)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("can't ensure bucket %s: %w", cfg.S3Bucket, err)
		}
		return m, nil
	default:
		s, err := objectstore.NewSigned(cfg.BlobBaseURL, signing.NewSigner(cfg.SigningSecret), cfg.UploadURLTTL, cfg.DownloadURLTTL, l)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
