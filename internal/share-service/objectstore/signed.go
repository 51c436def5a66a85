package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/signing"
)

type requester interface {
	Do(req *http.Request) (*http.Response, error)
}

// Signed issues URLs pointing at a blob-service instance.
type Signed struct {
	base        *url.URL
	signer      *signing.Signer
	r           requester
	uploadTTL   time.Duration
	downloadTTL time.Duration
	l           *log.Entry
}

func NewSigned(baseURL string, signer *signing.Signer, uploadTTL, downloadTTL time.Duration, l *log.Entry) (*Signed, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("can't parse blob service url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("blob service url %q must be absolute", baseURL)
	}
	return &Signed{
		base:        base,
		signer:      signer,
		r:           &http.Client{Timeout: 10 * time.Second},
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
		l:           l.WithFields(log.Fields{"backend": "local", "base_url": base.String()}),
	}, nil
}

func (s *Signed) UploadSlot(_ context.Context) (Slot, error) {
	ref := newRef()
	return Slot{URL: s.objectURL(http.MethodPut, ref, s.uploadTTL), Ref: ref}, nil
}

func (s *Signed) Stat(ctx context.Context, ref string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.objectURL(http.MethodHead, ref, time.Minute), nil)
	if err != nil {
		return fmt.Errorf("can't prepare request: %w", err)
	}
	res, err := s.r.Do(req)
	if err != nil {
		return fmt.Errorf("can't reach blob service: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrObjectNotFound
	default:
		s.l.WithFields(log.Fields{"storage_ref": ref, "status": res.StatusCode}).Debug("unexpected head status")
		return fmt.Errorf("blob service returned status code: %d", res.StatusCode)
	}
}

func (s *Signed) PresignDownload(_ context.Context, ref string) (string, error) {
	return s.objectURL(http.MethodGet, ref, s.downloadTTL), nil
}

func (s *Signed) objectURL(method, ref string, ttl time.Duration) string {
	return s.signer.Sign(s.base.JoinPath("objects", ref), method, ref, ttl).String()
}
