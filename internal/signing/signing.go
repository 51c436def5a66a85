// Package signing issues and checks time-bounded object URLs shared between
// the share-service and the blob-service.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

const (
	paramExpires   = "expires"
	paramSignature = "sig"
)

var (
	ErrNoSignature      = errors.New("url is not signed")
	ErrExpired          = errors.New("signed url expired")
	ErrInvalidSignature = errors.New("signature mismatch")
)

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Sign appends expiry and signature parameters to u, bound to method and ref.
func (s *Signer) Sign(u *url.URL, method, ref string, ttl time.Duration) *url.URL {
	signed := *u
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	q := signed.Query()
	q.Set(paramExpires, expires)
	q.Set(paramSignature, s.mac(method, ref, expires))
	signed.RawQuery = q.Encode()
	return &signed
}

// Verify checks the parameters previously produced by Sign.
func (s *Signer) Verify(q url.Values, method, ref string) error {
	expires, sig := q.Get(paramExpires), q.Get(paramSignature)
	if expires == "" || sig == "" {
		return ErrNoSignature
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(method, ref, expires))) {
		return ErrInvalidSignature
	}
	ts, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if !s.now().Before(time.Unix(ts, 0)) {
		return ErrExpired
	}
	return nil
}

func (s *Signer) mac(method, ref, expires string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(method + "\n" + ref + "\n" + expires))
	return hex.EncodeToString(m.Sum(nil))
}
