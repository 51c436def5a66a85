package access

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const (
	codeBytes = 20
	// CodeLength is the length of every generated access code.
	CodeLength = 32
	// maxCodeLength bounds what resolution will look up at all.
	maxCodeLength = 128
)

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewAccessCode returns 160 random bits as lowercase base32.
func NewAccessCode() (string, error) {
	b := make([]byte, codeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToLower(codeEncoding.EncodeToString(b)), nil
}

func codePrefix(code string) string {
	if len(code) > 6 {
		return code[:6] + "…"
	}
	return code
}
