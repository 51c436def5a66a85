package handler

import (
	"errors"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const fieldNameRef = "ref"

var (
	errNoRef  = errors.New("object reference has not been provided")
	errNoBody = errors.New("object body has not been provided")
)

type requestData struct {
	ref  string
	body io.ReadCloser
}

func newRequestData(r *http.Request, logger *log.Entry) (*requestData, error) {
	rd := &requestData{ref: r.PathValue(fieldNameRef)}
	l := logger.WithField(fieldNameRef, rd.ref)
	if rd.ref == "" {
		l.Debug(errNoRef)
		return nil, errNoRef
	}
	if r.Method != http.MethodPut {
		return rd, nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		l.Debug(errNoBody)
		return nil, errNoBody
	}
	rd.body = r.Body
	return rd, nil
}
