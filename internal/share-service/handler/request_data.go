package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/share-service/access"
	"github.com/konorlevich/file_share/internal/share-service/handler/middleware"
)

const (
	fieldNameFileID = "id"
	fieldNameCode   = "code"
	fieldNameUser   = "user"

	maxBodySize = 64 << 10
)

var errCantParseBody = errors.New("can't parse request body")

type requestData struct {
	caller access.Caller
	fileID string
	code   string
	file   *access.FileInput
}

// newRequestData reads the caller and path values; withBody also decodes a
// FileInput from the JSON body.
func newRequestData(r *http.Request, logger *log.Entry, withBody bool) (*requestData, error) {
	rd := &requestData{
		caller: middleware.CallerFrom(r.Context()),
		fileID: r.PathValue(fieldNameFileID),
		code:   r.PathValue(fieldNameCode),
	}
	if !withBody {
		return rd, nil
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil, errCantParseBody
	}

	in := &access.FileInput{}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		logger.WithField(fieldNameUser, rd.caller).WithError(err).Debug(errCantParseBody)
		return nil, errCantParseBody
	}
	rd.file = in
	return rd, nil
}
