package handler

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/blob-service/storage"
)

const (
	// GET patterns match HEAD too
	urlPatternGetObject = "GET /objects/{ref}"
	urlPatternPutObject = "PUT /objects/{ref}"
)

type Storage interface {
	Save(ref string, file io.ReadCloser) error
	Open(ref string) (*os.File, fs.FileInfo, error)
}

type Verifier interface {
	Verify(q url.Values, method, ref string) error
}

func NewHandler(st Storage, v Verifier, maxSize int64, l *log.Entry) *http.ServeMux {
	handler := http.NewServeMux()

	serve := func(rw http.ResponseWriter, r *http.Request) {
		rl := l.WithField("client", r.RemoteAddr)
		rd, err := newRequestData(r, rl)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		rl = rl.WithField(fieldNameRef, rd.ref)
		if err := v.Verify(r.URL.Query(), r.Method, rd.ref); err != nil {
			rl.WithError(err).Info("rejected unsigned request")
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		f, info, err := st.Open(rd.ref)
		if err != nil {
			if errors.Is(err, storage.ErrCantFindObject) || errors.Is(err, storage.ErrInvalidRef) || errors.Is(err, storage.ErrIsNotAFile) {
				http.NotFound(rw, r)
				return
			}
			rl.WithError(err).Error("can't open object")
			http.Error(rw, "can't read object", http.StatusInternalServerError)
			return
		}
		defer f.Close()

		rw.Header().Set("Content-Type", "application/octet-stream")
		http.ServeContent(rw, r, "", info.ModTime(), f)
		rl.WithField("size", info.Size()).Debug("object sent")
	}
	handler.HandleFunc(urlPatternGetObject, serve)

	handler.HandleFunc(urlPatternPutObject, func(rw http.ResponseWriter, r *http.Request) {
		rl := l.WithField("client", r.RemoteAddr)
		rd, err := newRequestData(r, rl)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		rl = rl.WithField(fieldNameRef, rd.ref)
		if err := v.Verify(r.URL.Query(), r.Method, rd.ref); err != nil {
			rl.WithError(err).Info("rejected unsigned upload")
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		if err := st.Save(rd.ref, http.MaxBytesReader(rw, rd.body, maxSize)); err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				http.Error(rw, "object too large", http.StatusRequestEntityTooLarge)
			case errors.Is(err, storage.ErrAlreadyExists):
				http.Error(rw, "object already exists", http.StatusConflict)
			case errors.Is(err, storage.ErrInvalidRef):
				http.Error(rw, err.Error(), http.StatusBadRequest)
			default:
				rl.WithError(err).Error("can't save object")
				http.Error(rw, "can't save object", http.StatusInternalServerError)
			}
			return
		}

		rl.Info("object saved")
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(rw).Encode(map[string]string{"storageRef": rd.ref})
	})

	return handler
}
