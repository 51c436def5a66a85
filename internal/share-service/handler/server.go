package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/share-service/access"
	"github.com/konorlevich/file_share/internal/share-service/handler/middleware"
	"github.com/konorlevich/file_share/internal/share-service/objectstore"
)

const (
	urlPatternUploadURL   = "POST /files/upload-url"
	urlPatternRegister    = "POST /files"
	urlPatternList        = "GET /files"
	urlPatternCreateShare = "POST /files/{id}/shares"
	urlPatternResolve     = "GET /shares/{code}"
)

type FileService interface {
	IssueUploadSlot(ctx context.Context, caller access.Caller) (objectstore.Slot, error)
	RegisterFile(ctx context.Context, caller access.Caller, in access.FileInput) (uuid.UUID, error)
	ListOwnedFiles(ctx context.Context, caller access.Caller) ([]access.FileView, error)
	CreateShare(ctx context.Context, caller access.Caller, fileID string) (string, error)
	ResolveShare(ctx context.Context, code string) (*access.FileView, error)
}

type uploadSlotResponse struct {
	UploadURL  string `json:"uploadUrl"`
	StorageRef string `json:"storageRef"`
}

type registerResponse struct {
	ID uuid.UUID `json:"id"`
}

type shareResponse struct {
	AccessCode string `json:"accessCode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(svc FileService, v middleware.TokenVerifier, l *log.Entry) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(pattern, h))
	}

	handle(urlPatternUploadURL, issueUploadSlot(svc, l))
	handle(urlPatternRegister, registerFile(svc, l))
	handle(urlPatternList, listFiles(svc, l))
	handle(urlPatternCreateShare, createShare(svc, l))
	handle(urlPatternResolve, resolveShare(svc, l))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})

	return middleware.Identify(v, l)(mux)
}

func issueUploadSlot(svc FileService, l *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, l, false)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		slot, err := svc.IssueUploadSlot(r.Context(), rd.caller)
		if err != nil {
			writeError(rw, err)
			return
		}
		writeJSON(rw, http.StatusOK, uploadSlotResponse{UploadURL: slot.URL, StorageRef: slot.Ref})
	}
}

func registerFile(svc FileService, l *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !middleware.CallerFrom(r.Context()).Authenticated() {
			writeError(rw, access.ErrUnauthenticated)
			return
		}
		rd, err := newRequestData(r, l, true)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		id, err := svc.RegisterFile(r.Context(), rd.caller, *rd.file)
		if err != nil {
			writeError(rw, err)
			return
		}
		writeJSON(rw, http.StatusCreated, registerResponse{ID: id})
	}
}

func listFiles(svc FileService, l *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, l, false)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		files, err := svc.ListOwnedFiles(r.Context(), rd.caller)
		if err != nil {
			writeError(rw, err)
			return
		}
		writeJSON(rw, http.StatusOK, files)
	}
}

func createShare(svc FileService, l *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, l, false)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		code, err := svc.CreateShare(r.Context(), rd.caller, rd.fileID)
		if err != nil {
			writeError(rw, err)
			return
		}
		writeJSON(rw, http.StatusCreated, shareResponse{AccessCode: code})
	}
}

func resolveShare(svc FileService, l *log.Entry) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rd, err := newRequestData(r, l, false)
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		file, err := svc.ResolveShare(r.Context(), rd.code)
		if err != nil {
			writeError(rw, err)
			return
		}
		if file == nil {
			writeJSON(rw, http.StatusNotFound, errorResponse{Error: "not found"})
			return
		}
		writeJSON(rw, http.StatusOK, file)
	}
}

func writeError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		writeJSON(rw, http.StatusUnauthorized, errorResponse{Error: access.ErrUnauthenticated.Error()})
	case errors.Is(err, access.ErrAccessDenied):
		writeJSON(rw, http.StatusForbidden, errorResponse{Error: access.ErrAccessDenied.Error()})
	case errors.Is(err, access.ErrValidation):
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(rw, http.StatusServiceUnavailable, errorResponse{Error: access.ErrDependencyUnavailable.Error()})
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
