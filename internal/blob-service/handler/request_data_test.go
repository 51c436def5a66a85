package handler

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func getLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.FatalLevel)
	return logger.WithField("in_test", true)
}

func createRequest(method string, body io.Reader, ref string) *http.Request {
	r := httptest.NewRequest(method, "http://example.com/objects/"+ref, body)
	if ref != "" {
		r.SetPathValue(fieldNameRef, ref)
	}
	return r
}

func TestNewRequestData(t *testing.T) {
	tests := []struct {
		description    string
		request        *http.Request
		expectedError  error
		verifyResponse func(t *testing.T, rd *requestData)
	}{
		{
			description: "PUT with body",
			request:     createRequest(http.MethodPut, strings.NewReader("content"), "ref1"),
			verifyResponse: func(t *testing.T, rd *requestData) {
				assert.Equal(t, "ref1", rd.ref)
				if assert.NotNil(t, rd.body) {
					b, _ := io.ReadAll(rd.body)
					assert.Equal(t, "content", string(b))
				}
			},
		},
		{
			description:   "PUT without body",
			request:       createRequest(http.MethodPut, nil, "ref1"),
			expectedError: errNoBody,
		},
		{
			description:   "PUT without ref",
			request:       createRequest(http.MethodPut, strings.NewReader("content"), ""),
			expectedError: errNoRef,
		},
		{
			description: "GET with ref",
			request:     createRequest(http.MethodGet, nil, "ref2"),
			verifyResponse: func(t *testing.T, rd *requestData) {
				assert.Equal(t, "ref2", rd.ref)
				assert.Nil(t, rd.body)
			},
		},
		{
			description:   "GET without ref",
			request:       createRequest(http.MethodGet, nil, ""),
			expectedError: errNoRef,
		},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			rd, err := newRequestData(tc.request, getLogger())
			if !errors.Is(err, tc.expectedError) {
				t.Fatalf("Expected error %v, got %v", tc.expectedError, err)
			}
			if tc.verifyResponse != nil {
				tc.verifyResponse(t, rd)
			}
		})
	}
}
