package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobhandler "github.com/konorlevich/file_share/internal/blob-service/handler"
	blobstorage "github.com/konorlevich/file_share/internal/blob-service/storage"
	"github.com/konorlevich/file_share/internal/share-service/access"
	"github.com/konorlevich/file_share/internal/share-service/database"
	"github.com/konorlevich/file_share/internal/share-service/identity"
	"github.com/konorlevich/file_share/internal/share-service/objectstore"
	"github.com/konorlevich/file_share/internal/signing"
)

type flow struct {
	api     *httptest.Server
	ident   *identity.Verifier
	blobDir string
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	l := getLogger()

	blobDir := t.TempDir()
	st, err := blobstorage.NewStorage(blobDir, l)
	require.NoError(t, err)
	signer := signing.NewSigner("blob-secret")
	blob := httptest.NewServer(blobhandler.NewHandler(st, signer, 1<<20, l))
	t.Cleanup(blob.Close)

	signed, err := objectstore.NewSigned(blob.URL, signer, time.Minute, time.Hour, l)
	require.NoError(t, err)

	db, err := database.NewDb(filepath.Join(t.TempDir(), database.DefaultFile))
	require.NoError(t, err)

	svc := access.NewService(database.NewRepository(db), objectstore.NewURLCache(signed, 16, time.Minute), 2, l)
	ident := identity.NewVerifier("jwt-secret", "file-share-test")
	api := httptest.NewServer(NewHandler(svc, ident, l))
	t.Cleanup(api.Close)

	return &flow{api: api, ident: ident, blobDir: blobDir}
}

func (f *flow) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := f.ident.Issue(user, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *flow) do(t *testing.T, method, path, token, body string, out any) int {
	t.Helper()
	var rb io.Reader
	if body != "" {
		rb = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.api.URL+path, rb)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestFlow_UploadRegisterShareResolve(t *testing.T) {
	f := newFlow(t)
	alice := f.token(t, "alice")
	bob := f.token(t, "bob")

	var slot uploadSlotResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/files/upload-url", alice, "", &slot))
	require.NotEmpty(t, slot.StorageRef)

	req, err := http.NewRequest(http.MethodPut, slot.UploadURL, strings.NewReader("hello, world"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reg registerResponse
	body := `{"storageRef":"` + slot.StorageRef + `","name":"hello.txt","size":12,"contentType":"text/plain"}`
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/files", alice, body, &reg))

	var aliceFiles []access.FileView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/files", alice, "", &aliceFiles))
	require.Len(t, aliceFiles, 1)
	assert.Equal(t, reg.ID, aliceFiles[0].ID)
	assert.Equal(t, "alice", aliceFiles[0].OwnerID)
	require.NotNil(t, aliceFiles[0].URL)

	var bobFiles []access.FileView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/files", bob, "", &bobFiles))
	assert.Empty(t, bobFiles)

	path := "/files/" + reg.ID.String() + "/shares"
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, path, bob, "", nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, path, "", "", nil))

	var share shareResponse
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, path, alice, "", &share))
	assert.Len(t, share.AccessCode, access.CodeLength)

	var shared access.FileView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/shares/"+share.AccessCode, "", "", &shared))
	assert.Equal(t, "hello.txt", shared.Name)
	assert.Empty(t, shared.OwnerID)
	require.NotNil(t, shared.URL)

	got, err := http.Get(*shared.URL)
	require.NoError(t, err)
	defer got.Body.Close()
	content, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(content))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/shares/"+strings.Repeat("z", access.CodeLength), "", "", nil))
}

// upload pushes content through a fresh slot and registers it for the token's user.
func (f *flow) upload(t *testing.T, token, name, content string) (uuid.UUID, string) {
	t.Helper()
	var slot uploadSlotResponse
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/files/upload-url", token, "", &slot))
	req, err := http.NewRequest(http.MethodPut, slot.UploadURL, strings.NewReader(content))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reg registerResponse
	body := fmt.Sprintf(`{"storageRef":%q,"name":%q,"size":%d}`, slot.StorageRef, name, len(content))
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/files", token, body, &reg))
	return reg.ID, slot.StorageRef
}

func TestFlow_RemovedObjectHasNoURL(t *testing.T) {
	f := newFlow(t)
	alice := f.token(t, "alice")
	id, ref := f.upload(t, alice, "gone.txt", "soon gone")

	var share shareResponse
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/files/"+id.String()+"/shares", alice, "", &share))

	var files []access.FileView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/files", alice, "", &files))
	require.Len(t, files, 1)
	require.NotNil(t, files[0].URL)

	require.NoError(t, os.Remove(filepath.Join(f.blobDir, "objects", ref[:2], ref)))

	files = nil
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/files", alice, "", &files))
	require.Len(t, files, 1)
	assert.Nil(t, files[0].URL)

	var shared access.FileView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/shares/"+share.AccessCode, "", "", &shared))
	assert.Equal(t, "gone.txt", shared.Name)
	assert.Nil(t, shared.URL)
}

func TestFlow_AnonymousCaller(t *testing.T) {
	f := newFlow(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/files/upload-url", "", "", nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/files", "not-a-jwt", `{"name":"a"}`, nil))

	var files []access.FileView
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/files", "", "", &files))
	assert.Empty(t, files)
}

func TestFlow_RegisterRejectsBadMetadata(t *testing.T) {
	f := newFlow(t)
	alice := f.token(t, "alice")

	tests := []struct {
		name string
		body string
	}{
		{name: "bad ref", body: `{"storageRef":"../etc/passwd","name":"a","size":1}`},
		{name: "empty name", body: `{"storageRef":"7a0c1b3e-5c55-4b9c-9b0e-2f2f3b0b6f11","name":" ","size":1}`},
		{name: "negative size", body: `{"storageRef":"7a0c1b3e-5c55-4b9c-9b0e-2f2f3b0b6f11","name":"a","size":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/files", alice, tt.body, nil))
		})
	}
}
