package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/middleware"
	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/utils"
)

func newUploadRouter(db *gorm.DB) *gin.Engine {
	uploadCtl := NewUploadController(db)

	r := gin.New()
	api := r.Group("/api/v1")
	user := api.Group("")
	user.Use(middleware.AuthRequired())
	user.POST("/uploads", uploadCtl.Image)
	return r
}

func uploadRequest(t *testing.T, token, kind, filename, contentType string, payload []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("kind", kind))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestUploadStoresFileAndLedgerRow(t *testing.T) {
	db := newTestDB(t)
	router := newUploadRouter(db)

	user, token := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, token, "profile", "me.png", "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := dataField(t, w)
	url, _ := data["url"].(string)
	assert.True(t, utils.IsLocalUploadURL(url), "url %q", url)

	var rec models.UploadedFile
	require.NoError(t, db.First(&rec).Error)
	assert.Equal(t, "profile", rec.Kind)
	assert.Equal(t, user.ID, rec.OwnerID)
	assert.Equal(t, url, rec.URL)

	_, err := os.Stat(rec.FilePath)
	assert.NoError(t, err, "file must exist on disk")

	// The served URL and the on-disk path are the same mapping: the file
	// lands under the configured directory, which the router mounts at
	// the URL prefix.
	mapped, ok := utils.UploadPathFor(url)
	require.True(t, ok)
	assert.Equal(t, rec.FilePath, mapped)
	assert.Equal(t, os.Getenv("UPLOAD_DIR"), utils.UploadBaseDir())
	assert.True(t, strings.HasPrefix(rec.FilePath, utils.UploadBaseDir()),
		"file %q stored outside %q", rec.FilePath, utils.UploadBaseDir())
}

func TestUploadDeleteWithoutLedgerRowUsesConfiguredDirectory(t *testing.T) {
	db := newTestDB(t)
	router := newUploadRouter(db)

	_, token := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, token, "profile", "old.png", "image/png", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	url, _ := dataField(t, w)["url"].(string)
	onDisk, ok := utils.UploadPathFor(url)
	require.True(t, ok)

	// Drop the ledger row so deletion has to fall back to deriving the
	// path from the URL.
	require.NoError(t, db.Where("url = ?", url).Delete(&models.UploadedFile{}).Error)

	utils.DeleteLocalUpload(db, url)

	_, err := os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err), "file %q must be removed", onDisk)
}

func TestUploadRejectsUnknownKindAndNonImages(t *testing.T) {
	db := newTestDB(t)
	router := newUploadRouter(db)

	_, token := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, token, "banner", "x.png", "image/png", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, token, "post", "x.exe", "application/octet-stream", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.UploadedFile{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUploadEnforcesKindSizeCeiling(t *testing.T) {
	db := newTestDB(t)
	router := newUploadRouter(db)

	_, token := createTestUser(t, db, "Pat Parent", "pat@example.test", models.RoleUser)

	// One byte over the profile ceiling.
	oversized := make([]byte, utils.MaxProfileImageBytes+1)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, token, "profile", "big.png", "image/png", oversized))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// The same payload is fine for the roomier post ceiling.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, token, "post", "big.png", "image/png", oversized))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUploadRequiresAuthentication(t *testing.T) {
	db := newTestDB(t)
	router := newUploadRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "", "profile", "me.png", "image/png", []byte("x")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
