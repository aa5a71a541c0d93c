package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"boxstore/internal/filestore"
	filestoreMocks "boxstore/internal/filestore/mocks"
)

func newFileApp(driver filestore.Driver) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})
	RegisterFileRoutes(app, "/file", driver)
	return app
}

func uploadFile(t *testing.T, app *fiber.App, url, filename, contentType string, payload []byte) (*http.Response, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestUploadAndDownloadFile(t *testing.T) {
	app := newFileApp(filestore.NewMemory(nil))

	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 1, 2, 3}
	resp, url := uploadFile(t, app, "/file/box010/", "pic.png", "image/png", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(url, "/file/box010/"), "unexpected upload URL %q", url)

	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUploadFileDefaultContentType(t *testing.T) {
	app := newFileApp(filestore.NewMemory(nil))

	resp, url := uploadFile(t, app, "/file/box010/", "blob.bin", "", []byte("raw bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := app.Test(httptest.NewRequest(http.MethodGet, url, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, filestore.DefaultContentType, getResp.Header.Get(fiber.HeaderContentType))
}

func TestUploadFileMissingPart(t *testing.T) {
	app := newFileApp(filestore.NewMemory(nil))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("other", "value"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/file/box010/", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, msgFileRequired, body["message"])
}

func TestListAndDeleteFiles(t *testing.T) {
	app := newFileApp(filestore.NewMemory(nil))

	_, url1 := uploadFile(t, app, "/file/box010/", "one.txt", "text/plain", []byte("one"))
	_, url2 := uploadFile(t, app, "/file/box010/", "two.txt", "text/plain", []byte("two"))

	listURLs := func() []string {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/box010/", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var urls []string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&urls))
		return urls
	}

	urls := listURLs()
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, url1)
	assert.Contains(t, urls, url2)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, url1, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, msgDeleted, body["message"])

	urls = listURLs()
	assert.Len(t, urls, 1)
	assert.Contains(t, urls, url2)

	t.Run("delete again", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, url1, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDownloadFileNotFound(t *testing.T) {
	app := newFileApp(filestore.NewMemory(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/box010/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, msgNotFound, body["message"])
}

func TestFileDriverError(t *testing.T) {
	mockDriver := new(filestoreMocks.MockDriver)
	app := newFileApp(mockDriver)

	t.Run("list failure", func(t *testing.T) {
		mockDriver.On("CheckSecurity", mock.Anything, "box010", "", false).Return(true).Once()
		mockDriver.On("List", mock.Anything, "box010").Return(nil, errors.New("storage down")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/file/box010/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "internal server error", body["message"])
	})

	t.Run("delete failure", func(t *testing.T) {
		mockDriver.On("CheckSecurity", mock.Anything, "box010", "f1", true).Return(true).Once()
		mockDriver.On("Delete", mock.Anything, "box010", "f1").Return(0, errors.New("storage down")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/file/box010/f1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	mockDriver.AssertExpectations(t)
}

func TestFileReservedBoxID(t *testing.T) {
	app := newFileApp(filestore.NewMemory(nil))

	resp, _ := uploadFile(t, app, "/file/_private/", "x.txt", "text/plain", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
