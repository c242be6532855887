package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "imageserv/src/app"
	cfg "imageserv/src/configuration"
	"imageserv/src/repository"
)

const testEndpoint = "http://localhost:4566"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func testRouter(t *testing.T) (http.Handler, *repository.MemoryStore) {
	t.Helper()
	config := &cfg.Properties{
		S3: cfg.S3Properties{Endpoint: testEndpoint, Bucket: "my-images"},
		Server: cfg.HttpServerProperties{
			Mode:        "test",
			MaxUploadMB: 8,
			CorsOrigins: []string{"*"},
		},
	}
	store := repository.NewMemoryStore("my-images", "other")
	images := app.NewImageService(store, config.S3.Endpoint, config.S3.Bucket, zerolog.Nop())
	return NewRouter(config, images, zerolog.Nop()), store
}

func uploadRequest(t *testing.T, fileName, contentType string, content []byte, bucket string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	if bucket != "" {
		require.NoError(t, writer.WriteField("bucket", bucket))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/images/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndFetch(t *testing.T) {
	router, store := testRouter(t)

	w := serve(router, uploadRequest(t, "photo.png", "image/png", pngBytes, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded app.UploadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, "Image uploaded", uploaded.Message)
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, uploaded.Key)
	assert.Equal(t, testEndpoint+"/my-images/"+uploaded.Key, uploaded.URL)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images/"+uploaded.Key, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngBytes, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	info, err := store.HeadObject(context.Background(), "my-images", uploaded.Key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
}

func TestUploadWithBucketOverride(t *testing.T) {
	router, store := testRouter(t)

	w := serve(router, uploadRequest(t, "photo.jpg", "image/jpeg", []byte("jpeg"), "other"))
	require.Equal(t, http.StatusOK, w.Code)

	var uploaded app.UploadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, testEndpoint+"/other/"+uploaded.Key, uploaded.URL)

	_, err := store.HeadObject(context.Background(), "other", uploaded.Key)
	assert.NoError(t, err)
}

func TestFetchKeepsDeclaredContentType(t *testing.T) {
	router, _ := testRouter(t)

	// declared as jpeg, sniffs as text
	w := serve(router, uploadRequest(t, "photo.jpg", "image/jpeg", []byte("jpeg"), ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var uploaded app.UploadResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images/"+uploaded.Key, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg", w.Body.String())
}

func TestUploadTooLarge(t *testing.T) {
	router, store := testRouter(t)

	big := bytes.Repeat([]byte{0xff}, 9<<20)
	w := serve(router, uploadRequest(t, "big.jpg", "image/jpeg", big, ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "upload exceeds 8.0 MiB")

	objects, err := store.ListObjects(context.Background(), "my-images")
	require.NoError(t, err)
	assert.Empty(t, objects)

	w = serve(router, uploadRequest(t, "small.jpg", "image/jpeg", big[:1<<20], ""))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadWithoutFile(t *testing.T) {
	router, _ := testRouter(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("bucket", "other"))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/images/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := serve(router, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImageURLRoutes(t *testing.T) {
	router, _ := testRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/images/image1.jpg/url", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:4566/my-images/image1.jpg", w.Header().Get("Location"))

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images/image1.jpg/url-json?bucket=other", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"http://localhost:4566/other/image1.jpg"}`, w.Body.String())
}

func TestGetMissingImage(t *testing.T) {
	router, _ := testRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/images/missing.jpg", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to fetch image")
}

func TestMetadataRoute(t *testing.T) {
	router, store := testRouter(t)
	require.NoError(t, store.PutObject(context.Background(), "my-images", "test.png",
		bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))

	target := testEndpoint + "/my-images/test.png"
	w := serve(router, httptest.NewRequest(http.MethodGet, "/images/metadata?url="+url.QueryEscape(target), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var metadata app.ImageMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metadata))
	assert.Equal(t, "test.png", metadata.Key)
	assert.Equal(t, target, metadata.URL)
	assert.Equal(t, "image/png", metadata.ContentType)
	require.NotNil(t, metadata.Size)
	assert.Equal(t, int64(len(pngBytes)), *metadata.Size)

	w = serve(router, httptest.NewRequest(http.MethodGet,
		"/images/metadata?url="+url.QueryEscape("http://elsewhere/my-images/test.png"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images/metadata", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRoute(t *testing.T) {
	router, store := testRouter(t)
	require.NoError(t, store.PutObject(context.Background(), "my-images", "abc.jpg",
		bytes.NewReader(nil), 0, "image/jpeg"))

	w := serve(router, httptest.NewRequest(http.MethodDelete, "/images/abc.jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deleted image: abc.jpg", w.Body.String())

	// deleting again is still fine
	w = serve(router, httptest.NewRequest(http.MethodDelete, "/images/abc.jpg", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListRoutes(t *testing.T) {
	router, store := testRouter(t)
	for _, key := range []string{"a.jpg", "b.png"} {
		require.NoError(t, store.PutObject(context.Background(), "my-images", key, bytes.NewReader(nil), 0, ""))
	}

	w := serve(router, httptest.NewRequest(http.MethodGet, "/images", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var images []app.ImageMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &images))
	require.Len(t, images, 2)
	assert.Equal(t, testEndpoint+"/my-images/a.jpg", images[0].URL)
	assert.Equal(t, testEndpoint+"/my-images/b.png", images[1].URL)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images?bucket=other", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images/buckets", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["my-images","other"]`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/images?bucket=nope", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := testRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "imageserv_http_request_duration_seconds")

	w = serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
