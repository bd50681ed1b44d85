package handlers

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/paddy-api/internal/diagnosis"
	"github.com/Brownie44l1/paddy-api/internal/metrics"
	"github.com/Brownie44l1/paddy-api/internal/model"
	"github.com/Brownie44l1/paddy-api/internal/upload"
)

type testServer struct {
	router    *gin.Engine
	uploadDir string
}

func newTestServer(t *testing.T, maxBytes int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := filepath.Join(t.TempDir(), "temp_uploads")
	store, err := upload.NewStore(dir, logger)
	require.NoError(t, err)

	m := metrics.New()
	predictor := model.NewMock(model.DefaultMetadata(), model.DefaultClasses, 11)
	svc := diagnosis.NewService(predictor, m, logger)
	h := NewHandler(svc, store, maxBytes, logger)

	return &testServer{router: NewRouter(h, m, []string{"*"}, logger), uploadDir: dir}
}

func leafJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 3), G: 160, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *testServer) do(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func (s *testServer) requireNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPredict_ValidImageInTestMode(t *testing.T) {
	s := newTestServer(t, 16<<20)
	img := leafJPEG(t)

	severities := map[float64]bool{}
	for i := 0; i < 5; i++ {
		rec, body := s.do(multipartRequest(t, "file", "leaf.jpg", img))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		require.Len(t, body, 3)
		assert.Contains(t, model.DefaultClasses, body["disease"])
		sev, ok := body["severity"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, sev, 0.0)
		assert.LessOrEqual(t, sev, 100.0)
		assert.Equal(t, "test", body["mode"])
		severities[sev] = true
	}
	require.Greater(t, len(severities), 1)
	s.requireNoTempFiles(t)
}

func TestPredict_ConcurrentRequests(t *testing.T) {
	s := newTestServer(t, 16<<20)
	img := leafJPEG(t)

	const n = 16
	reqs := make([]*http.Request, n)
	for i := range reqs {
		reqs[i] = multipartRequest(t, "file", "leaf.jpg", img)
	}

	codes := make([]int, n)
	bodies := make([]map[string]any, n)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, body := s.do(req)
			codes[i], bodies[i] = rec.Code, body
		}()
	}
	wg.Wait()

	for i := range reqs {
		require.Equal(t, http.StatusOK, codes[i])
		assert.Contains(t, model.DefaultClasses, bodies[i]["disease"])
		assert.Equal(t, "test", bodies[i]["mode"])
	}
	s.requireNoTempFiles(t)

	rec, _ := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/predict",status="200"} 16`)
}

func TestPredict_RejectsNonImageExtension(t *testing.T) {
	s := newTestServer(t, 16<<20)

	for _, name := range []string{"notes.txt", "leaf.gif", "leaf"} {
		rec, body := s.do(multipartRequest(t, "file", name, leafJPEG(t)))
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.Equal(t, msgInvalidType, body["error"])
	}
	s.requireNoTempFiles(t)
}

func TestPredict_MissingFile(t *testing.T) {
	s := newTestServer(t, 16<<20)

	rec, body := s.do(multipartRequest(t, "image", "leaf.jpg", leafJPEG(t)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgNoFile, body["error"])

	rec, body = s.do(multipartRequest(t, "file", "", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgNoSelection, body["error"])

	rec, body = s.do(httptest.NewRequest(http.MethodPost, "/predict", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body, "error")
}

func TestPredict_CorruptImageCleansUp(t *testing.T) {
	s := newTestServer(t, 16<<20)

	rec, body := s.do(multipartRequest(t, "file", "leaf.png", []byte("not really a png")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgInvalidImage, body["error"])
	s.requireNoTempFiles(t)
}

func TestPredict_HugeDimensionsRejected(t *testing.T) {
	s := newTestServer(t, 16<<20)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	binary.BigEndian.PutUint32(data[16:20], 40000)
	binary.BigEndian.PutUint32(data[20:24], 40000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	rec, body := s.do(multipartRequest(t, "file", "leaf.png", data))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgInvalidImage, body["error"])
	s.requireNoTempFiles(t)
}

func TestPredict_TooLarge(t *testing.T) {
	s := newTestServer(t, 1024)

	rec, body := s.do(multipartRequest(t, "file", "leaf.jpg", bytes.Repeat([]byte{0xff}, 4096)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, msgTooLarge, body["error"])
	s.requireNoTempFiles(t)
}

func TestIndexHealthAndPreflight(t *testing.T) {
	s := newTestServer(t, 16<<20)

	rec, _ := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "/predict")

	rec, body := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "test", body["mode"])
	require.Len(t, body["classes"], len(model.DefaultClasses))

	rec, body = s.do(httptest.NewRequest(http.MethodOptions, "/predict", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec, _ = s.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, 16<<20)
	s.do(multipartRequest(t, "file", "leaf.jpg", leafJPEG(t)))

	rec, _ := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/predict",status="200"} 1`)
	require.Contains(t, rec.Body.String(), "predictions_total")
}

func TestCORSConfig(t *testing.T) {
	require.True(t, corsConfig(nil).AllowAllOrigins)
	require.True(t, corsConfig([]string{"http://a", "*"}).AllowAllOrigins)

	cfg := corsConfig([]string{"http://localhost:5173"})
	require.False(t, cfg.AllowAllOrigins)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.AllowOrigins)
}
