package admin

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/catalog-sync/catalog-sync/internal/config"
	"github.com/catalog-sync/catalog-sync/internal/storage/local"
)

func newMediaRouter(t *testing.T) *gin.Engine {
	t.Helper()

	backend, err := local.New(&config.LocalStorageConfig{BasePath: t.TempDir()}, "http://localhost:8080")
	if err != nil {
		t.Fatalf("failed to create local backend: %v", err)
	}

	handlers := NewMediaHandlers(backend)
	r := gin.New()
	r.POST("/media", handlers.Upload)
	r.GET("/media/*filepath", handlers.Serve)
	r.DELETE("/media/*filepath", handlers.Delete)
	return r
}

func uploadFile(t *testing.T, router *gin.Engine, filename, contents string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.WriteString(fw, contents); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	router.ServeHTTP(w, req)
	return w
}

func TestMediaUploadAndServe(t *testing.T) {
	router := newMediaRouter(t)

	w := uploadFile(t, router, "cover.png", "fake image bytes")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Path     string `json:"path"`
		URL      string `json:"url"`
		Size     int64  `json:"size"`
		Checksum string `json:"checksum"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.Path, "media/") || !strings.HasSuffix(resp.Path, "-cover.png") {
		t.Errorf("unexpected storage path %q", resp.Path)
	}
	if resp.Size != int64(len("fake image bytes")) {
		t.Errorf("expected size %d, got %d", len("fake image bytes"), resp.Size)
	}
	if resp.Checksum == "" {
		t.Error("expected a checksum")
	}

	serveW := httptest.NewRecorder()
	serveReq := httptest.NewRequest(http.MethodGet, "/media/"+resp.Path, nil)
	router.ServeHTTP(serveW, serveReq)

	if serveW.Code != http.StatusOK {
		t.Fatalf("expected 200 serving the upload, got %d: %s", serveW.Code, serveW.Body.String())
	}
	if serveW.Body.String() != "fake image bytes" {
		t.Errorf("served content does not match upload: %q", serveW.Body.String())
	}
}

func TestMediaServe_NotFound(t *testing.T) {
	router := newMediaRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/media/missing.png", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMediaServe_RejectsTraversal(t *testing.T) {
	router := newMediaRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/..%2F..%2Fetc%2Fpasswd", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Fatalf("expected traversal to be rejected, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMediaDelete(t *testing.T) {
	router := newMediaRouter(t)

	w := uploadFile(t, router, "todelete.txt", "bytes")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	delW := httptest.NewRecorder()
	delReq := httptest.NewRequest(http.MethodDelete, "/media/"+resp.Path, nil)
	router.ServeHTTP(delW, delReq)
	if delW.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", delW.Code, delW.Body.String())
	}

	// A second delete should report the file as gone.
	againW := httptest.NewRecorder()
	againReq := httptest.NewRequest(http.MethodDelete, "/media/"+resp.Path, nil)
	router.ServeHTTP(againW, againReq)
	if againW.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d: %s", againW.Code, againW.Body.String())
	}
}
